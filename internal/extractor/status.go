package extractor

import (
	"aistudio/internal/entity/db"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	statusPaths = []string{
		"status", "state", "data.status", "data.state", "task.status",
		"output.task_status", "data.task_status",
	}
	taskIDPaths = []string{
		"taskId", "task_id", "data.taskId", "data.task_id", "data.id",
		"request_id", "output.task_id", "id",
	}
	errorPaths = []string{
		"error", "errorMessage", "error_message", "data.error", "data.failMsg",
		"data.errorMessage", "message", "output.message",
	}
)

// MapStatus normalises a provider status word to the task lifecycle.
// Unknown or empty values count as still processing.
func MapStatus(status string) db.AITaskStatus {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case s == "":
		return db.AITaskProcessing
	case strings.Contains(s, "success"), strings.Contains(s, "succeed"),
		strings.Contains(s, "complete"), s == "done":
		return db.AITaskSuccess
	case strings.Contains(s, "fail"), strings.Contains(s, "error"), strings.Contains(s, "cancel"):
		return db.AITaskFailed
	case strings.Contains(s, "pending"), strings.Contains(s, "queue"), strings.Contains(s, "wait"):
		return db.AITaskPending
	default:
		return db.AITaskProcessing
	}
}

// ProviderStatus reads the status word from a provider payload.
func ProviderStatus(raw []byte) string {
	return firstString(raw, statusPaths)
}

// ProviderTaskID reads the provider-side task id from a payload.
func ProviderTaskID(raw []byte) string {
	return firstString(raw, taskIDPaths)
}

// ProviderError reads a human readable failure reason from a payload.
func ProviderError(raw []byte) string {
	doc, ok := parseDocument(string(raw))
	if !ok {
		return ""
	}
	for _, path := range errorPaths {
		v := doc.Get(path)
		switch {
		case v.Type == gjson.String && strings.TrimSpace(v.Str) != "":
			return strings.TrimSpace(v.Str)
		case v.IsObject():
			if msg := v.Get("message").String(); msg != "" {
				return msg
			}
		}
	}
	return ""
}

func firstString(raw []byte, paths []string) string {
	doc, ok := parseDocument(string(raw))
	if !ok {
		return ""
	}
	for _, path := range paths {
		v := doc.Get(path)
		if !v.Exists() || v.IsObject() || v.IsArray() {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}
