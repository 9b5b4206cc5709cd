package api

import (
	"aistudio/internal/entity"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const taskEventName = "task_updated"

type sseMessage struct {
	event string
	data  interface{}
}

func (h *HTTPHandler) registerSSEClient(userID string, ch chan sseMessage) {
	if h == nil || ch == nil || userID == "" {
		return
	}
	h.sseMu.Lock()
	defer h.sseMu.Unlock()

	if h.sseClients == nil {
		h.sseClients = make(map[string][]chan sseMessage)
	}
	h.sseClients[userID] = append(h.sseClients[userID], ch)
}

func (h *HTTPHandler) unregisterSSEClient(userID string, target chan sseMessage) {
	if h == nil || target == nil || userID == "" {
		return
	}
	h.sseMu.Lock()
	defer h.sseMu.Unlock()

	current := h.sseClients[userID]
	if len(current) == 0 {
		return
	}

	remaining := current[:0]
	for _, ch := range current {
		if ch == target {
			continue
		}
		remaining = append(remaining, ch)
	}

	if len(remaining) == 0 {
		delete(h.sseClients, userID)
		return
	}

	h.sseClients[userID] = remaining
}

func (h *HTTPHandler) publishSSEMessage(userID string, msg sseMessage) {
	if h == nil || userID == "" {
		return
	}

	h.sseMu.Lock()
	channels := append([]chan sseMessage(nil), h.sseClients[userID]...)
	h.sseMu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- msg:
		default:
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"event":   msg.event,
			}).Warn("dropping sse message due to slow consumer")
		}
	}
}

// notifyTaskUpdated 在任务进入终态时推送给任务所属用户的所有连接。
func (h *HTTPHandler) notifyTaskUpdated(task *entity.DbAITask, urls []string) {
	if task == nil || !task.Status.Terminal() {
		return
	}
	payload := gin.H{
		"task_id": task.ID,
		"status":  string(task.Status),
	}
	if len(urls) > 0 {
		payload["urls"] = urls
	}
	h.publishSSEMessage(task.UserID, sseMessage{event: taskEventName, data: payload})
}

// StreamTaskEvents 以 SSE 推送当前用户的任务完成事件。
func (h *HTTPHandler) StreamTaskEvents(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "需要登录")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		ServiceUnavailable(c, "streaming not supported")
		return
	}

	ctx := c.Request.Context()
	events := make(chan sseMessage, 8)
	h.registerSSEClient(requestUser.ID, events)
	defer h.unregisterSSEClient(requestUser.ID, events)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher.Flush()

	heartbeatTicker := time.NewTicker(10 * time.Second)
	defer heartbeatTicker.Stop()

	logrus.WithField("user_id", requestUser.ID).Info("task sse connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			logrus.WithField("user_id", requestUser.ID).Info("task sse disconnected")
			return false
		case <-heartbeatTicker.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().UnixMilli()})
			return true
		case msg, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(msg.event, msg.data)
			return true
		}
	})
}
