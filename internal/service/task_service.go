package service

import (
	"aistudio/internal/entity"
	"aistudio/internal/entity/converter"
	"aistudio/internal/entity/dto"
	"aistudio/internal/extractor"
	"aistudio/internal/ledger"
	"aistudio/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Viewer 是发起请求的用户。
type Viewer struct {
	UserID string
	Admin  bool
}

// ProviderUpdate 是一次服务商回调或轮询得到的任务状态。
type ProviderUpdate struct {
	Status     string
	TaskID     string
	TaskInfo   []byte
	TaskResult []byte
	Error      string
}

// TaskUpdate 是一次状态推进的结果。Previous 为更新前的状态。
type TaskUpdate struct {
	Task     *entity.DbAITask
	URLs     []string
	Previous entity.AITaskStatus
}

// StatusChanged reports whether the update moved the task to another status.
// Replayed callbacks against a finished task report false.
func (u *TaskUpdate) StatusChanged() bool {
	return u != nil && u.Task != nil && u.Task.Status != u.Previous
}

// TaskService 封装生成任务的创建、状态更新与查询。
type TaskService struct {
	repo      model.Repository
	pricing   *Pricing
	extractor *extractor.Extractor
	media     *MediaPersister
	now       func() time.Time
}

// NewTaskService 创建任务服务。media 为 nil 时不转存结果。
func NewTaskService(repo model.Repository, pricing *Pricing, ext *extractor.Extractor, media *MediaPersister) *TaskService {
	if pricing == nil {
		pricing = NewPricing(repo)
	}
	if ext == nil {
		ext = extractor.New()
	}
	return &TaskService{
		repo:      repo,
		pricing:   pricing,
		extractor: ext,
		media:     media,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateTask 计算价格、检查余额，并在同一事务中写入任务与扣费记录。
// 返回新任务与扣费后的余额。
func (s *TaskService) CreateTask(ctx context.Context, userID string, req dto.GenerateRequest) (*entity.DbAITask, int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, 0, ErrUnauthenticated
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, 0, ErrPromptRequired
	}

	mediaType := entity.MediaType(strings.ToLower(strings.TrimSpace(req.MediaType)))
	if mediaType == "" {
		mediaType = entity.MediaImage
	}
	if !mediaType.Valid() {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidMediaType, req.MediaType)
	}
	scene := strings.ToLower(strings.TrimSpace(req.Scene))
	if scene == "" {
		scene = defaultScene(mediaType)
	}

	cost := s.pricing.Cost(ctx, mediaType, req.Model, scene)

	balance, err := s.repo.GetRemainingCredits(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("load balance: %w", err)
	}
	if balance < cost {
		return nil, balance, &ledger.InsufficientCreditsError{UserID: userID, Required: cost, Available: balance}
	}

	task := &entity.DbAITask{
		UserID:      userID,
		MediaType:   mediaType,
		Provider:    strings.TrimSpace(req.Provider),
		Model:       strings.TrimSpace(req.Model),
		Scene:       scene,
		Prompt:      prompt,
		Options:     req.Options,
		TaskID:      strings.TrimSpace(req.TaskID),
		CostCredits: cost,
	}
	if len(req.TaskInfo) > 0 {
		task.TaskInfo = string(req.TaskInfo)
	}
	if err := s.repo.CreateAITask(ctx, task); err != nil {
		return nil, balance, err
	}

	remaining, err := s.repo.GetRemainingCredits(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("reload balance failed")
		remaining = balance - cost
	}

	logrus.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"user_id":  userID,
		"provider": task.Provider,
		"model":    task.Model,
		"scene":    scene,
		"cost":     cost,
	}).Info("ai_task_created")
	return task, remaining, nil
}

func defaultScene(mediaType entity.MediaType) string {
	switch mediaType {
	case entity.MediaVideo:
		return "text-to-video"
	case entity.MediaMusic:
		return "text-to-music"
	default:
		return "text-to-image"
	}
}

// ApplyProviderUpdate 推进任务状态。结果中只要提取到媒体地址即视为成功；
// 失败时携带扣费记录 ID，由仓储在同一事务中退款。终态任务原样返回。
// 乱序到达的 processing → pending 不回退状态，只保存载荷。
func (s *TaskService) ApplyProviderUpdate(ctx context.Context, id string, update ProviderUpdate) (*TaskUpdate, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return &TaskUpdate{Task: task, URLs: s.TaskURLs(task), Previous: task.Status}, nil
	}

	statusWord := strings.TrimSpace(update.Status)
	if statusWord == "" {
		statusWord = extractor.ProviderStatus(update.TaskResult)
	}
	if statusWord == "" {
		statusWord = extractor.ProviderStatus(update.TaskInfo)
	}
	status := extractor.MapStatus(statusWord)

	urls := s.extractor.Extract(extractor.Source{
		Provider:   task.Provider,
		TaskResult: string(update.TaskResult),
		TaskInfo:   string(update.TaskInfo),
	})
	if len(urls) > 0 {
		status = entity.AITaskSuccess
	}
	if !task.Status.CanTransitionTo(status) {
		logrus.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"current":  task.Status,
			"reported": status,
		}).Debug("ai_task_status_out_of_order")
		status = task.Status
	}

	updates := entity.AITaskUpdates{Status: &status}
	if taskID := strings.TrimSpace(update.TaskID); taskID != "" {
		updates.TaskID = &taskID
	}
	if len(update.TaskInfo) > 0 {
		info := string(update.TaskInfo)
		updates.TaskInfo = &info
	}

	raw := update.TaskResult
	if len(raw) == 0 {
		raw = update.TaskInfo
	}
	if len(raw) > 0 {
		rawText := string(raw)
		updates.RawData = &rawText
	}

	switch status {
	case entity.AITaskSuccess:
		result := taskResult{Status: status, URLs: urls, Raw: raw}
		if s.media != nil {
			persisted := s.media.Persist(ctx, PersistRequest{
				TaskID:    task.ID,
				Provider:  task.Provider,
				MediaType: task.MediaType,
				URLs:      urls,
			})
			if persisted.Persisted > 0 {
				result.URLs = persisted.URLs
				result.SourceURLs = urls
				result.PersistedAt = s.now()
			}
		}
		encoded, err := result.encode()
		if err != nil {
			return nil, fmt.Errorf("encode task result: %w", err)
		}
		updates.TaskResult = &encoded
		urls = result.URLs
	case entity.AITaskFailed:
		reason := strings.TrimSpace(update.Error)
		if reason == "" {
			reason = extractor.ProviderError(raw)
		}
		encoded, err := taskResult{Status: status, Error: reason, Raw: raw}.encode()
		if err != nil {
			return nil, fmt.Errorf("encode task result: %w", err)
		}
		updates.TaskResult = &encoded
		updates.CreditID = task.CreditID
	}

	updated, err := s.repo.UpdateAITask(ctx, task.ID, updates)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"provider": task.Provider,
		"status":   status,
		"urls":     len(urls),
	}).Info("ai_task_updated")
	return &TaskUpdate{Task: updated, URLs: urls, Previous: task.Status}, nil
}

// FailTask 将任务标记为失败并退款，用于服务商提交失败等场景。
func (s *TaskService) FailTask(ctx context.Context, id, reason string) (*entity.DbAITask, error) {
	result, err := s.ApplyProviderUpdate(ctx, id, ProviderUpdate{
		Status: string(entity.AITaskFailed),
		Error:  reason,
	})
	if err != nil {
		return nil, err
	}
	return result.Task, nil
}

// HandleCallback 按服务商任务 ID 定位任务并应用回调内容。
func (s *TaskService) HandleCallback(ctx context.Context, provider string, payload []byte) (*TaskUpdate, error) {
	taskID := extractor.ProviderTaskID(payload)
	if taskID == "" {
		return nil, fmt.Errorf("%w: callback without task id", ErrTaskNotFound)
	}
	task, err := s.repo.GetAITaskByTaskID(ctx, provider, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return s.ApplyProviderUpdate(ctx, task.ID, ProviderUpdate{
		Status:     extractor.ProviderStatus(payload),
		TaskResult: payload,
		Error:      extractor.ProviderError(payload),
	})
}

// GetTask 返回任务详情。非管理员只能查看自己的任务，否则视为不存在。
func (s *TaskService) GetTask(ctx context.Context, viewer Viewer, id string) (dto.AITaskItem, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return dto.AITaskItem{}, err
	}
	if !viewer.Admin && task.UserID != viewer.UserID {
		return dto.AITaskItem{}, ErrTaskNotFound
	}
	return converter.AITaskToItem(task, s.TaskURLs(task)), nil
}

// History 返回用户最近的任务及其媒体地址。
func (s *TaskService) History(ctx context.Context, viewer Viewer, query dto.AITaskQuery) (*dto.AITaskListResponse, error) {
	query.UserID = viewer.UserID
	query.IncludeAll = viewer.Admin && query.IncludeAll
	if !query.IncludeAll && strings.TrimSpace(query.UserID) == "" {
		return nil, ErrUnauthenticated
	}

	tasks, meta, err := s.repo.ListAITasks(ctx, &query)
	if err != nil {
		return nil, err
	}
	items := make([]dto.AITaskItem, 0, len(tasks))
	for i := range tasks {
		items = append(items, converter.AITaskToItem(&tasks[i], s.TaskURLs(&tasks[i])))
	}
	return &dto.AITaskListResponse{Tasks: items, Meta: meta}, nil
}

// TaskURLs 返回任务的媒体地址：优先使用已写入结果文档的 imageUrls，
// 否则从原始载荷中提取。
func (s *TaskService) TaskURLs(task *entity.DbAITask) []string {
	if task == nil {
		return []string{}
	}
	if urls := storedResultURLs(task.TaskResult); len(urls) > 0 {
		return urls
	}
	return s.extractor.Extract(extractor.Source{
		Provider:   task.Provider,
		TaskResult: task.TaskResult,
		TaskInfo:   task.TaskInfo,
		RawData:    task.RawData,
	})
}

func (s *TaskService) loadTask(ctx context.Context, id string) (*entity.DbAITask, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrTaskNotFound
	}
	task, err := s.repo.GetAITask(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}
