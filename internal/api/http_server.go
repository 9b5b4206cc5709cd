package api

import (
	"aistudio/internal/auth"
	"aistudio/internal/config"
	"aistudio/internal/model"
	"aistudio/internal/service"
	"aistudio/internal/storage"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Services 汇总 HTTP 层依赖的服务。
type Services struct {
	Tasks    *service.TaskService
	Credits  *service.CreditService
	Overview *service.OverviewService
	Pricing  *service.Pricing
}

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg               config.Config
	repo              model.Repository
	storage           storage.Storage
	storagePublicBase string
	authManager       *auth.Manager

	// 服务层
	tasks    *service.TaskService
	credits  *service.CreditService
	overview *service.OverviewService
	pricing  *service.Pricing

	// SSE 客户端管理，按用户 ID 分组
	sseClients map[string][]chan sseMessage
	sseMu      sync.Mutex
}

// NewHTTPHandler 创建 HTTP 处理器实例。svc 中为空的服务按 repo 构造默认实现。
func NewHTTPHandler(cfg config.Config, repo model.Repository, store storage.Storage, svc Services) (*HTTPHandler, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	expiry := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}

	if svc.Pricing == nil {
		svc.Pricing = service.NewPricing(repo)
	}
	if svc.Tasks == nil {
		svc.Tasks = service.NewTaskService(repo, svc.Pricing, nil, nil)
	}
	if svc.Credits == nil {
		svc.Credits = service.NewCreditService(repo)
	}
	if svc.Overview == nil {
		svc.Overview = service.NewOverviewService(repo, svc.Tasks, svc.Credits)
	}

	return &HTTPHandler{
		cfg:               cfg,
		repo:              repo,
		storage:           store,
		storagePublicBase: normalisePublicBase(cfg.StoragePublicBaseURL),
		authManager:       authManager,
		tasks:             svc.Tasks,
		credits:           svc.Credits,
		overview:          svc.Overview,
		pricing:           svc.Pricing,
		sseClients:        make(map[string][]chan sseMessage),
	}, nil
}

// RegisterRoutes 挂载全部 API 路由。
func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.GET("/status", h.AuthStatus)
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.GET("/me", h.AuthMiddleware(), h.Me)

	public := apiGroup.Group("")
	public.Use(h.OptionalAuth())
	public.GET("/credits/balance", h.GetBalance)
	public.GET("/ai/models", h.ListModels)

	// 服务商回调不携带用户凭证，任务通过 ID 定位
	apiGroup.POST("/ai/tasks/:id/status", h.UpdateTaskStatus)
	apiGroup.POST("/ai/callback/:provider", h.ProviderCallback)

	protected := apiGroup.Group("")
	protected.Use(h.AuthMiddleware())
	protected.POST("/ai/generate", h.Generate)
	protected.GET("/ai/tasks/:id", h.GetTask)
	protected.GET("/ai/history", h.History)
	protected.GET("/ai/events", h.StreamTaskEvents)
	protected.GET("/credits", h.ListCredits)

	admin := protected.Group("/admin")
	admin.Use(h.RequireAdmin())
	admin.GET("/overview", h.AdminOverview)
	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.PATCH("/users/:id", h.UpdateUser)
	admin.DELETE("/users/:id", h.DeleteUser)
	admin.POST("/credits", h.GrantCredits)
	admin.POST("/credits/:id/refund", h.RefundCredit)
	admin.GET("/models", h.AdminListModels)
	admin.POST("/models", h.CreateModel)
	admin.PATCH("/models/:id", h.UpdateModel)
}

// normalisePublicBase 规范化公共 URL 基础路径
func normalisePublicBase(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = "/files"
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return strings.TrimRight(trimmed, "/")
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}
