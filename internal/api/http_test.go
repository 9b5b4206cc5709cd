package api

import (
	"aistudio/internal/auth"
	"aistudio/internal/config"
	"aistudio/internal/entity"
	"aistudio/internal/entity/dto"
	"aistudio/internal/model"
	sqlrepo "aistudio/internal/model/sql"
	"aistudio/internal/storage"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const kieCallbackPayload = `{"code":200,"data":{"taskId":"kie-1","state":"success","resultJson":"{\"resultUrls\":[\"https://tempfile.aiquickdraw.com/a.png\",\"https://tempfile.aiquickdraw.com/a.png\"]}"}}`

type testServer struct {
	handler *HTTPHandler
	router  *gin.Engine
	repo    *sqlrepo.GormRepository
	auth    *auth.Manager
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:              "test-secret",
		JWTIssuer:              "aistudio",
		JWTExpirationMinutes:   60,
		RegistrationOpen:       true,
		SessionLookupTimeoutMS: 500,
		StoragePublicBaseURL:   "/files",
	}
}

func newTestRepository(t *testing.T) *sqlrepo.GormRepository {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, sqlrepo.AutoMigrate(db))
	return sqlrepo.NewGormRepository(db)
}

func newTestServer(t *testing.T, cfg config.Config, repo model.Repository) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewLocalStorage(t.TempDir(), cfg.StoragePublicBaseURL)
	require.NoError(t, err)

	handler, err := NewHTTPHandler(cfg, repo, store, Services{})
	require.NoError(t, err)

	manager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, time.Hour)
	require.NoError(t, err)

	router := gin.New()
	handler.RegisterRoutes(router)

	srv := &testServer{handler: handler, router: router, auth: manager}
	if gormRepo, ok := repo.(*sqlrepo.GormRepository); ok {
		srv.repo = gormRepo
	}
	return srv
}

func (s *testServer) createUser(t *testing.T, email, role string) (*entity.DbUser, string) {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user := &entity.DbUser{Email: email, PasswordHash: hash, Role: role, IsActive: true}
	require.NoError(t, s.repo.CreateUser(context.Background(), user))
	token, _, err := s.auth.GenerateToken(user)
	require.NoError(t, err)
	return user, token
}

func (s *testServer) grant(t *testing.T, userID string, credits int64) *entity.DbCredit {
	t.Helper()
	credit := &entity.DbCredit{
		UserID:           userID,
		Credits:          credits,
		TransactionScene: entity.CreditSceneGift,
		CreatedAt:        time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, s.repo.GrantCredits(context.Background(), credit))
	return credit
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func generateBody() gin.H {
	return gin.H{
		"media_type": "image",
		"provider":   "kie",
		"model":      "gpt4o-image",
		"prompt":     "a lighthouse at dusk",
		"task_id":    "kie-1",
	}
}

func TestRegisterFirstUserGetsSignupCredits(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultSignupCredits = 10
	srv := newTestServer(t, cfg, newTestRepository(t))

	w := srv.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "Owner@Example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[dto.AuthResponse](t, w)
	require.Equal(t, entity.UserRoleSuperAdmin, resp.User.Role)
	require.Equal(t, "owner@example.com", resp.User.Email)
	require.Equal(t, int64(10), resp.Credits)

	w = srv.do(t, http.MethodGet, "/api/credits/balance", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	balance := decode[dto.BalanceResponse](t, w)
	require.True(t, balance.Authenticated)
	require.Equal(t, int64(10), balance.RemainingCredits)

	w = srv.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "member@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, entity.UserRoleUser, decode[dto.AuthResponse](t, w).User.Role)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestRepository(t))

	w := srv.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "owner@example.com",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, ErrCodeWeakPassword, decode[APIError](t, w).Code)

	w = srv.do(t, http.MethodGet, "/api/auth/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[dto.AuthStatusResponse](t, w)
	require.False(t, status.HasUser)
	require.True(t, status.RegistrationOpen)
}

func TestRegisterClosedAfterFirstUser(t *testing.T) {
	cfg := testConfig()
	cfg.RegistrationOpen = false
	srv := newTestServer(t, cfg, newTestRepository(t))
	srv.createUser(t, "owner@example.com", entity.UserRoleSuperAdmin)

	w := srv.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "late@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, ErrCodeRegistrationClosed, decode[APIError](t, w).Code)
}

func TestBalanceAnonymousIsZero(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestRepository(t))

	for _, token := range []string{"", "not-a-jwt"} {
		w := srv.do(t, http.MethodGet, "/api/credits/balance", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		balance := decode[dto.BalanceResponse](t, w)
		require.False(t, balance.Authenticated)
		require.Zero(t, balance.RemainingCredits)
	}
}

// slowUserRepo 模拟用户查询一直挂起。
type slowUserRepo struct {
	model.Repository
}

func (r slowUserRepo) GetUserByID(ctx context.Context, id string) (*entity.DbUser, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestBalanceSessionLookupTimeoutIsAnonymous(t *testing.T) {
	repo := newTestRepository(t)
	cfg := testConfig()
	cfg.SessionLookupTimeoutMS = 50

	seed := newTestServer(t, cfg, repo)
	user, token := seed.createUser(t, "slow@example.com", entity.UserRoleUser)
	seed.grant(t, user.ID, 7)

	srv := newTestServer(t, cfg, slowUserRepo{Repository: repo})
	start := time.Now()
	w := srv.do(t, http.MethodGet, "/api/credits/balance", token, nil)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, http.StatusOK, w.Code)
	balance := decode[dto.BalanceResponse](t, w)
	require.False(t, balance.Authenticated)
	require.Zero(t, balance.RemainingCredits)
}

func TestGenerateChargesAndFailedUpdateRefunds(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestRepository(t))
	user, token := srv.createUser(t, "maker@example.com", entity.UserRoleUser)
	srv.grant(t, user.ID, 20)

	w := srv.do(t, http.MethodPost, "/api/ai/generate", token, generateBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.GenerateResponse](t, w)
	require.Equal(t, int64(12), created.RemainingCredits)
	require.Equal(t, int64(8), created.Task.CostCredits)
	require.NotEmpty(t, created.Task.CreditID)

	w = srv.do(t, http.MethodPost, "/api/ai/tasks/"+created.Task.ID+"/status", "", gin.H{
		"status": "failed",
		"error":  "content policy",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, string(entity.AITaskFailed), decode[dto.AITaskItem](t, w).Status)

	w = srv.do(t, http.MethodGet, "/api/credits/balance", token, nil)
	require.Equal(t, int64(20), decode[dto.BalanceResponse](t, w).RemainingCredits)

	// 终态任务再次回调不会重复退款
	w = srv.do(t, http.MethodPost, "/api/ai/tasks/"+created.Task.ID+"/status", "", gin.H{"status": "failed"})
	require.Equal(t, http.StatusOK, w.Code)
	w = srv.do(t, http.MethodGet, "/api/credits/balance", token, nil)
	require.Equal(t, int64(20), decode[dto.BalanceResponse](t, w).RemainingCredits)
}

func TestGenerateInsufficientCredits(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestRepository(t))
	user, token := srv.createUser(t, "poor@example.com", entity.UserRoleUser)
	srv.grant(t, user.ID, 3)

	w := srv.do(t, http.MethodPost, "/api/ai/generate", token, generateBody())
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	apiErr := decode[APIError](t, w)
	require.Equal(t, ErrCodeInsufficientCredits, apiErr.Code)

	w = srv.do(t, http.MethodGet, "/api/credits/balance", token, nil)
	require.Equal(t, int64(3), decode[dto.BalanceResponse](t, w).RemainingCredits)
}

func TestGenerateRequiresLogin(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestRepository(t))
	w := srv.do(t, http.MethodPost, "/api/ai/generate", "", generateBody())
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCallbackSecret(t *testing.T) {
	cfg := testConfig()
	cfg.CallbackSecret = "s3cret"
	srv := newTestServer(t, cfg, newTestRepository(t))

	w := srv.do(t, http.MethodPost, "/api/ai/tasks/missing/status", "", gin.H{"status": "success"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(t, http.MethodPost, "/api/ai/tasks/missing/status?token=s3cret", "", gin.H{"status": "success"})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, ErrCodeTaskNotFound, decode[APIError](t, w).Code)
}

func TestProviderCallbackStoresResult(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestRepository(t))
	user, token := srv.createUser(t, "maker@example.com", entity.UserRoleUser)
	srv.grant(t, user.ID, 20)

	w := srv.do(t, http.MethodPost, "/api/ai/generate", token, generateBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	taskID := decode[dto.GenerateResponse](t, w).Task.ID

	events := make(chan sseMessage, 1)
	srv.handler.registerSSEClient(user.ID, events)
	defer srv.handler.unregisterSSEClient(user.ID, events)

	w = srv.do(t, http.MethodPost, "/api/ai/callback/kie", "", kieCallbackPayload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	select {
	case msg := <-events:
		require.Equal(t, taskEventName, msg.event)
	default:
		t.Fatal("expected task event")
	}

	// 重放的回调不再推送
	w = srv.do(t, http.MethodPost, "/api/ai/callback/kie", "", kieCallbackPayload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Empty(t, events)

	w = srv.do(t, http.MethodGet, "/api/ai/tasks/"+taskID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	item := decode[dto.AITaskItem](t, w)
	require.Equal(t, string(entity.AITaskSuccess), item.Status)
	require.Equal(t, []string{"https://tempfile.aiquickdraw.com/a.png"}, item.URLs)
	require.Equal(t, item.URLs[0], item.MainURL)

	w = srv.do(t, http.MethodGet, "/api/ai/history?limit=5", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[dto.AITaskListResponse](t, w)
	require.Len(t, history.Tasks, 1)
	require.Equal(t, item.URLs, history.Tasks[0].URLs)

	w = srv.do(t, http.MethodGet, "/api/credits/balance", token, nil)
	require.Equal(t, int64(12), decode[dto.BalanceResponse](t, w).RemainingCredits)
}

func TestProviderCallbackUnknownTask(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestRepository(t))
	w := srv.do(t, http.MethodPost, "/api/ai/callback/kie", "", kieCallbackPayload)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTaskOwnership(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestRepository(t))
	owner, ownerToken := srv.createUser(t, "owner@example.com", entity.UserRoleUser)
	_, otherToken := srv.createUser(t, "other@example.com", entity.UserRoleUser)
	_, adminToken := srv.createUser(t, "admin@example.com", entity.UserRoleAdmin)
	srv.grant(t, owner.ID, 20)

	w := srv.do(t, http.MethodPost, "/api/ai/generate", ownerToken, generateBody())
	require.Equal(t, http.StatusCreated, w.Code)
	taskID := decode[dto.GenerateResponse](t, w).Task.ID

	w = srv.do(t, http.MethodGet, "/api/ai/tasks/"+taskID, otherToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodGet, "/api/ai/tasks/"+taskID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodGet, "/api/ai/history", otherToken, nil)
	require.Empty(t, decode[dto.AITaskListResponse](t, w).Tasks)

	w = srv.do(t, http.MethodGet, "/api/ai/history?all=true", adminToken, nil)
	require.Len(t, decode[dto.AITaskListResponse](t, w).Tasks, 1)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestRepository(t))
	_, userToken := srv.createUser(t, "user@example.com", entity.UserRoleUser)
	_, adminToken := srv.createUser(t, "admin@example.com", entity.UserRoleAdmin)

	w := srv.do(t, http.MethodGet, "/api/admin/overview", userToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodGet, "/api/admin/overview?days=30", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	overview := decode[dto.AdminOverview](t, w)
	require.Equal(t, 30, overview.Days)
	require.Equal(t, int64(2), overview.TotalUsers)
}

func TestAdminGrantAndRefund(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestRepository(t))
	user, userToken := srv.createUser(t, "user@example.com", entity.UserRoleUser)
	_, adminToken := srv.createUser(t, "admin@example.com", entity.UserRoleAdmin)

	w := srv.do(t, http.MethodPost, "/api/admin/credits", adminToken, gin.H{
		"user_id": user.ID,
		"credits": 5,
		"scene":   entity.CreditSceneAward,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	granted := decode[dto.CreditItem](t, w)
	require.Equal(t, int64(5), granted.RemainingCredits)

	w = srv.do(t, http.MethodPost, "/api/admin/credits", adminToken, gin.H{"user_id": "ghost", "credits": 5})
	require.Equal(t, http.StatusNotFound, w.Code)

	entry, err := srv.repo.ConsumeCredits(context.Background(), entity.ConsumeCreditsRequest{UserID: user.ID, Credits: 3})
	require.NoError(t, err)

	w = srv.do(t, http.MethodPost, "/api/admin/credits/"+entry.ID+"/refund", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, decode[dto.RefundResponse](t, w).Refunded)

	w = srv.do(t, http.MethodPost, "/api/admin/credits/"+entry.ID+"/refund", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, decode[dto.RefundResponse](t, w).Refunded)

	w = srv.do(t, http.MethodPost, "/api/admin/credits/"+granted.ID+"/refund", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, ErrCodeNotConsumption, decode[APIError](t, w).Code)

	w = srv.do(t, http.MethodGet, "/api/credits", userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[dto.CreditListResponse](t, w).Credits, 2)

	w = srv.do(t, http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, summary := range decode[dto.UserListResponse](t, w).Users {
		require.NotNil(t, summary.Credits)
		if summary.ID == user.ID {
			require.Equal(t, int64(5), *summary.Credits)
		}
	}
}

func TestAdminModelPriceUpdateAppliesToNextCharge(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestRepository(t))
	require.NoError(t, model.SeedDefaultModelPrices(context.Background(), srv.repo))
	user, userToken := srv.createUser(t, "user@example.com", entity.UserRoleUser)
	_, adminToken := srv.createUser(t, "admin@example.com", entity.UserRoleAdmin)
	srv.grant(t, user.ID, 20)

	// 预热价格缓存
	w := srv.do(t, http.MethodGet, "/api/ai/models?media_type=video", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, item := range decode[dto.ModelPriceListResponse](t, w).Models {
		require.Equal(t, "video", item.MediaType)
	}

	w = srv.do(t, http.MethodPatch, "/api/admin/models/gpt4o-image", adminToken, gin.H{"text_credits": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, int64(1), decode[dto.ModelPriceItem](t, w).TextCredits)

	w = srv.do(t, http.MethodPost, "/api/ai/generate", userToken, generateBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, int64(19), decode[dto.GenerateResponse](t, w).RemainingCredits)

	w = srv.do(t, http.MethodPatch, "/api/admin/models/unknown-model", adminToken, gin.H{"text_credits": 1})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodPost, "/api/admin/models", adminToken, gin.H{
		"model_id":      "Sora-3",
		"media_type":    "video",
		"text_credits":  30,
		"image_credits": 30,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.ModelPriceItem](t, w)
	require.Equal(t, "sora-3", created.ModelID)
	require.Equal(t, "video", created.MediaType)

	w = srv.do(t, http.MethodPost, "/api/admin/models", adminToken, gin.H{"model_id": "sora-3", "media_type": "video"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, ErrCodeModelExists, decode[APIError](t, w).Code)
}

func TestNotifyTaskUpdatedSkipsNonTerminal(t *testing.T) {
	h := &HTTPHandler{sseClients: make(map[string][]chan sseMessage)}
	ch := make(chan sseMessage, 2)
	h.registerSSEClient("user-1", ch)

	h.notifyTaskUpdated(&entity.DbAITask{ID: "t1", UserID: "user-1", Status: entity.AITaskProcessing}, nil)
	h.notifyTaskUpdated(&entity.DbAITask{ID: "t1", UserID: "user-1", Status: entity.AITaskSuccess}, []string{"https://cdn.example.com/a.png"})

	if len(ch) != 1 {
		t.Fatalf("expected one event, got %d", len(ch))
	}
	msg := <-ch
	payload, ok := msg.data.(gin.H)
	if !ok || payload["status"] != "success" {
		t.Fatalf("unexpected payload: %#v", msg.data)
	}

	h.unregisterSSEClient("user-1", ch)
	if _, ok := h.sseClients["user-1"]; ok {
		t.Fatal("expected client list to be removed")
	}
}

func TestAdminUserManagement(t *testing.T) {
	srv := newTestServer(t, testConfig(), newTestRepository(t))
	owner, ownerToken := srv.createUser(t, "owner@example.com", entity.UserRoleSuperAdmin)
	admin, adminToken := srv.createUser(t, "admin@example.com", entity.UserRoleAdmin)

	w := srv.do(t, http.MethodPost, "/api/admin/users", adminToken, gin.H{
		"email":           "New@Example.com",
		"password":        "password123",
		"role":            entity.UserRoleUser,
		"initial_credits": 15,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.UserSummary](t, w)
	require.Equal(t, "new@example.com", created.Email)
	require.NotNil(t, created.Credits)
	require.Equal(t, int64(15), *created.Credits)

	w = srv.do(t, http.MethodPost, "/api/admin/users", adminToken, gin.H{
		"email": "other@example.com", "password": "password123", "role": entity.UserRoleAdmin,
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodPost, "/api/admin/users", ownerToken, gin.H{
		"email": "new@example.com", "password": "password123", "role": entity.UserRoleUser,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, ErrCodeEmailExists, decode[APIError](t, w).Code)

	w = srv.do(t, http.MethodPatch, "/api/admin/users/"+created.ID, adminToken, gin.H{"password": "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, ErrCodeWeakPassword, decode[APIError](t, w).Code)

	w = srv.do(t, http.MethodPatch, "/api/admin/users/"+created.ID, adminToken, gin.H{"is_active": false, "display_name": " New "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[dto.UserSummary](t, w)
	require.False(t, updated.IsActive)
	require.Equal(t, "New", updated.DisplayName)

	w = srv.do(t, http.MethodPatch, "/api/admin/users/"+owner.ID, adminToken, gin.H{"display_name": "x"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodDelete, "/api/admin/users/"+admin.ID, adminToken, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, ErrCodeCannotDeleteSelf, decode[APIError](t, w).Code)

	w = srv.do(t, http.MethodDelete, "/api/admin/users/"+created.ID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = srv.do(t, http.MethodDelete, "/api/admin/users/"+created.ID, adminToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, ErrCodeUserNotFound, decode[APIError](t, w).Code)
}
