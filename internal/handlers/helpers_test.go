// helpers_test.go
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"go_flashcard_study/internal/config"
	"go_flashcard_study/internal/handlers"
	"go_flashcard_study/internal/model"
	"go_flashcard_study/internal/repository"
	"go_flashcard_study/internal/service"
	"go_flashcard_study/internal/srs"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// httpRequestDetails はHTTPリクエストの送信に必要な情報をまとめます。
type httpRequestDetails struct {
	Method  string
	Path    string
	Body    interface{}
	Token   string
	Headers map[string]string
}

// recordingMailer は送信されたメールを保持します。
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	To, Subject, Body string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail was sent")
	return m.sent[len(m.sent)-1]
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// testApp は実DB (インメモリ SQLite) で組み立てたAPIサーバーです。
type testApp struct {
	server   *httptest.Server
	db       *gorm.DB
	cfg      *config.Config
	auth     service.AuthService
	userRepo repository.UserRepository
	mailer   *recordingMailer
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:            "FlashcardStudyTest",
			FrontendURL:     "http://localhost:3000",
			ReviewLimit:     20,
			MaxTextLength:   500,
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{
			SecretKey:      "handler-test-secret",
			AccessTokenTTL: 15 * time.Minute,
		},
		Auth: config.AuthConfig{Enabled: true},
		Study: config.StudyConfig{
			SessionIdleTimeout: 30 * time.Minute,
			CleanupInterval:    5 * time.Minute,
		},
	}
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := testConfig()

	db, err := repository.NewDB(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		URL:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, testLogger)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	scheduler, err := srs.NewScheduler(srs.DefaultParams())
	require.NoError(t, err)

	userRepo := repository.NewGormUserRepository()
	cardRepo := repository.NewGormFlashcardRepository()
	sessionRepo := repository.NewGormStudySessionRepository()
	tokenRepo := repository.NewGormTokenRepository()
	mailer := &recordingMailer{}

	reviewer := service.NewCardReviewer(scheduler, cardRepo)
	svc := handlers.Services{
		Auth:       service.NewAuthService(db, userRepo, tokenRepo, mailer, cfg),
		Flashcards: service.NewFlashcardService(db, cardRepo, reviewer, cfg.App),
		Study:      service.NewStudyService(db, cardRepo, sessionRepo, reviewer, cfg),
		Admin:      service.NewAdminService(db, userRepo, cardRepo, sessionRepo, tokenRepo),
	}

	server := httptest.NewServer(handlers.NewRouter(cfg, db, svc, testLogger))
	t.Cleanup(func() {
		server.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &testApp{
		server:   server,
		db:       db,
		cfg:      cfg,
		auth:     svc.Auth,
		userRepo: userRepo,
		mailer:   mailer,
	}
}

// sendRequest はHTTPリクエストを送信し、ステータスコードを検証してボディを返します。
func (a *testApp) sendRequest(t *testing.T, details httpRequestDetails, expectedCode int) []byte {
	t.Helper()

	var reqBodyReader io.Reader
	if details.Body != nil {
		if strPayload, ok := details.Body.(string); ok {
			reqBodyReader = strings.NewReader(strPayload)
		} else {
			reqBodyBytes, err := json.Marshal(details.Body)
			require.NoError(t, err, "Failed to marshal request body")
			reqBodyReader = bytes.NewBuffer(reqBodyBytes)
		}
	}

	req, err := http.NewRequest(details.Method, a.server.URL+details.Path, reqBodyReader)
	require.NoError(t, err, "Failed to create request")
	if reqBodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if details.Token != "" {
		req.Header.Set("Authorization", "Bearer "+details.Token)
	}
	for key, value := range details.Headers {
		req.Header.Set(key, value)
	}

	return a.do(t, req, expectedCode)
}

func (a *testApp) do(t *testing.T, req *http.Request, expectedCode int) []byte {
	t.Helper()
	resp, err := a.server.Client().Do(req)
	require.NoError(t, err, "Failed to execute request")
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "Failed to read response body")
	assert.Equal(t, expectedCode, resp.StatusCode, "Status code mismatch: %s", string(respBodyBytes))
	return respBodyBytes
}

// uploadWorkbook は multipart/form-data でファイルを送信します。
func (a *testApp) uploadWorkbook(t *testing.T, token string, field string, content []byte, expectedCode int) []byte {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "cards.xlsx")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/cards/import", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return a.do(t, req, expectedCode)
}

// decodeJSON はレスポンスボディを v にデコードします。
func decodeJSON(t *testing.T, body []byte, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, v), "Failed to unmarshal response: %s", string(body))
}

// verifyErrorResponse はエラーレスポンスのコードとメッセージを検証します。
func verifyErrorResponse(t *testing.T, body []byte, expectedCode, expectedMsgPart string) {
	t.Helper()
	var errResp model.APIErrorResponse
	decodeJSON(t, body, &errResp)
	if expectedCode != "" {
		assert.Equal(t, expectedCode, errResp.Error.Code)
	}
	if expectedMsgPart != "" {
		assert.Contains(t, strings.ToLower(errResp.Error.Message), strings.ToLower(expectedMsgPart))
	}
}

// register はユーザーを登録してトークンを返します
func (a *testApp) register(t *testing.T, username string) (string, *model.User) {
	t.Helper()
	body := a.sendRequest(t, httpRequestDetails{
		Method: http.MethodPost,
		Path:   "/api/auth/register",
		Body: model.RegisterRequest{
			Username: username,
			Email:    username + "@example.com",
			Password: "password123",
		},
	}, http.StatusCreated)

	var resp model.AuthResponse
	decodeJSON(t, body, &resp)
	require.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)
	return resp.Token, resp.User
}

// createAdmin は管理者を直接DBに作成してトークンを発行します
func (a *testApp) createAdmin(t *testing.T, username string) (string, *model.User) {
	t.Helper()
	hash, err := service.HashPassword("password123")
	require.NoError(t, err)
	admin := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	require.NoError(t, a.userRepo.Create(context.Background(), a.db, admin))
	token, err := a.auth.IssueToken(admin)
	require.NoError(t, err)
	return token, admin
}

// createCard はカードを作成して返します
func (a *testApp) createCard(t *testing.T, token, english, spanish string) *model.Flashcard {
	t.Helper()
	body := a.sendRequest(t, httpRequestDetails{
		Method: http.MethodPost,
		Path:   "/api/cards",
		Token:  token,
		Body:   model.CreateFlashcardRequest{English: english, Spanish: spanish},
	}, http.StatusCreated)
	var card model.Flashcard
	decodeJSON(t, body, &card)
	return &card
}

// review は評価を送り、更新後のカードを返します
func (a *testApp) review(t *testing.T, token string, cardID uuid.UUID, rating int) *model.Flashcard {
	t.Helper()
	body := a.sendRequest(t, httpRequestDetails{
		Method: http.MethodPost,
		Path:   "/api/cards/" + cardID.String() + "/review",
		Token:  token,
		Body:   map[string]int{"performanceRating": rating},
	}, http.StatusOK)
	var card model.Flashcard
	decodeJSON(t, body, &card)
	return &card
}

var resetTokenPattern = regexp.MustCompile(`token=([0-9a-f]+)`)

func extractResetToken(t *testing.T, body string) string {
	t.Helper()
	m := resetTokenPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "reset token not found in mail body: %s", body)
	return m[1]
}
