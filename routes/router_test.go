package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/linklet/linklet/config"
	"github.com/linklet/linklet/models"
	"github.com/linklet/linklet/utils"
)

// fakeMailer records enqueued messages instead of sending them.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (f *fakeMailer) Enqueue(to, subject, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	mailer *fakeMailer
}

// newTestEnv builds a router backed by an in-memory sqlite database and a
// fake mailer. Throttles are disabled unless a test overrides the config
// again.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	config.Override(config.AppConfig{
		GinMode:              "test",
		JWTSecret:            "test-secret",
		ResendCooldownSec:    -1,
		ResendMaxPerDay:      -1,
		RateLimitPerMinute:   100000,
		CreateLimitPerMinute: -1,
	})
	utils.ResetThrottles()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection so every query sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.PendingUser{},
		&models.RefreshToken{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.CommentLike{},
		&models.Message{},
		&models.JobListing{},
	))

	mailer := &fakeMailer{}
	return &testEnv{
		router: SetupRouter(db, mailer),
		db:     db,
		mailer: mailer,
	}
}

// doJSON performs a request with an optional JSON body and session cookies.
func (e *testEnv) doJSON(t *testing.T, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// decode unmarshals a recorded JSON response body.
func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// signup stages an account and returns the pending verification code.
func (e *testEnv) signup(t *testing.T, username, email string) string {
	t.Helper()

	w := e.doJSON(t, http.MethodPost, "/api/auth/create-account", map[string]string{
		"username":     username,
		"display_name": "User " + username,
		"email":        email,
		"password":     "hunter22",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var pending models.PendingUser
	require.NoError(t, e.db.Where("email = ?", email).First(&pending).Error)
	return pending.Code
}

// verifiedUser completes signup + verification and returns the session cookies.
func (e *testEnv) verifiedUser(t *testing.T, username, email string) []*http.Cookie {
	t.Helper()

	code := e.signup(t, username, email)
	w := e.doJSON(t, http.MethodPost, "/api/auth/verify-code", map[string]string{
		"email": email,
		"code":  code,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func (e *testEnv) userID(t *testing.T, username string) uint {
	t.Helper()
	var user models.User
	require.NoError(t, e.db.Where("username = ?", username).First(&user).Error)
	return user.ID
}
