package app

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Gin_postgres_redis_library/config"
	"Gin_postgres_redis_library/db"
	"Gin_postgres_redis_library/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func init() { gin.SetMode(gin.TestMode) }

func testConfig() config.Config {
	return config.Config{
		Env:              "test",
		JWTSecret:        "test-secret",
		TokenTTL:         time.Hour,
		WebOrigin:        "http://localhost:5173",
		FinePerDay:       db.DefaultFinePerDay,
		LoginMaxAttempts: 3,
		LoginWindow:      time.Minute,
	}
}

func newTestApp(t *testing.T) (*App, *miniredis.Miniredis) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000&_foreign_keys=1", uuid.NewString())
	gdb, err := db.Connect(sqlite.Open(dsn), db.Pool{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	reports, err := db.ReporterFor(gdb)
	require.NoError(t, err)

	a := NewWith(testConfig(), gdb, rdb, reports)
	a.closers = append(a.closers, rdb.Close, func() error { return db.Close(gdb) })
	t.Cleanup(a.Close)
	return a, mr
}

// login 直接建会话并签 token
func login(t *testing.T, a *App, u *models.User) string {
	t.Helper()
	sid := uuid.NewString()
	_, err := a.AppSessions().Create(t.Context(), sid, u.Registration, u.Role)
	require.NoError(t, err)
	tok, _, err := a.Tokens.Issue(sid, u)
	require.NoError(t, err)
	return tok
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
