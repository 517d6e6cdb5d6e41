// controllers/srv.go
package controllers

import (
	"net/http"
	"strings"
	"time"

	"Gin_postgres_redis_library/app"
	"Gin_postgres_redis_library/db"
	"Gin_postgres_redis_library/session"
)

// Srv handlers 共用的依赖
type Srv struct {
	Repo      *db.Repo
	Reports   *db.Reporter
	AppSess   *session.AppSessionStore
	Tokens    *app.TokenIssuer
	WebOrigin string
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:      a.Repo,
		Reports:   a.Reports,
		AppSess:   a.AppSessions(),
		Tokens:    a.Tokens,
		WebOrigin: a.Config.WebOrigin,
	}
}

// --- helpers ---

// 统一设置业务会话 Cookie（内容就是 access token）
func (s *Srv) setAppCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}
