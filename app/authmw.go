package app

import (
	"errors"
	"net/http"
	"strings"

	"Gin_postgres_redis_library/models"
	"Gin_postgres_redis_library/session"

	"github.com/gin-gonic/gin"
)

// AppSessionCookie 浏览器端也可以用 Cookie 携带同一个 token
const AppSessionCookie = "app_session"

const (
	ctxPrincipal = "principal"
	ctxSessionID = "sessionID"
)

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if ck, err := c.Request.Cookie(AppSessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

var (
	errNoToken      = errors.New("unauthorized")
	errBadToken     = errors.New("invalid token")
	errNoAppSession = errors.New("invalid session")
)

// authenticate 校验 JWT，并确认 jti 对应的会话还在 Redis 里
func authenticate(c *gin.Context, tokens *TokenIssuer, appSess *session.AppSessionStore) (models.Principal, string, error) {
	raw := bearerToken(c)
	if raw == "" {
		return models.Principal{}, "", errNoToken
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return models.Principal{}, "", errBadToken
	}
	as, err := appSess.Get(c.Request.Context(), claims.ID)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			Logger(c).Error("session lookup failed", "error", err)
		}
		return models.Principal{}, "", errNoAppSession
	}
	// 角色以会话里的为准
	return models.Principal{Registration: as.Registration, Role: as.Role}, claims.ID, nil
}

func AuthRequired(tokens *TokenIssuer, appSess *session.AppSessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, sid, err := authenticate(c, tokens, appSess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": err.Error()})
			return
		}
		c.Set(ctxPrincipal, p)
		c.Set(ctxSessionID, sid)
		c.Next()
	}
}

// OptionalAuth 带了有效 token 就挂上身份，否则按匿名放行
func OptionalAuth(tokens *TokenIssuer, appSess *session.AppSessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, sid, err := authenticate(c, tokens, appSess); err == nil {
			c.Set(ctxPrincipal, p)
			c.Set(ctxSessionID, sid)
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !p.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

func SessionIDFrom(c *gin.Context) string { return c.GetString(ctxSessionID) }
