package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"Gin_postgres_redis_library/app"
	"Gin_postgres_redis_library/db"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type registerReq struct {
	Registration string `json:"registration" binding:"required,max=50"`
	Name         string `json:"name" binding:"required,max=255"`
	NationalID   string `json:"national_id" binding:"required,max=20"`
	Email        string `json:"email" binding:"required,email"`
	Address      string `json:"address" binding:"max=255"`
	Phone        string `json:"phone" binding:"max=20"`
	Role         string `json:"role" binding:"omitempty,oneof=admin user"`
	Password     string `json:"password" binding:"required,min=6"`
}

// POST /users/register；role=admin 需要管理员 token
func (s *Srv) Register(c *gin.Context) {
	var req registerReq
	if !bindJSON(c, &req) {
		return
	}
	p, _ := app.PrincipalFrom(c)
	u, err := s.Repo.RegisterUser(c.Request.Context(), p, db.RegisterUserInput{
		Registration: req.Registration,
		Name:         req.Name,
		NationalID:   req.NationalID,
		Email:        req.Email,
		Address:      req.Address,
		Phone:        req.Phone,
		Role:         req.Role,
		Password:     req.Password,
	})
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"message": "user registered", "registration": u.Registration})
}

type loginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /users/login
func (s *Srv) Login(c *gin.Context) {
	var req loginReq
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	u, err := s.Repo.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			// 登录场景下不是 404
			c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
			return
		}
		app.Fail(c, err)
		return
	}
	_ = s.AppSess.ResetLogin(ctx, c.ClientIP())

	// 登录成功：jti 即会话 id
	sid := uuid.NewString()
	if _, err := s.AppSess.Create(ctx, sid, u.Registration, u.Role); err != nil {
		app.Fail(c, err)
		return
	}
	tok, exp, err := s.Tokens.Issue(sid, u)
	if err != nil {
		_ = s.AppSess.Delete(ctx, sid)
		app.Fail(c, err)
		return
	}
	s.setAppCookie(c.Writer, tok, s.AppSess.TTL())
	c.JSON(http.StatusOK, app.H{
		"access_token": tok,
		"token_type":   "bearer",
		"expires_at":   exp.UTC(),
	})
}

// POST /users/logout
func (s *Srv) Logout(c *gin.Context) {
	if sid := app.SessionIDFrom(c); sid != "" {
		_ = s.AppSess.Delete(c.Request.Context(), sid)
	}
	s.setAppCookie(c.Writer, "", -time.Second)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /users?q=ana&page=1&size=20
func (s *Srv) ListUsers(c *gin.Context) {
	q := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := s.Repo.ListUsers(c.Request.Context(), q, page, size)
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// GET /users/:registration
func (s *Srv) GetUser(c *gin.Context) {
	u, err := s.Repo.FindUser(c.Request.Context(), c.Param("registration"))
	if err != nil {
		app.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

// DELETE /users/:registration
func (s *Srv) DeleteUser(c *gin.Context) {
	reg := c.Param("registration")
	p, _ := app.PrincipalFrom(c)

	// 不允许删除自己，避免锁死
	if p.Registration == reg {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot delete yourself"})
		return
	}
	if err := s.Repo.DeleteUser(c.Request.Context(), p, reg); err != nil {
		app.Fail(c, err)
		return
	}
	// 撤销该用户的所有登录会话
	if err := s.AppSess.RevokeAllForUser(c.Request.Context(), reg); err != nil {
		app.Logger(c).Warn("revoke sessions failed", "registration", reg, "error", err)
	}
	c.JSON(http.StatusOK, app.H{"message": "user deleted"})
}

type setRoleReq struct {
	Role string `json:"role" binding:"required,oneof=admin user"`
}

// PUT /users/:registration/role
func (s *Srv) SetUserRole(c *gin.Context) {
	var req setRoleReq
	if !bindJSON(c, &req) {
		return
	}
	reg := c.Param("registration")
	p, _ := app.PrincipalFrom(c)
	if err := s.Repo.SetUserRole(c.Request.Context(), p, reg, req.Role); err != nil {
		app.Fail(c, err)
		return
	}
	// 会话里存的是旧角色，让对方重新登录
	if err := s.AppSess.RevokeAllForUser(c.Request.Context(), reg); err != nil {
		app.Logger(c).Warn("revoke sessions failed", "registration", reg, "error", err)
	}
	c.JSON(http.StatusOK, app.H{"message": "role updated", "registration": reg, "role": req.Role})
}
