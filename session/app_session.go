package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoSession = errors.New("session not found or expired")

// AppSessionStore 业务会话；JWT 的 jti 就是会话 id
type AppSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewAppSessionStore(rdb *redis.Client, ttl time.Duration) *AppSessionStore {
	return &AppSessionStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (s *AppSessionStore) TTL() time.Duration { return s.ttl }

type AppSession struct {
	Registration string `json:"reg"`
	Role         string `json:"role"`
	IssuedAt     int64  `json:"iat"`
	ExpiresAt    int64  `json:"exp"`
}

func key(id string) string          { return fmt.Sprintf("app:sess:%s", id) }
func userSetKey(reg string) string  { return fmt.Sprintf("app:user_sessions:%s", reg) }
func loginKey(client string) string { return fmt.Sprintf("app:login_attempts:%s", client) }

func (s *AppSessionStore) Create(ctx context.Context, id, registration, role string) (*AppSession, error) {
	now := s.now()
	as := AppSession{
		Registration: registration,
		Role:         role,
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(s.ttl).Unix(),
	}
	b, err := json.Marshal(as)
	if err != nil {
		return nil, err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key(id), b, s.ttl)
	pipe.SAdd(ctx, userSetKey(registration), id)
	pipe.Expire(ctx, userSetKey(registration), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return &as, nil
}

func (s *AppSessionStore) Get(ctx context.Context, id string) (*AppSession, error) {
	b, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	var as AppSession
	if err := json.Unmarshal(b, &as); err != nil {
		return nil, err
	}
	return &as, nil
}

func (s *AppSessionStore) Delete(ctx context.Context, id string) error {
	as, _ := s.Get(ctx, id) // 忽略失败
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key(id))
	if as != nil {
		pipe.SRem(ctx, userSetKey(as.Registration), id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAllForUser 删除用户后，撤销该用户的所有会话
func (s *AppSessionStore) RevokeAllForUser(ctx context.Context, registration string) error {
	ids, err := s.rdb.SMembers(ctx, userSetKey(registration)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, sid := range ids {
		pipe.Del(ctx, key(sid))
	}
	pipe.Del(ctx, userSetKey(registration))
	_, err = pipe.Exec(ctx)
	return err
}

// HitLogin 记一次登录尝试，返回窗口内的累计次数
func (s *AppSessionStore) HitLogin(ctx context.Context, client string, window time.Duration) (int64, error) {
	n, err := s.rdb.Incr(ctx, loginKey(client)).Result()
	if err != nil {
		return 0, err
	}
	// 第一次计数时开窗口
	if n == 1 {
		if err := s.rdb.Expire(ctx, loginKey(client), window).Err(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// ResetLogin 登录成功后清零
func (s *AppSessionStore) ResetLogin(ctx context.Context, client string) error {
	return s.rdb.Del(ctx, loginKey(client)).Err()
}
