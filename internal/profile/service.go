package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GarageDesk/GarageDesk/internal/common/auth"
	"github.com/GarageDesk/GarageDesk/internal/common/config"
	"github.com/GarageDesk/GarageDesk/internal/common/errs"
	"github.com/GarageDesk/GarageDesk/internal/common/logger"
	"github.com/GarageDesk/GarageDesk/internal/common/middleware"
	"github.com/GarageDesk/GarageDesk/internal/rbac"
)

// Options 资料模块的业务参数。
type Options struct {
	// ProfileTimeout 单次资料读取的超时
	ProfileTimeout time.Duration
	// BreakerMaxFailures / BreakerResetTimeout 资料库熔断参数
	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.ProfileTimeout <= 0 {
		o.ProfileTimeout = 5 * time.Second
	}
	if o.BreakerMaxFailures <= 0 {
		o.BreakerMaxFailures = 5
	}
	if o.BreakerResetTimeout <= 0 {
		o.BreakerResetTimeout = 30 * time.Second
	}
	return o
}

// Service 账号与角色资料用例。
type Service struct {
	repo    *Repo
	authCfg config.AuthConfig
	opts    Options
	log     logger.Logger
	breaker *middleware.CircuitBreaker

	// lastKnown 最后已知角色缓存：资料库抖动时用上一次成功读到的
	// 角色兜底，读不到也没有缓存时落到无角色。
	mu        sync.RWMutex
	lastKnown map[string]rbac.Role

	now func() time.Time
}

func NewService(repo *Repo, authCfg config.AuthConfig, opts Options, log logger.Logger) *Service {
	opts = opts.withDefaults()
	return &Service{
		repo:      repo,
		authCfg:   authCfg,
		opts:      opts,
		log:       log,
		breaker:   middleware.NewCircuitBreaker("profile-db", opts.BreakerMaxFailures, opts.BreakerResetTimeout),
		lastKnown: make(map[string]rbac.Role),
		now:       time.Now,
	}
}

// RegisterInput 新建账号的入参。
type RegisterInput struct {
	Username string
	Password string
	FullName string
	Email    string
	Role     string
}

// Register 管理员新建账号。角色必须属于封闭枚举。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	role := rbac.ParseRole(in.Role)
	if !role.Valid() {
		return nil, errs.Invalidf("unknown role %q", in.Role)
	}
	return s.createUser(ctx, in, role)
}

// SelfRegister 公开注册：账号落库时不带任何角色（最小权限），
// 等管理员在用户管理页分配角色后才能使用系统。
func (s *Service) SelfRegister(ctx context.Context, in RegisterInput) (*User, error) {
	in.Role = ""
	return s.createUser(ctx, in, rbac.RoleNone)
}

func (s *Service) createUser(ctx context.Context, in RegisterInput, role rbac.Role) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if username == "" {
		return nil, errs.Invalidf("username is required")
	}
	if len(in.Password) < 8 {
		return nil, errs.Invalidf("password must be at least 8 characters")
	}

	salt, err := GenerateSaltHex()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password, salt)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		PasswordSalt: salt,
		FullName:     strings.TrimSpace(in.FullName),
		Email:        strings.TrimSpace(in.Email),
		Role:         string(role),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// LoginResult 登录结果：token + 解析好的能力集。
type LoginResult struct {
	Token       string           `json:"token"`
	ExpiresAt   time.Time        `json:"expires_at"`
	User        *User            `json:"user"`
	Permissions rbac.Permissions `json:"permissions"`
}

// Login 用户名密码换 token。凭证错误统一返回 ErrUnauthorized，
// 不区分“用户不存在”和“密码错误”。
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	u, err := s.repo.FindByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthorized
		}
		return nil, err
	}
	if !VerifyPassword(password, u.PasswordSalt, u.PasswordHash) {
		return nil, errs.ErrUnauthorized
	}

	role := rbac.ParseRole(u.Role)
	token, expiresAt, err := auth.GenerateAccessToken(s.authCfg, u.ID, string(role), s.authCfg.TokenTTL.Std())
	if err != nil {
		return nil, err
	}

	s.remember(u.ID, role)
	return &LoginResult{
		Token:       token,
		ExpiresAt:   expiresAt,
		User:        u,
		Permissions: rbac.Resolve(role),
	}, nil
}

// RoleFor 按用户 ID 解析角色，供权限中间件逐请求调用。
//
// 读取走超时 + 熔断；失败时先用最后已知角色兜底，连缓存都没有
// 就按无角色（最小权限）处理。绝不因为资料读不到而放大权限。
func (s *Service) RoleFor(ctx context.Context, userID string) rbac.Role {
	if s == nil || s.repo == nil || strings.TrimSpace(userID) == "" {
		return rbac.RoleNone
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ProfileTimeout)
	defer cancel()

	var u *User
	err := s.breaker.Call(ctx, func() error {
		var ferr error
		u, ferr = s.repo.FindByID(ctx, userID)
		return ferr
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// 账号确实不存在：清缓存，按无角色处理
			s.forget(userID)
			return rbac.RoleNone
		}
		if cached, ok := s.cached(userID); ok {
			if s.log != nil {
				s.log.Warnf("profile fetch failed for %s, using last known role: %v", userID, err)
			}
			return cached
		}
		if s.log != nil {
			s.log.Warnf("profile fetch failed for %s, no cached role, treating as no role: %v", userID, err)
		}
		return rbac.RoleNone
	}

	role := rbac.ParseRole(u.Role)
	s.remember(userID, role)
	return role
}

func (s *Service) remember(userID string, role rbac.Role) {
	s.mu.Lock()
	s.lastKnown[userID] = role
	s.mu.Unlock()
}

func (s *Service) forget(userID string) {
	s.mu.Lock()
	delete(s.lastKnown, userID)
	s.mu.Unlock()
}

func (s *Service) cached(userID string) (rbac.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.lastKnown[userID]
	return role, ok
}

// Get 单个账号。
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.FindByID(ctx, strings.TrimSpace(id))
}

// List 账号列表。
func (s *Service) List(ctx context.Context, offset, limit int) ([]User, int64, error) {
	if s == nil || s.repo == nil {
		return nil, 0, fmt.Errorf("service not initialized")
	}
	return s.repo.List(ctx, offset, limit)
}

// UpdateRole 改角色。角色必须属于封闭枚举；不允许把最后一名
// 管理员降级，避免系统失去管理入口。
func (s *Service) UpdateRole(ctx context.Context, id, newRole string) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	role := rbac.ParseRole(newRole)
	if !role.Valid() {
		return nil, errs.Invalidf("unknown role %q", newRole)
	}

	u, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if rbac.ParseRole(u.Role) == rbac.RoleAdmin && role != rbac.RoleAdmin {
		admins, err := s.repo.CountByRole(ctx, string(rbac.RoleAdmin))
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			return nil, errs.Invalidf("cannot demote the last admin")
		}
	}

	if err := s.repo.UpdateRole(ctx, u.ID, string(role)); err != nil {
		return nil, err
	}
	u.Role = string(role)
	s.remember(u.ID, role)
	return u, nil
}

// Delete 删除账号。同样保护最后一名管理员。
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	u, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if rbac.ParseRole(u.Role) == rbac.RoleAdmin {
		admins, err := s.repo.CountByRole(ctx, string(rbac.RoleAdmin))
		if err != nil {
			return err
		}
		if admins <= 1 {
			return errs.Invalidf("cannot delete the last admin")
		}
	}
	if err := s.repo.Delete(ctx, u.ID); err != nil {
		return err
	}
	s.forget(u.ID)
	return nil
}
