package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/config"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

type Permission string

const (
	PermOperator   Permission = "operator"
	PermTechnician Permission = "technician"
	PermAdmin      Permission = "admin"
)

type Role string

const (
	RoleOperator   Role = "operator"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleOperator, RoleTechnician, RoleAdmin:
		return r, nil
	case "":
		return RoleOperator, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Permissions expands a role. Higher roles include the lower ones.
func (r Role) Permissions() []Permission {
	switch r {
	case RoleAdmin:
		return []Permission{PermOperator, PermTechnician, PermAdmin}
	case RoleTechnician:
		return []Permission{PermOperator, PermTechnician}
	default:
		return []Permission{PermOperator}
	}
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
)

// Failed logins per username within lockoutWindow before the account locks.
const (
	maxFailedLogins = 5
	lockoutWindow   = 15 * time.Minute
)

type user struct {
	username     string
	passwordHash string
	role         Role
}

// AuthService authenticates the statically configured users.
type AuthService struct {
	enabled    bool
	users      map[string]user
	jwtHandler *JWTHandler
	failures   *cache.Cache
	logger     *zap.Logger
}

func NewAuthService(cfg config.AuthConfig, logger *zap.Logger) (*AuthService, error) {
	a := &AuthService{
		enabled:    cfg.Enabled,
		users:      make(map[string]user, len(cfg.Users)),
		jwtHandler: NewJWTHandler(cfg.GetJWTSecret(), cfg.AccessTokenTTL),
		failures:   cache.New(lockoutWindow, time.Minute),
		logger:     logger,
	}

	for _, u := range cfg.Users {
		role, err := ParseRole(u.Role)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Username, err)
		}
		if _, dup := a.users[u.Username]; dup {
			return nil, fmt.Errorf("user %s configured twice", u.Username)
		}
		a.users[u.Username] = user{username: u.Username, passwordHash: u.PasswordHash, role: role}
	}

	if a.enabled && !cfg.IsProductionReady() {
		logger.Warn("JWT secret is the development default or too short")
	}
	if a.enabled && len(a.users) == 0 {
		logger.Warn("Authentication enabled but no users configured")
	}
	return a, nil
}

func (a *AuthService) Enabled() bool { return a.enabled }

type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
	Role        Role      `json:"role"`
}

// Login verifies the credentials and issues an access token.
func (a *AuthService) Login(username, password, ipAddress string) (*LoginResult, error) {
	if n, ok := a.failures.Get(username); ok && n.(int) >= maxFailedLogins {
		a.logger.Warn("Login rejected for locked account",
			zap.String("username", username),
			zap.String("ip", ipAddress))
		return nil, ErrAccountLocked
	}

	u, ok := a.users[username]
	if !ok {
		a.logger.Info("Login failed", zap.String("username", username), zap.String("ip", ipAddress), zap.String("reason", "unknown user"))
		return nil, ErrInvalidCredentials
	}

	valid, err := VerifyPassword(password, u.passwordHash)
	if err != nil {
		a.logger.Error("Stored password hash is unusable", zap.String("username", username), zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if !valid {
		a.recordFailure(username)
		a.logger.Info("Login failed", zap.String("username", username), zap.String("ip", ipAddress), zap.String("reason", "invalid password"))
		return nil, ErrInvalidCredentials
	}
	a.failures.Delete(username)

	token, expiresAt, err := a.jwtHandler.GenerateAccessToken(u.username, u.role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	a.logger.Info("Login succeeded", zap.String("username", username), zap.String("ip", ipAddress))
	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Username:    u.username,
		Role:        u.role,
	}, nil
}

func (a *AuthService) recordFailure(username string) {
	if _, err := a.failures.IncrementInt(username, 1); err != nil {
		a.failures.Set(username, 1, cache.DefaultExpiration)
	}
}

// ValidateToken returns the claims of a valid access token. A token for a
// user that has since been removed from the configuration is rejected.
func (a *AuthService) ValidateToken(token string) (*JWTClaims, error) {
	claims, err := a.jwtHandler.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	u, ok := a.users[claims.Username]
	if !ok {
		return nil, fmt.Errorf("unknown user %s", claims.Username)
	}
	claims.Role = u.role
	return claims, nil
}
