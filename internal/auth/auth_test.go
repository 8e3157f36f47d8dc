package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var fastHasher = &PasswordHasher{memory: 1024, iterations: 1, parallelism: 1, saltLength: 16, keyLength: 32}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := fastHasher.HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func newService(t *testing.T) *AuthService {
	t.Helper()
	a, err := NewAuthService(config.AuthConfig{
		Enabled:        true,
		AccessTokenTTL: time.Hour,
		Users: []config.UserConfig{
			{Username: "admin", PasswordHash: mustHash(t, "s3cret"), Role: "admin"},
			{Username: "op", PasswordHash: mustHash(t, "op-pass"), Role: "operator"},
			{Username: "tech", PasswordHash: mustHash(t, "tech-pass")},
		},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return a
}

func TestPasswordRoundTrip(t *testing.T) {
	h := mustHash(t, "correct horse")
	if !strings.HasPrefix(h, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Errorf("hash = %s", h)
	}

	tests := []struct {
		password string
		want     bool
	}{
		{"correct horse", true},
		{"correct horse ", false},
		{"", false},
	}
	for _, tt := range tests {
		ok, err := VerifyPassword(tt.password, h)
		if err != nil || ok != tt.want {
			t.Errorf("VerifyPassword(%q) = %v, %v", tt.password, ok, err)
		}
	}

	for _, bad := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", "$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA"} {
		if _, err := VerifyPassword("x", bad); err == nil {
			t.Errorf("VerifyPassword accepted hash %q", bad)
		}
	}
}

func TestLogin(t *testing.T) {
	a := newService(t)

	res, err := a.Login("admin", "s3cret", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Role != RoleAdmin || res.TokenType != "Bearer" {
		t.Errorf("result = %+v", res)
	}

	claims, err := a.ValidateToken(res.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "admin" || claims.Issuer != "openmachineconfig" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := a.Login("admin", "wrong", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := a.Login("ghost", "s3cret", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: %v", err)
	}
}

func TestLoginLockout(t *testing.T) {
	a := newService(t)
	for i := 0; i < maxFailedLogins; i++ {
		a.Login("op", "nope", "")
	}
	if _, err := a.Login("op", "op-pass", ""); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("err = %v, want locked", err)
	}
	if _, err := a.Login("admin", "s3cret", ""); err != nil {
		t.Errorf("lockout leaked to other users: %v", err)
	}
}

func TestTokenRejections(t *testing.T) {
	a := newService(t)
	other, _ := NewAuthService(config.AuthConfig{Enabled: true, JWTSecretEnv: "OMC_TEST_UNSET_SECRET", AccessTokenTTL: time.Hour}, zap.NewNop())
	other.jwtHandler.secretKey = []byte("another-secret-another-secret-000")

	foreign, _, err := other.jwtHandler.GenerateAccessToken("admin", RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.ValidateToken(foreign); err == nil {
		t.Error("token signed with another secret accepted")
	}

	expired := NewJWTHandler("dev-secret-change-in-production-min-32-chars", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, _ := expired.GenerateAccessToken("admin", RoleAdmin)
	if _, err := a.ValidateToken(old); err == nil {
		t.Error("expired token accepted")
	}

	ghost, _, _ := a.jwtHandler.GenerateAccessToken("ghost", RoleAdmin)
	if _, err := a.ValidateToken(ghost); err == nil {
		t.Error("token for unconfigured user accepted")
	}
}

func TestRoleParsing(t *testing.T) {
	if r, err := ParseRole(""); err != nil || r != RoleOperator {
		t.Errorf("empty role = %v, %v", r, err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Error("unknown role accepted")
	}
	_, err := NewAuthService(config.AuthConfig{Users: []config.UserConfig{
		{Username: "a", PasswordHash: "x", Role: "admin"},
		{Username: "a", PasswordHash: "y", Role: "admin"},
	}}, zap.NewNop())
	if err == nil {
		t.Error("duplicate user accepted")
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := newService(t)
	opToken, _ := a.Login("op", "op-pass", "")
	adminToken, _ := a.Login("admin", "s3cret", "")

	r := gin.New()
	r.Use(a.AuthMiddleware())
	r.GET("/read", RequirePermission(PermOperator), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/write", RequirePermission(PermTechnician), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{"no token", http.MethodGet, "/read", "", http.StatusUnauthorized},
		{"bad scheme", http.MethodGet, "/read", "Basic abc", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/read", "Bearer abc", http.StatusUnauthorized},
		{"operator reads", http.MethodGet, "/read", "Bearer " + opToken.AccessToken, http.StatusOK},
		{"operator cannot write", http.MethodPost, "/write", "Bearer " + opToken.AccessToken, http.StatusForbidden},
		{"admin writes", http.MethodPost, "/write", "Bearer " + adminToken.AccessToken, http.StatusOK},
		{"query token", http.MethodGet, "/read?access_token=" + opToken.AccessToken, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if w.Code >= 400 {
				var body struct {
					Error struct{ Code string } `json:"error"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error.Code == "" {
					t.Errorf("error body = %s", w.Body.String())
				}
			}
		})
	}
}

func TestMiddlewareDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := NewAuthService(config.AuthConfig{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	r := gin.New()
	r.Use(a.AuthMiddleware())
	r.DELETE("/x", RequirePermission(PermAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/x", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
}
