package authorization

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/railzwaylabs/roomledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var secret = []byte("test-secret")

func mustToken(t *testing.T, subject, role string, buildings any) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  time.Now().Add(-time.Minute).Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	if buildings != nil {
		claims["building_ids"] = buildings
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return signed
}

func newAuthorizer(t *testing.T, policy ...string) *Authorizer {
	t.Helper()
	a, err := NewAuthorizer(config.Config{Auth: config.AuthConfig{JWTSecret: string(secret), Policy: policy}}, zap.NewNop())
	require.NoError(t, err)
	return a
}

func TestParseJWTAcceptsStringBuildingIDs(t *testing.T) {
	claims, err := ParseJWT(mustToken(t, "u1", "Admin", "b1, b2"), secret)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, BuildingIDs{"b1", "b2"}, claims.BuildingIDs)

	claims, err = ParseJWT(mustToken(t, "u1", "admin", []string{"b3"}), secret)
	require.NoError(t, err)
	assert.Equal(t, BuildingIDs{"b3"}, claims.BuildingIDs)
}

func TestParseJWTRejects(t *testing.T) {
	_, err := ParseJWT(mustToken(t, "u1", "admin", nil), []byte("other"))
	assert.Error(t, err)

	_, err = ParseJWT(mustToken(t, "", "admin", nil), secret)
	assert.Error(t, err)

	_, err = ParseJWT(mustToken(t, "u1", "", nil), secret)
	assert.Error(t, err)

	_, err = ParseJWT("", secret)
	assert.Error(t, err)
}

func TestAuthorize(t *testing.T) {
	a := newAuthorizer(t, "p, accountant, b9, read")

	tests := []struct {
		name   string
		id     Identity
		bld    string
		action string
		allow  bool
	}{
		{"super admin anywhere", Identity{Role: RoleSuperAdmin}, "b7", ActionMaintain, true},
		{"admin own building", Identity{Role: RoleAdmin, BuildingIDs: BuildingIDs{"b1"}}, "b1", ActionPay, true},
		{"admin other building", Identity{Role: RoleAdmin, BuildingIDs: BuildingIDs{"b1"}}, "b2", ActionRead, false},
		{"admin maintenance", Identity{Role: RoleAdmin, BuildingIDs: BuildingIDs{"b1"}}, "b1", ActionMaintain, false},
		{"viewer pays", Identity{Role: RoleViewer, BuildingIDs: BuildingIDs{"b1"}}, "b1", ActionPay, false},
		{"configured policy", Identity{Role: "accountant", BuildingIDs: BuildingIDs{"b9"}}, "b9", ActionRead, true},
		{"unknown role", Identity{Role: "guest", BuildingIDs: BuildingIDs{"b1"}}, "b1", ActionRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Authorize(tt.id, tt.bld, tt.action)
			if tt.allow {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestNewAuthorizerRejectsBadPolicy(t *testing.T) {
	_, err := NewAuthorizer(config.Config{Auth: config.AuthConfig{Policy: []string{"p, admin"}}}, zap.NewNop())
	assert.Error(t, err)
}

func newRouter(a *Authorizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/buildings/:building_id", a.Authenticate(), a.Require(ActionRead), func(c *gin.Context) {
		c.String(http.StatusOK, SubjectFromContext(c.Request.Context()))
	})
	return r
}

func TestMiddleware(t *testing.T) {
	r := newRouter(newAuthorizer(t))

	tests := []struct {
		name   string
		header string
		path   string
		want   int
		body   string
	}{
		{name: "no token", path: "/buildings/b1", want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", path: "/buildings/b1", want: http.StatusUnauthorized},
		{name: "other building", header: "Bearer " + mustToken(t, "u1", "admin", "b1"), path: "/buildings/b2", want: http.StatusForbidden},
		{name: "allowed", header: "Bearer " + mustToken(t, "u1", "admin", "b1"), path: "/buildings/b1", want: http.StatusOK, body: "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)
			assert.Equal(t, tt.want, resp.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, resp.Body.String())
			}
		})
	}
}

func TestMiddlewareDisabledWithoutSecret(t *testing.T) {
	a, err := NewAuthorizer(config.Config{}, zap.NewNop())
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	newRouter(a).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/buildings/b1", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "", resp.Body.String())
}

func TestPersistentAuthorizerKeepsPolicies(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "authz.db")), &gorm.Config{})
	require.NoError(t, err)

	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: string(secret), Policy: []string{"p, viewer, b9, pay"}}}
	_, err = NewPersistentAuthorizer(cfg, db, zap.NewNop())
	require.NoError(t, err)

	// A later instance without the extra line still sees the stored rule.
	cfg.Auth.Policy = nil
	a, err := NewPersistentAuthorizer(cfg, db, zap.NewNop())
	require.NoError(t, err)

	viewer := Identity{Subject: "v1", Role: RoleViewer, BuildingIDs: BuildingIDs{"b9"}}
	assert.NoError(t, a.Authorize(viewer, "b9", ActionPay))
	assert.ErrorIs(t, a.Authorize(viewer, "b9", ActionManageRates), ErrForbidden)

	var rules int64
	require.NoError(t, db.Table("casbin_rule").Count(&rules).Error)
	assert.Equal(t, int64(len(defaultPolicies)+1), rules)
}
