package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/service/auth"
	pkgauth "github.com/carehospital/admin-api/pkg/auth"
	"github.com/carehospital/admin-api/pkg/security"
)

func newRouter(t *testing.T, hash string) (*gin.Engine, pkgauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtSvc, err := pkgauth.NewJWTService("s3cret", "care-admin-api", time.Hour)
	require.NoError(t, err)
	svc := auth.NewService("admin", hash, security.NewBcryptHasher(bcrypt.MinCost), jwtSvc)

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r, jwtSvc
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestLogin(t *testing.T) {
	hash, err := security.NewBcryptHasher(bcrypt.MinCost).Hash("correct-horse")
	require.NoError(t, err)
	r, jwtSvc := newRouter(t, hash)

	w := post(r, `{"username":"admin","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env struct {
		Data model.TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	claims, err := jwtSvc.ValidateToken(env.Data.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, pkgauth.RoleAdmin, claims.Role)

	w = post(r, `{"username":"admin","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"invalid username or password"}`, w.Body.String())

	w = post(r, `{"username":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_NotConfigured(t *testing.T) {
	r, _ := newRouter(t, "")
	w := post(r, `{"username":"admin","password":"anything"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
