package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkarlsen/userdeck/internal/config"
	"github.com/mkarlsen/userdeck/internal/middleware"
	"github.com/mkarlsen/userdeck/internal/models"
	"github.com/mkarlsen/userdeck/internal/services"
	"github.com/mkarlsen/userdeck/internal/utils"
)

func newAuthFixture(t *testing.T) *handlerFixture {
	t.Helper()

	f := newHandlerFixture(t)

	jwtCfg := &config.JWTConfig{Secret: "test-secret", ExpireHour: 24}
	utils.SetJWTSecret(jwtCfg.Secret)
	authHandler := NewAuthHandler(f.userSvc, jwtCfg)

	f.router.POST("/api/auth/register", authHandler.Register)
	f.router.POST("/api/auth/login", authHandler.Login)
	f.router.GET("/api/auth/me", middleware.AuthRequired(), authHandler.GetCurrentUser)

	return f
}

func registerAndVerify(t *testing.T, f *handlerFixture, email string) *models.User {
	t.Helper()

	user, err := f.userSvc.Create(&services.CreateUserRequest{Email: email, Password: "Secure1234"})
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}
	if ok, err := f.userSvc.VerifyEmail(user.ID, user.VerificationToken); err != nil || !ok {
		t.Fatalf("VerifyEmail = %v, %v", ok, err)
	}
	return user
}

func TestRegisterEndpoint(t *testing.T) {
	f := newAuthFixture(t)

	w := f.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "new@example.com",
		"password": "Secure1234",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, expected 201 (body %s)", w.Code, w.Body.String())
	}

	var envelope struct {
		Data models.User `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Email != "new@example.com" {
		t.Errorf("email = %q", envelope.Data.Email)
	}
	if envelope.Data.Role != models.RoleAdmin {
		t.Errorf("first registered user role = %q, expected ADMIN", envelope.Data.Role)
	}

	// Duplicate registration conflicts
	w = f.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "new@example.com",
		"password": "Secure1234",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, expected 409", w.Code)
	}
}

func TestRegisterEndpoint_InvalidInput(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"bad email", map[string]string{"email": "nope", "password": "Secure1234"}, http.StatusBadRequest},
		{"weak password", map[string]string{"email": "a@x.com", "password": "short"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/auth/register", tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, expected %d", w.Code, tt.status)
			}
		})
	}
}

func TestLoginEndpoint(t *testing.T) {
	f := newAuthFixture(t)
	user := registerAndVerify(t, f, "login@example.com")

	w := f.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    user.Email,
		"password": "Secure1234",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200 (body %s)", w.Code, w.Body.String())
	}

	var envelope struct {
		Data LoginResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Token == "" {
		t.Fatal("login should issue a token")
	}

	claims, err := utils.ParseToken(envelope.Data.Token)
	if err != nil {
		t.Fatalf("issued token should parse: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("token user id = %q, expected %q", claims.UserID, user.ID)
	}
}

func TestLoginEndpoint_DoesNotLeakRegisteredEmails(t *testing.T) {
	f := newAuthFixture(t)
	user := registerAndVerify(t, f, "known@example.com")

	unknown := f.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "unknown@example.com",
		"password": "Wrong9999",
	})
	wrongPassword := f.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    user.Email,
		"password": "Wrong9999",
	})

	if unknown.Code != http.StatusUnauthorized || wrongPassword.Code != http.StatusUnauthorized {
		t.Errorf("status = %d / %d, expected 401 for both", unknown.Code, wrongPassword.Code)
	}
	if unknown.Body.String() != wrongPassword.Body.String() {
		t.Error("unknown email and wrong password must produce identical responses")
	}
}

func TestLoginEndpoint_Forbidden(t *testing.T) {
	f := newAuthFixture(t)

	unverified, err := f.userSvc.Create(&services.CreateUserRequest{Email: "raw@example.com", Password: "Secure1234"})
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}

	w := f.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    unverified.Email,
		"password": "Secure1234",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("unverified status = %d, expected 403", w.Code)
	}

	locked := registerAndVerify(t, f, "locked@example.com")
	f.db.Model(&models.User{}).Where("id = ?", locked.ID).Update("is_locked", true)

	w = f.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    locked.Email,
		"password": "Secure1234",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("locked status = %d, expected 403", w.Code)
	}
}

func TestGetCurrentUser(t *testing.T) {
	f := newAuthFixture(t)
	user := registerAndVerify(t, f, "me@example.com")

	token, err := utils.GenerateToken(user.ID, user.Role, 1)
	if err != nil {
		t.Fatalf("GenerateToken error = %v", err)
	}

	req := newAuthedRequest(t, f, http.MethodGet, "/api/auth/me", token)
	if req.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200 (body %s)", req.Code, req.Body.String())
	}

	var envelope struct {
		Data models.User `json:"data"`
	}
	if err := json.Unmarshal(req.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != user.ID {
		t.Errorf("id = %q, expected %q", envelope.Data.ID, user.ID)
	}

	// No token: 401
	anon := newAuthedRequest(t, f, http.MethodGet, "/api/auth/me", "")
	if anon.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, expected 401", anon.Code)
	}
}

func newAuthedRequest(t *testing.T, f *handlerFixture, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}
