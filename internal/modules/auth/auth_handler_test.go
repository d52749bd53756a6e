package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/syonosuke743/portfolio/internal/models"
)

func newTestServer(svc *Service) *echo.Echo {
	e := echo.New()
	NewHandler(svc).RegisterRoutes(e.Group("/api/auth"), Middleware(testSecret))
	return e
}

func doJSON(e *echo.Echo, method, target, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthHandlerRegisterLoginMe(t *testing.T) {
	e := newTestServer(newTestService(newFakeRepo()))

	rec := doJSON(e, http.MethodPost, "/api/auth/register", `{"email":"aki@example.com","password":"secret123"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d; want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "$2a$") {
		t.Errorf("register response leaks the password hash: %s", rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, "/api/auth/login", `{"email":"aki@example.com","password":"secret123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d; want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var resp models.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("tokens missing: %+v", resp)
	}

	for _, path := range []string{"/api/auth/me", "/api/auth/profile"} {
		rec = doJSON(e, http.MethodGet, path, "", resp.AccessToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d; want 200 (body %s)", path, rec.Code, rec.Body.String())
		}
		var user models.User
		if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
			t.Fatal(err)
		}
		if user.ID != resp.User.ID {
			t.Errorf("GET %s user = %s; want %s", path, user.ID, resp.User.ID)
		}
	}
}

func TestAuthHandlerErrors(t *testing.T) {
	svc := newTestService(newFakeRepo())
	e := newTestServer(svc)
	if rec := doJSON(e, http.MethodPost, "/api/auth/register", `{"email":"aki@example.com","password":"secret123"}`, ""); rec.Code != http.StatusCreated {
		t.Fatalf("setup register status = %d", rec.Code)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"register duplicate", http.MethodPost, "/api/auth/register", `{"email":"aki@example.com","password":"secret123"}`, http.StatusConflict},
		{"register short password", http.MethodPost, "/api/auth/register", `{"email":"new@example.com","password":"12345"}`, http.StatusBadRequest},
		{"register bad email", http.MethodPost, "/api/auth/register", `{"email":"not-an-email","password":"secret123"}`, http.StatusBadRequest},
		{"register malformed", http.MethodPost, "/api/auth/register", `{"email":`, http.StatusBadRequest},
		{"login wrong password", http.MethodPost, "/api/auth/login", `{"email":"aki@example.com","password":"secret999"}`, http.StatusUnauthorized},
		{"login unknown user", http.MethodPost, "/api/auth/login", `{"email":"ghost@example.com","password":"secret123"}`, http.StatusUnauthorized},
		{"oauth missing proof", http.MethodPost, "/api/auth/oauth", `{"provider":"google"}`, http.StatusBadRequest},
		{"oauth unknown provider", http.MethodPost, "/api/auth/oauth", `{"accessToken":"google-mei","provider":"myspace"}`, http.StatusBadRequest},
		{"oauth rejected token", http.MethodPost, "/api/auth/oauth", `{"accessToken":"forged"}`, http.StatusUnauthorized},
		{"refresh missing token", http.MethodPost, "/api/auth/refresh", `{}`, http.StatusBadRequest},
		{"refresh garbage", http.MethodPost, "/api/auth/refresh", `{"refreshToken":"abc.def.ghi"}`, http.StatusUnauthorized},
		{"me without token", http.MethodGet, "/api/auth/me", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(e, tt.method, tt.path, tt.body, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d; want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAuthHandlerGoogleAlias(t *testing.T) {
	e := newTestServer(newTestService(newFakeRepo()))

	for _, path := range []string{"/api/auth/oauth", "/api/auth/google"} {
		rec := doJSON(e, http.MethodPost, path, `{"accessToken":"google-mei","provider":"google"}`, "")
		if rec.Code != http.StatusOK {
			t.Errorf("POST %s status = %d; want 200 (body %s)", path, rec.Code, rec.Body.String())
		}
	}
}

func TestOAuthLoginCannotClaimAccountByEmail(t *testing.T) {
	repo := newFakeRepo()
	e := newTestServer(newTestService(repo))
	if rec := doJSON(e, http.MethodPost, "/api/auth/register", `{"email":"victim@example.com","password":"secret123"}`, ""); rec.Code != http.StatusCreated {
		t.Fatalf("setup register status = %d", rec.Code)
	}

	bodies := []string{
		`{"email":"victim@example.com","provider":"google"}`,
		`{"email":"victim@example.com","provider":"google","accessToken":"forged"}`,
	}
	for _, body := range bodies {
		for _, path := range []string{"/api/auth/oauth", "/api/auth/google"} {
			rec := doJSON(e, http.MethodPost, path, body, "")
			if rec.Code != http.StatusBadRequest && rec.Code != http.StatusUnauthorized {
				t.Errorf("POST %s %s status = %d; want 400 or 401", path, body, rec.Code)
			}
			if strings.Contains(rec.Body.String(), `"accessToken"`) {
				t.Errorf("POST %s %s issued a token: %s", path, body, rec.Body.String())
			}
		}
	}
	for _, u := range repo.users {
		if u.Provider != nil {
			t.Errorf("user %s linked to provider %s", u.Email, *u.Provider)
		}
	}
}

func TestOAuthLoginDisabled(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, testSecret, time.Hour, time.Hour)
	e := newTestServer(svc)

	rec := doJSON(e, http.MethodPost, "/api/auth/oauth", `{"accessToken":"google-mei"}`, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d; want 503", rec.Code)
	}
}

func TestRefreshHandler(t *testing.T) {
	e := newTestServer(newTestService(newFakeRepo()))
	rec := doJSON(e, http.MethodPost, "/api/auth/register", `{"email":"aki@example.com","password":"secret123"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}
	var reg models.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatal(err)
	}

	// A refresh token is not a bearer credential.
	if rec := doJSON(e, http.MethodGet, "/api/auth/me", "", reg.RefreshToken); rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /me with refresh token status = %d; want 401", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"`+reg.AccessToken+`"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh with access token status = %d; want 401", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"`+reg.RefreshToken+`"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d; want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var resp models.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if rec := doJSON(e, http.MethodGet, "/api/auth/me", "", resp.AccessToken); rec.Code != http.StatusOK {
		t.Errorf("GET /me with refreshed access token status = %d; want 200", rec.Code)
	}
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	e := newTestServer(svc)

	foreign := NewService(repo, nil, "other-secret", time.Hour, time.Hour)
	foreignToken, err := foreign.sign(&models.User{ID: "user-1", Email: "aki@example.com"}, TokenTypeAccess, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	for name, token := range map[string]string{
		"garbage":      "abc.def.ghi",
		"wrong secret": foreignToken,
	} {
		rec := doJSON(e, http.MethodGet, "/api/auth/me", "", token)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d; want 401", name, rec.Code)
		}
	}
}

func TestMeUnknownUser(t *testing.T) {
	svc := newTestService(newFakeRepo())
	e := newTestServer(svc)

	token, err := svc.sign(&models.User{ID: "deleted-user", Email: "gone@example.com"}, TokenTypeAccess, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	rec := doJSON(e, http.MethodGet, "/api/auth/me", "", token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", rec.Code)
	}
}
