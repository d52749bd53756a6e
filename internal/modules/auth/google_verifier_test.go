package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/syonosuke743/portfolio/internal/models"
)

type googleStub struct {
	tokenStatus    int
	userinfoStatus int
	userinfo       string
	tokenCalls     atomic.Int32
}

func (g *googleStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/token":
		g.tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "auth-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.WriteHeader(g.tokenStatus)
		w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	case "/oauth2/v2/userinfo":
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
			return
		}
		w.WriteHeader(g.userinfoStatus)
		w.Write([]byte(g.userinfo))
	default:
		http.NotFound(w, r)
	}
}

func newStubVerifier(t *testing.T, stub *googleStub) *GoogleVerifier {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	v := NewGoogleVerifier("client-id", "client-secret", "postmessage", option.WithEndpoint(srv.URL+"/"))
	v.oauth2Config.Endpoint = oauth2.Endpoint{TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}
	return v
}

const verifiedUserinfo = `{"id":"1001","email":"mei@example.com","verified_email":true}`

func TestGoogleVerifierExchangesCode(t *testing.T) {
	stub := &googleStub{tokenStatus: http.StatusOK, userinfoStatus: http.StatusOK, userinfo: verifiedUserinfo}
	v := newStubVerifier(t, stub)

	id, err := v.Verify(context.Background(), models.OAuthLoginRequest{Code: "auth-code"})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if id.Email != "mei@example.com" || id.Provider != ProviderGoogle {
		t.Errorf("identity = %+v", id)
	}
	if n := stub.tokenCalls.Load(); n != 1 {
		t.Errorf("token calls = %d; want 1", n)
	}
}

func TestGoogleVerifierAcceptsAccessToken(t *testing.T) {
	stub := &googleStub{userinfoStatus: http.StatusOK, userinfo: verifiedUserinfo}
	v := newStubVerifier(t, stub)

	id, err := v.Verify(context.Background(), models.OAuthLoginRequest{AccessToken: "at-123"})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if id.Email != "mei@example.com" {
		t.Errorf("Email = %q; want mei@example.com", id.Email)
	}
	if n := stub.tokenCalls.Load(); n != 0 {
		t.Errorf("token calls = %d; want 0", n)
	}
}

func TestGoogleVerifierRejects(t *testing.T) {
	apple := "apple"
	tests := []struct {
		name     string
		userinfo string
		req      models.OAuthLoginRequest
	}{
		{"unverified e-mail", `{"id":"1001","email":"mei@example.com","verified_email":false}`, models.OAuthLoginRequest{AccessToken: "at-123"}},
		{"verification flag missing", `{"id":"1001","email":"mei@example.com"}`, models.OAuthLoginRequest{AccessToken: "at-123"}},
		{"no e-mail", `{"id":"1001","verified_email":true}`, models.OAuthLoginRequest{AccessToken: "at-123"}},
		{"revoked access token", verifiedUserinfo, models.OAuthLoginRequest{AccessToken: "stolen"}},
		{"bad code", verifiedUserinfo, models.OAuthLoginRequest{Code: "made-up"}},
		{"other provider", verifiedUserinfo, models.OAuthLoginRequest{AccessToken: "at-123", Provider: &apple}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &googleStub{tokenStatus: http.StatusOK, userinfoStatus: http.StatusOK, userinfo: tt.userinfo}
			v := newStubVerifier(t, stub)

			id, err := v.Verify(context.Background(), tt.req)
			if !errors.Is(err, models.ErrInvalidCredentials) {
				t.Errorf("err = %v; want ErrInvalidCredentials", err)
			}
			if id != nil {
				t.Errorf("identity = %+v; want nil", id)
			}
		})
	}
}

func TestGoogleVerifierUpstreamErrorIsNotACredentialError(t *testing.T) {
	stub := &googleStub{userinfoStatus: http.StatusNotFound, userinfo: `{"error":{"code":404,"message":"gone"}}`}
	v := newStubVerifier(t, stub)

	_, err := v.Verify(context.Background(), models.OAuthLoginRequest{AccessToken: "at-123"})
	if err == nil || errors.Is(err, models.ErrInvalidCredentials) {
		t.Errorf("err = %v; want an upstream error", err)
	}
}
