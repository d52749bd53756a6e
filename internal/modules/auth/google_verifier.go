package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	googleOAuth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/syonosuke743/portfolio/internal/models"
)

// ProviderGoogle is the provider name stored on accounts created through
// Google sign-in.
const ProviderGoogle = "google"

// VerifiedIdentity is an e-mail address an identity provider vouched for.
type VerifiedIdentity struct {
	Provider string
	Email    string
}

// IdentityVerifier resolves an OAuth login request to a verified identity.
// Rejected proofs are reported as models.ErrInvalidCredentials.
type IdentityVerifier interface {
	Verify(ctx context.Context, req models.OAuthLoginRequest) (*VerifiedIdentity, error)
}

// GoogleVerifier checks authorization codes and access tokens against
// Google's userinfo endpoint.
type GoogleVerifier struct {
	oauth2Config *oauth2.Config
	apiOptions   []option.ClientOption
}

// NewGoogleVerifier creates a verifier for the given OAuth client. The
// redirect URL must match the one the frontend used to obtain codes.
func NewGoogleVerifier(clientID, clientSecret, redirectURL string, opts ...option.ClientOption) *GoogleVerifier {
	return &GoogleVerifier{
		oauth2Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		apiOptions: opts,
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, req models.OAuthLoginRequest) (*VerifiedIdentity, error) {
	if req.Provider != nil && *req.Provider != ProviderGoogle {
		return nil, fmt.Errorf("%w: unsupported provider %q", models.ErrInvalidCredentials, *req.Provider)
	}

	accessToken := req.AccessToken
	if req.Code != "" {
		token, err := v.oauth2Config.Exchange(ctx, req.Code)
		if err != nil {
			var retrieveErr *oauth2.RetrieveError
			if errors.As(err, &retrieveErr) {
				return nil, fmt.Errorf("%w: code exchange: %v", models.ErrInvalidCredentials, err)
			}
			return nil, fmt.Errorf("auth: google code exchange: %w", err)
		}
		accessToken = token.AccessToken
	}
	if accessToken == "" {
		return nil, fmt.Errorf("%w: no access token", models.ErrInvalidCredentials)
	}

	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}, v.apiOptions...)
	service, err := googleOAuth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: google oauth2 service: %w", err)
	}

	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: userinfo: %v", models.ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("auth: google userinfo: %w", err)
	}

	if info.Email == "" || info.VerifiedEmail == nil || !*info.VerifiedEmail {
		return nil, fmt.Errorf("%w: google e-mail not verified", models.ErrInvalidCredentials)
	}
	return &VerifiedIdentity{Provider: ProviderGoogle, Email: info.Email}, nil
}
