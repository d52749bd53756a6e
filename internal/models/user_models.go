package models

import "time"

// User is an account that owns adventures.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"`
	Provider     *string   `json:"provider"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegisterRequest creates a password account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest authenticates a password account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// OAuthLoginRequest carries proof of identity from an external provider:
// either an authorization code to exchange or an access token. The e-mail
// is read from the provider, never from the request.
type OAuthLoginRequest struct {
	Code        string  `json:"code" validate:"required_without=AccessToken"`
	AccessToken string  `json:"accessToken" validate:"required_without=Code"`
	Provider    *string `json:"provider,omitempty" validate:"omitempty,oneof=google"`
}

// RefreshRequest trades a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResponse is returned by register, login and oauth login.
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}
