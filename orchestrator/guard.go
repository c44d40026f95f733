package orchestrator

import (
	"context"
	"log"

	"washcore/identity"
)

// AuthError is the distinguishable auth failure: it short-circuits a
// request before any operation runs and is never folded into a Result.
type AuthError struct {
	Code    int    `json:"statusCode"`
	Message string `json:"message"`
}

func (e *AuthError) Error() string { return e.Message }

// AccessGuard gates every operation behind token validation.
type AccessGuard struct {
	provider identity.Provider
}

func NewAccessGuard(provider identity.Provider) *AccessGuard {
	return &AccessGuard{provider: provider}
}

// Check returns an *AuthError for an empty or invalid token. A provider
// error fails closed: the caller is rejected, not waved through.
func (g *AccessGuard) Check(ctx context.Context, token string) error {
	if token == "" {
		return &AuthError{Code: StatusUnauthorized, Message: "Invalid token"}
	}
	ok, err := g.provider.ValidateToken(ctx, token)
	if err != nil {
		log.Printf("guard: token validation: %v", err)
		return &AuthError{Code: StatusUnauthorized, Message: "Invalid token"}
	}
	if !ok {
		return &AuthError{Code: StatusUnauthorized, Message: "Invalid token"}
	}
	return nil
}
