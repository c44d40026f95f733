// Package identity validates caller tokens. The orchestrator consumes it
// as a boolean capability; which backend answers is a config concern.
package identity

import "context"

type Provider interface {
	ValidateToken(ctx context.Context, token string) (bool, error)
}
