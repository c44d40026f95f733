// Package device talks to the physical machines. A start cycle either
// succeeds or fails; the recorded-state consequences of a failure belong
// to the orchestrator, not to this package.
package device

import "context"

type Controller interface {
	StartCycle(ctx context.Context, machineID string) error
}
