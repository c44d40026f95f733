package orchestrator

import (
	"net/http"

	"washcore/store"
)

// Response codes carried in the envelope. HardwareError is a domain code:
// the request was well-formed but the physical start failed, which is
// neither a client error nor a fault in this service.
const (
	StatusOK                  = http.StatusOK
	StatusBadRequest          = http.StatusBadRequest
	StatusUnauthorized        = http.StatusUnauthorized
	StatusNotFound            = http.StatusNotFound
	StatusInternalServerError = http.StatusInternalServerError
	StatusHardwareError       = 560
)

// Result is the normalized outcome of an operation. Machine is nil for
// codes that carry no record; for BadRequest on Start it carries the
// current, unmutated record so the caller can recheck state.
type Result struct {
	Code    int            `json:"statusCode"`
	Machine *store.Machine `json:"machine"`
}

// MachineStore is the authoritative record store consumed by the service.
type MachineStore interface {
	ListMachinesAtLocation(locationID string) ([]*store.Machine, error)
	GetMachine(id string) (*store.Machine, error)
	UpdateMachineStatus(id string, status store.Status) error
	UpdateMachineJob(id, jobID string) error
}
