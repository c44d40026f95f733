package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Status is the recorded lifecycle state of a machine.
// AVAILABLE -> AWAITING_DROPOFF -> RUNNING, with a fall to ERROR when the
// physical start fails. There is no recorded path back to AVAILABLE; the
// completion flow that returns a machine to service lives outside this
// service.
type Status string

const (
	StatusAvailable       Status = "AVAILABLE"
	StatusAwaitingDropoff Status = "AWAITING_DROPOFF"
	StatusRunning         Status = "RUNNING"
	StatusError           Status = "ERROR"
)

type Machine struct {
	ID         string    `json:"machineId"`
	LocationID string    `json:"locationId"`
	Status     Status    `json:"status"`
	JobID      *string   `json:"jobId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

const machineSelectCols = `id, location_id, status, job_id, created_at, updated_at`

func scanMachine(row interface{ Scan(...any) error }) (*Machine, error) {
	var m Machine
	var jobID sql.NullString
	var createdAt, updatedAt any
	err := row.Scan(&m.ID, &m.LocationID, &m.Status, &jobID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if jobID.Valid {
		m.JobID = &jobID.String
	}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

func scanMachines(rows *sql.Rows) ([]*Machine, error) {
	var machines []*Machine
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, err
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

func (db *DB) CreateMachine(m *Machine) error {
	if m.Status == "" {
		m.Status = StatusAvailable
	}
	_, err := db.Exec(db.Q(`INSERT INTO machines (id, location_id, status, job_id) VALUES (?, ?, ?, ?)`),
		m.ID, m.LocationID, m.Status, m.JobID)
	if err != nil {
		return fmt.Errorf("create machine: %w", err)
	}
	return nil
}

func (db *DB) GetMachine(id string) (*Machine, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM machines WHERE id=?`, machineSelectCols)), id)
	return scanMachine(row)
}

// ListMachinesAtLocation returns all machines at a location in stable id
// order, so reservation always picks the same first available machine.
func (db *DB) ListMachinesAtLocation(locationID string) ([]*Machine, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM machines WHERE location_id=? ORDER BY id`, machineSelectCols)), locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMachines(rows)
}

func (db *DB) ListMachines() ([]*Machine, error) {
	rows, err := db.Query(fmt.Sprintf(`SELECT %s FROM machines ORDER BY location_id, id`, machineSelectCols))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMachines(rows)
}

func (db *DB) UpdateMachineStatus(id string, status Status) error {
	_, err := db.Exec(db.Q(`UPDATE machines SET status=?, updated_at=datetime('now','localtime') WHERE id=?`),
		status, id)
	if err != nil {
		return fmt.Errorf("update machine status: %w", err)
	}
	return nil
}

func (db *DB) UpdateMachineJob(id, jobID string) error {
	_, err := db.Exec(db.Q(`UPDATE machines SET job_id=?, updated_at=datetime('now','localtime') WHERE id=?`),
		jobID, id)
	if err != nil {
		return fmt.Errorf("update machine job: %w", err)
	}
	return nil
}

func (db *DB) DeleteMachine(id string) error {
	_, err := db.Exec(db.Q(`DELETE FROM machines WHERE id=?`), id)
	return err
}
