package store

import (
	"time"
)

type APIToken struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	TokenHash string    `json:"-"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

func (db *DB) CreateAPIToken(name, tokenHash string) error {
	_, err := db.Exec(db.Q(`INSERT INTO api_tokens (name, token_hash) VALUES (?, ?)`), name, tokenHash)
	return err
}

func (db *DB) RevokeAPIToken(name string) error {
	_, err := db.Exec(db.Q(`UPDATE api_tokens SET revoked=1 WHERE name=?`), name)
	return err
}

// ListActiveTokenHashes returns the bcrypt hashes of every non-revoked token.
func (db *DB) ListActiveTokenHashes() ([]string, error) {
	rows, err := db.Query(`SELECT token_hash FROM api_tokens WHERE revoked=0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func (db *DB) ListAPITokens() ([]*APIToken, error) {
	rows, err := db.Query(`SELECT id, name, token_hash, revoked, created_at FROM api_tokens ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tokens []*APIToken
	for rows.Next() {
		var t APIToken
		var revoked int
		var createdAt any
		if err := rows.Scan(&t.ID, &t.Name, &t.TokenHash, &revoked, &createdAt); err != nil {
			return nil, err
		}
		t.Revoked = revoked != 0
		t.CreatedAt = parseTime(createdAt)
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}
