package identity

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"washcore/store"
)

// LocalProvider validates tokens against the api_tokens table. Only bcrypt
// hashes are stored; the plaintext token exists once, at mint time.
type LocalProvider struct {
	db *store.DB
}

func NewLocalProvider(db *store.DB) *LocalProvider {
	return &LocalProvider{db: db}
}

func (p *LocalProvider) ValidateToken(_ context.Context, token string) (bool, error) {
	hashes, err := p.db.ListActiveTokenHashes()
	if err != nil {
		return false, fmt.Errorf("list token hashes: %w", err)
	}
	for _, h := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(token)) == nil {
			return true, nil
		}
	}
	return false, nil
}

// HashToken produces the bcrypt hash stored for a newly minted token.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	return string(hash), err
}
