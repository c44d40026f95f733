package identity

import (
	"context"
	"path/filepath"
	"testing"

	"washcore/config"
	"washcore/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLocalProviderValidatesMintedToken(t *testing.T) {
	db := testDB(t)
	p := NewLocalProvider(db)

	hash, err := HashToken("kiosk-secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := db.CreateAPIToken("kiosk-1", hash); err != nil {
		t.Fatalf("create token: %v", err)
	}

	ok, err := p.ValidateToken(context.Background(), "kiosk-secret")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !ok {
		t.Error("minted token should validate")
	}

	ok, err = p.ValidateToken(context.Background(), "some-other-value")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ok {
		t.Error("unknown token should not validate")
	}
}

func TestLocalProviderRejectsRevokedToken(t *testing.T) {
	db := testDB(t)
	p := NewLocalProvider(db)

	hash, err := HashToken("kiosk-secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := db.CreateAPIToken("kiosk-1", hash); err != nil {
		t.Fatalf("create token: %v", err)
	}
	if err := db.RevokeAPIToken("kiosk-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	ok, err := p.ValidateToken(context.Background(), "kiosk-secret")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ok {
		t.Error("revoked token should not validate")
	}
}

func TestHashTokenNeverStoresPlaintext(t *testing.T) {
	hash, err := HashToken("abc")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "abc" || hash == "" {
		t.Errorf("hash = %q, want bcrypt digest", hash)
	}
}
