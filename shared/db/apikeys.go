package db

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// CreateAPIKey mints a new gateway API key for a user. The full key is
// returned exactly once; only its SHA-256 hash is stored.
func CreateAPIKey(ctx context.Context, db *sql.DB, tenantID, userID, name string) (fullKey, id string, err error) {
	fullKey, prefix, hash, err := generateAPIKey()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate API key: %w", err)
	}

	query := `
		INSERT INTO api_keys (tenant_id, user_id, name, key_hash, key_prefix)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	if err := db.QueryRowContext(ctx, query, tenantID, userID, name, hash, prefix).Scan(&id); err != nil {
		return "", "", fmt.Errorf("failed to create API key: %w", err)
	}
	return fullKey, id, nil
}

// HashAPIKey maps a presented key to its stored hash.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func generateAPIKey() (fullKey, prefix, hash string, err error) {
	bytes := make([]byte, 32)
	if _, err = rand.Read(bytes); err != nil {
		return "", "", "", err
	}

	fullKey = "tag-" + hex.EncodeToString(bytes)
	prefix = fullKey[:8] + "..."
	hash = HashAPIKey(fullKey)
	return fullKey, prefix, hash, nil
}
