package db

import (
	"strings"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	fullKey, prefix, hash, err := generateAPIKey()
	if err != nil {
		t.Fatalf("generateAPIKey: %v", err)
	}

	if !strings.HasPrefix(fullKey, "tag-") {
		t.Errorf("key %q missing tag- prefix", fullKey)
	}
	if len(fullKey) != 4+64 {
		t.Errorf("key length = %d, want 68", len(fullKey))
	}
	if !strings.HasPrefix(prefix, "tag-") || !strings.HasSuffix(prefix, "...") {
		t.Errorf("display prefix %q malformed", prefix)
	}
	if len(prefix) != 11 {
		t.Errorf("display prefix length = %d, want 11", len(prefix))
	}
	if hash != HashAPIKey(fullKey) {
		t.Error("stored hash does not match the key")
	}
}

func TestGenerateAPIKeyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		key, _, _, err := generateAPIKey()
		if err != nil {
			t.Fatalf("generateAPIKey: %v", err)
		}
		if seen[key] {
			t.Fatal("duplicate key generated")
		}
		seen[key] = true
	}
}

func TestHashAPIKeyStable(t *testing.T) {
	a := HashAPIKey("tag-abc")
	b := HashAPIKey("tag-abc")
	if a != b {
		t.Error("hash should be deterministic")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
	if a == HashAPIKey("tag-abd") {
		t.Error("distinct keys should hash differently")
	}
}
