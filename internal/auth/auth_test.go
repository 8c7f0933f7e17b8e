package auth

import (
	"context"
	"errors"
	"testing"
)

func TestHashKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "key with whitespace trimmed",
			input:    "  test-api-key  ",
			expected: HashKey("test-api-key"),
		},
		{
			name:     "empty string",
			input:    "",
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", // SHA256 of empty
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HashKey(tt.input)
			if len(result) != 64 {
				t.Errorf("HashKey() returned %d chars, want 64", len(result))
			}
			if result != tt.expected {
				t.Errorf("HashKey() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestHashKey_Deterministic(t *testing.T) {
	key := "my-secret-key"
	hash1 := HashKey(key)
	hash2 := HashKey(key)

	if hash1 != hash2 {
		t.Errorf("HashKey is not deterministic: %v != %v", hash1, hash2)
	}
}

func TestHashKey_DifferentInputsDifferentOutputs(t *testing.T) {
	hash1 := HashKey("key1")
	hash2 := HashKey("key2")

	if hash1 == hash2 {
		t.Error("Different keys produced same hash")
	}
}

func TestStaticAuthenticator(t *testing.T) {
	a := NewStaticAuthenticator(map[string]string{
		"token-one": "user-1",
		"token-two": "user-2",
	})

	userID, err := a.Authenticate(context.Background(), "token-one")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("got user id %q, want user-1", userID)
	}

	_, err = a.Authenticate(context.Background(), "token-unknown")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}

func TestStaticAuthenticator_NeverStoresClearTokens(t *testing.T) {
	a := NewStaticAuthenticator(map[string]string{"secret": "user-1"})

	if _, ok := a.users["secret"]; ok {
		t.Error("raw token must not be a map key")
	}
	if _, ok := a.users[HashKey("secret")]; !ok {
		t.Error("hashed token missing from map")
	}
}
