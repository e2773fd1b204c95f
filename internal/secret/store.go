package secret

import (
	"fmt"
	"strings"
)

// Keys used by the application.
const (
	DBPasswordKey = "db-password"
	MongoURIKey   = "mongo-uri"
)

// SecretStore provides a pluggable interface for sensitive data such as
// the database password. Backends: environment variables (default) and the
// macOS Keychain.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Open returns the store for a backend name ("env" or "keychain").
func Open(backend string) (SecretStore, error) {
	switch backend {
	case "", "env":
		return NewEnvStore(), nil
	case "keychain":
		return NewKeychainStore(), nil
	}
	return nil, fmt.Errorf("unknown secret backend %q", backend)
}

// GetString is Get for text secrets, with surrounding space trimmed.
func GetString(s SecretStore, key string) (string, error) {
	v, err := s.Get(key)
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", key, err)
	}
	return strings.TrimSpace(string(v)), nil
}
