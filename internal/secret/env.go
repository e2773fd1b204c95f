package secret

import (
	"os"
	"strings"
)

const envPrefix = "PAGEBUILDER_SECRET_"

// EnvStore reads secrets from environment variables: key "db-password" is
// PAGEBUILDER_SECRET_DB_PASSWORD. Set and Delete affect this process only.
type EnvStore struct{}

func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

// EnvVar returns the variable name that holds key.
func EnvVar(key string) string {
	return envPrefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

func (e *EnvStore) Set(key string, value []byte) error {
	return os.Setenv(EnvVar(key), string(value))
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	v, ok := os.LookupEnv(EnvVar(key))
	if !ok || v == "" {
		return nil, nil
	}
	return []byte(v), nil
}

func (e *EnvStore) Delete(key string) error {
	return os.Unsetenv(EnvVar(key))
}
