package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// ResolveSecret returns the value of envName, honoring the *_FILE convention:
// when envName_FILE is set, the secret is read from that path and trimmed.
// An unset secret resolves to the empty string.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	path := os.Getenv(fileEnv)
	if path == "" {
		return os.Getenv(envName), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, path, err)
	}
	return strings.TrimSpace(string(content)), nil
}

// MustResolveSecret is ResolveSecret for startup: a read failure is fatal.
// The error never includes the secret content.
func MustResolveSecret(envName string) string {
	value, err := ResolveSecret(envName)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return value
}
