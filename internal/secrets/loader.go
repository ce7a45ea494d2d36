package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const fileMode = 0o600

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// Env names an environment variable holding the secret. It is used when
	// Value is empty.
	Env string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value and Env.
	File string
}

// Load returns the trimmed secret. File wins over Value, Value wins over Env.
// An error is returned when no source contains a usable secret.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		src.Value = string(data)
		src.File = file
	}

	if strings.TrimSpace(src.Value) == "" && src.File == "" && src.Env != "" {
		src.Value = os.Getenv(src.Env)
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.File != "" {
			return "", fmt.Errorf("%s file %q is empty", name, src.File)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}

// Store writes the secret to path readable only by the owner, creating parent
// directories when needed.
func Store(path, secret string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("secret path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating directory for %q: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(strings.TrimSpace(secret)+"\n"), fileMode); err != nil {
		return fmt.Errorf("writing secret to %q: %w", path, err)
	}

	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, fileMode)
}
