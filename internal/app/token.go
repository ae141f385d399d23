package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadToken loads the API token from path. A missing file reads as no
// token; requests then go out without an Authorization header.
func ReadToken(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteToken stores the API token at path with owner-only permissions.
func WriteToken(path, token string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("token file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimSpace(token)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
