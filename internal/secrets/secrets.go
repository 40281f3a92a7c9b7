// Package secrets resolves credentials referenced from configuration:
// ${VAR} and ${VAR:-default} expansion, and files mounted as Docker or
// Kubernetes secrets.
package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lemonscanner/lemon-scanner/internal/errors"
)

// maxSecretFileSize limits secret file reads; secrets are tokens and passwords.
const maxSecretFileSize = 64 * 1024

// ExpandString resolves ${VAR} and ${VAR:-default} references in s.
// A referenced variable that is unset and has no default is an error.
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", errors.Newf("missing required environment variable(s): %s", strings.Join(missing, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return expanded, nil
}

// ReadFile reads a secret from path, trimming trailing newlines. Directories,
// empty files and files over 64 KiB are rejected.
func ReadFile(path string) (string, error) {
	cleanPath := filepath.Clean(path)
	fail := func(err error) (string, error) {
		return "", errors.New(err).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Context("path", cleanPath).
			Build()
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return fail(err)
	}
	switch {
	case !info.Mode().IsRegular():
		return fail(errors.NewStd("secret path is not a regular file"))
	case info.Size() > maxSecretFileSize:
		return fail(errors.NewStd("secret file too large"))
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fail(err)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return fail(errors.NewStd("secret file is empty"))
	}
	return secret, nil
}

// Resolve returns the secret from filePath when set, otherwise value with
// environment references expanded.
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		return ReadFile(filePath)
	}
	return ExpandString(value)
}
