package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonscanner/lemon-scanner/internal/errors"
)

// Tests that set environment variables cannot run in parallel.

func TestExpandString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		env     map[string]string
		want    string
		wantErr bool
	}{
		{name: "empty string", input: "", want: ""},
		{name: "literal", input: "literal-value", want: "literal-value"},
		{name: "simple variable", input: "${LS_TOKEN}", env: map[string]string{"LS_TOKEN": "secret123"}, want: "secret123"},
		{name: "prefix and suffix", input: "Bearer ${LS_TOKEN}", env: map[string]string{"LS_TOKEN": "abc"}, want: "Bearer abc"},
		{name: "multiple variables", input: "${LS_USER}:${LS_PASS}", env: map[string]string{"LS_USER": "admin", "LS_PASS": "pw"}, want: "admin:pw"},
		{name: "default unused", input: "${LS_TOKEN:-fallback}", env: map[string]string{"LS_TOKEN": "actual"}, want: "actual"},
		{name: "default used", input: "${LS_TOKEN:-fallback}", want: "fallback"},
		{name: "empty default", input: "x${LS_TOKEN:-}y", want: "xy"},
		{name: "missing variable", input: "${LS_MISSING}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LS_TOKEN", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := ExpandString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
				assert.Contains(t, err.Error(), "LS_MISSING")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "trailing newline trimmed", path: write("pw", "hunter2\n"), want: "hunter2"},
		{name: "windows newline trimmed", path: write("crlf", "hunter2\r\n"), want: "hunter2"},
		{name: "inner spaces kept", path: write("spaces", " a b "), want: " a b "},
		{name: "empty file", path: write("empty", "\n"), wantErr: true},
		{name: "too large", path: write("large", strings.Repeat("x", maxSecretFileSize+1)), wantErr: true},
		{name: "directory", path: dir, wantErr: true},
		{name: "missing", path: filepath.Join(dir, "absent"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadFile(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePrefersFile(t *testing.T) {
	t.Setenv("LS_PASSWORD", "from-env")
	path := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	got, err := Resolve(path, "${LS_PASSWORD}")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = Resolve("", "${LS_PASSWORD}")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Resolve("", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}
