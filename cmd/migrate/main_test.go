package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/crm/dashboard/internal/infrastructure/auth"
	"github.com/crm/dashboard/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHashPassword(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"hash-password"}, args...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestHashPasswordCommand(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		password string
	}{
		{"argument", "", []string{"s3cure-pass"}, "s3cure-pass"},
		{"stdin line", "from-stdin\n", nil, "from-stdin"},
		{"stdin without newline", "no-newline", nil, "no-newline"},
		{"stdin crlf", "windows\r\n", nil, "windows"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hash, err := runHashPassword(t, tc.stdin, tc.args...)
			require.NoError(t, err)

			checker := auth.NewCredentialChecker(config.AuthConfig{
				Username:     "admin",
				PasswordHash: hash,
				Role:         "admin",
			})
			_, err = checker.Verify("admin", tc.password)
			assert.NoError(t, err)
			_, err = checker.Verify("admin", tc.password+"x")
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		})
	}
}

func TestHashPasswordCommand_Empty(t *testing.T) {
	_, err := runHashPassword(t, "\n")
	assert.ErrorContains(t, err, "must not be empty")

	_, err = runHashPassword(t, "")
	assert.Error(t, err)
}
