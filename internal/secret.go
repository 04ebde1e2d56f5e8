package internal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const secretScheme = "op://"

var (
	// CommandContext allows overriding the command creation for testing
	CommandContext = exec.CommandContext
	// LookPath allows overriding the lookup behavior for testing
	LookPath = exec.LookPath
)

// IsSecretReference reports whether value is a 1Password secret reference
func IsSecretReference(value string) bool {
	return strings.HasPrefix(value, secretScheme)
}

// ResolveSecretReference resolves a 1Password secret reference (op://vault/item/field)
// with the op CLI. Values without the op:// prefix are returned unchanged.
// The boolean result reports whether value was a reference.
func ResolveSecretReference(ctx context.Context, value string) (string, bool, error) {
	if !IsSecretReference(value) {
		return value, false, nil
	}

	segments := strings.Split(strings.TrimPrefix(value, secretScheme), "/")
	if len(segments) < 3 {
		return "", true, fmt.Errorf("malformed secret reference %q: expected op://vault/item/field", value)
	}
	for _, segment := range segments {
		if segment == "" {
			return "", true, fmt.Errorf("malformed secret reference %q: empty segment", value)
		}
	}

	if _, err := LookPath("op"); err != nil {
		return "", true, fmt.Errorf("1Password CLI (op) not found in PATH: %w", err)
	}

	cmd := CommandContext(ctx, "op", "read", "--no-newline", value)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", true, fmt.Errorf("failed to read secret from 1Password: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", true, fmt.Errorf("failed to read secret from 1Password: %w", err)
	}

	return strings.TrimSpace(string(output)), true, nil
}
