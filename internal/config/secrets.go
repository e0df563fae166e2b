package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads a credential for name. A <name>_FILE environment
// variable pointing at an existing file wins (contents are trimmed);
// otherwise the <name> environment variable is used directly. Returns ""
// when neither source yields a value.
func ResolveSecret(name string) string {
	if path := os.Getenv(name + "_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return os.Getenv(name)
}

// MissingSecretsError reports every missing required credential at once so
// the operator can fix the whole environment in one pass.
type MissingSecretsError struct {
	Names []string
}

func (e *MissingSecretsError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "missing required credentials: %s\n", strings.Join(e.Names, ", "))
	b.WriteString("set the following environment variables:\n")
	for _, name := range e.Names {
		fmt.Fprintf(&b, "  - %s_FILE (path to a file containing the value)\n", name)
		fmt.Fprintf(&b, "  - or %s (direct value)\n", name)
	}
	return b.String()
}

// requiredSecrets resolves every name and returns the values keyed by name,
// or a MissingSecretsError naming all absent ones.
func requiredSecrets(names ...string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	var missing []string
	for _, name := range names {
		value := ResolveSecret(name)
		if value == "" {
			missing = append(missing, name)
			continue
		}
		values[name] = value
	}
	if len(missing) > 0 {
		return nil, &MissingSecretsError{Names: missing}
	}
	return values, nil
}
