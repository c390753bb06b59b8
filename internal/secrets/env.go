package secrets

import (
	"fmt"
	"os"
	"strings"
)

// DecryptEnviron scans the process environment for ENC[age:...] values
// and replaces them in-place with their plaintext. Returns the names of
// the variables decrypted. A missing key file is only an error when an
// encrypted value actually exists.
func DecryptEnviron(keyPath string) ([]string, error) {
	var encrypted []string
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok && IsEncrypted(value) {
			encrypted = append(encrypted, key)
		}
	}
	if len(encrypted) == 0 {
		return nil, nil
	}

	identity, err := LoadIdentity(keyPath)
	if err != nil {
		return nil, fmt.Errorf("load age key for encrypted env: %w", err)
	}

	for _, key := range encrypted {
		plaintext, err := Decrypt(os.Getenv(key), identity)
		if err != nil {
			return nil, fmt.Errorf("decrypt %s: %w", key, err)
		}
		os.Setenv(key, plaintext)
	}
	return encrypted, nil
}
