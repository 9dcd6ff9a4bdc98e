package env

import (
	"os"
	"strings"
)

// Prefix namespaces every filazero setting.
const Prefix = "FILAZERO_"

// Get returns the first non-blank value of the prefixed key (FILAZERO_<key>) or the bare key,
// falling back when neither is set. Keys that already carry the prefix are read as given.
func Get(key, fallback string) string {
	for _, name := range names(key) {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}

func names(key string) []string {
	if strings.HasPrefix(key, Prefix) {
		return []string{key}
	}
	return []string{Prefix + key, key}
}
