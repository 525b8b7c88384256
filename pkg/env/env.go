// Package env reads process environment variables with defaults, for
// the few knobs that live outside the typed config.
package env

import "os"

// Get returns the named variable's value, or fallback when it is unset
// or empty.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
