// Package env holds the few environment lookups that happen before the
// typed config is loaded.
package env

import "os"

// Get returns the environment variable's value, or fallback when the
// variable is unset or empty.
func Get(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
