package store

import (
	"encoding/base64"
	"fmt"
)

// EncodeCursor creates an opaque cursor from a backend position key. The
// position key is the backend's own resume point (an index key for Badger,
// a keyset pair for SQLite); callers treat the result as a black box.
func EncodeCursor(key string) string {
	if key == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor decodes a cursor back to the backend position key.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("invalid cursor: %w", err)
	}

	return string(decoded), nil
}
