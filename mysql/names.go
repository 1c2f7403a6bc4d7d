package mysql

import (
	"fmt"
	"strings"
)

// sanitizeTableName accepts plain or schema-qualified identifiers built
// from ASCII letters, digits and underscores. Anything else is rejected
// before it can reach an interpolated statement.
func sanitizeTableName(name string) (string, error) {
	if name == "" {
		return "", ErrTableNameRequired
	}
	for _, part := range strings.Split(name, ".") {
		if !validIdentifier(part) {
			return "", fmt.Errorf("%w: %q", ErrInvalidTableName, name)
		}
	}

	return name, nil
}

func validIdentifier(part string) bool {
	if part == "" {
		return false
	}
	for _, r := range part {
		switch {
		case r == '_':
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}

	return true
}
