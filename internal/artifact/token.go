package artifact

import (
	"fmt"
	"strings"
)

// Src builds the public retrieval path for an id.
func Src(id ID) string {
	return "/images/" + id.String() + DisplayExtension
}

// IDFromToken returns the segment of token preceding the first '.'.
// It does not validate the id itself; see IDGenerator.Parse.
func IDFromToken(token string) (string, error) {
	raw, _, _ := strings.Cut(token, ".")
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("token %q: %w", token, ErrInvalidID)
	}
	return raw, nil
}
