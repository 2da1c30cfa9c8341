package relay

import (
	"fmt"
	"strings"
)

// Subscriber tokens look like "o." followed by a base62 body. The shape
// is checked before any connection attempt so a bad token fails fast.
const (
	tokenPrefix   = "o."
	tokenMinBody  = 16
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// ValidateToken checks the shape of a relay subscriber token.
func ValidateToken(token string) error {
	if !strings.HasPrefix(token, tokenPrefix) {
		return fmt.Errorf("%w: missing %q prefix", ErrBadToken, tokenPrefix)
	}

	body := token[len(tokenPrefix):]
	if len(body) < tokenMinBody {
		return fmt.Errorf("%w: body too short", ErrBadToken)
	}

	for _, r := range body {
		if !strings.ContainsRune(tokenAlphabet, r) {
			return fmt.Errorf("%w: invalid character %q", ErrBadToken, r)
		}
	}

	return nil
}
