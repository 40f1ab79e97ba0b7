package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// decodeExpiry extracts the exp claim from a JWT without verifying its
// signature. The client never holds the signing key; it only needs the
// expiry to decide when to refresh. Malformed tokens, tokens without an
// exp claim and empty strings all report ok=false rather than erroring.
func decodeExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// expiryCache memoizes the decoded expiry of the most recently seen token
// value so repeated validity checks do not re-parse the JWT.
type expiryCache struct {
	mu    sync.Mutex
	token string
	exp   time.Time
	ok    bool
}

func (c *expiryCache) expiry(token string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token {
		c.token = token
		c.exp, c.ok = decodeExpiry(token)
	}
	return c.exp, c.ok
}
