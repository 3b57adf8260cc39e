package client

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry extracts the expiry claim from a JWT access token without
// verifying its signature. It exists for logging and health reporting only;
// authorization decisions stay with the backend. The second return is false
// when the token is not a JWT or carries no exp claim.
func TokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// StoredTokenExpiry reports the expiry of the currently stored access token,
// if one is present and introspectable.
func (c *Client) StoredTokenExpiry() (time.Time, bool) {
	token, _, err := c.currentToken()
	if err != nil || token == "" {
		return time.Time{}, false
	}
	return TokenExpiry(token)
}
