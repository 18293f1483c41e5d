// Package auth implements the capability-token scheme hinted at by the
// teacher's cmd/createtoken and cmd/shoveler-status: an RS256-signed JWT
// naming a "read:<session_id>" scope, issued with golang-jwt v3 (matching
// createtoken's API) and verified with golang-jwt v4 (matching
// shoveler-status's API), split the same way across the two binaries that
// use them.
package auth

import (
	"crypto/rsa"
	"time"

	jwtv3 "github.com/golang-jwt/jwt"
)

// ReadScope is the capability a session read-token grants.
func ReadScope(sessionID string) string {
	return "read:" + sessionID
}

type readCapabilityClaims struct {
	Scope string `json:"scope"`
	jwtv3.StandardClaims
}

// IssueReadCapability signs a capability token granting read access to
// sessionID, valid for ttl, the same RS256 + "kid" header shape as
// createtoken's main.go.
func IssueReadCapability(privateKey *rsa.PrivateKey, sessionID string, ttl time.Duration) (string, error) {
	claims := readCapabilityClaims{
		Scope: ReadScope(sessionID),
		StandardClaims: jwtv3.StandardClaims{
			ExpiresAt: time.Now().Add(ttl).Unix(),
			Issuer:    "fx3-capture-index",
			Audience:  "fx3-capture-index",
			Subject:   "ingestd",
		},
	}

	token := jwtv3.NewWithClaims(jwtv3.SigningMethodRS256, claims)
	token.Header["kid"] = "fx3-capture-index"
	return token.SignedString(privateKey)
}
