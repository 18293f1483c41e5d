package auth

import (
	jwtv4 "github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

// VerifyReadCapability parses and validates tokenString against publicKeyPEM,
// returning nil if and only if the token is well-formed, unexpired, and
// carries the "read:<sessionID>" scope, the same RS256-only parser shape as
// shoveler-status's CheckToken.
func VerifyReadCapability(tokenString string, publicKeyPEM []byte, sessionID string) error {
	pubKey, err := jwtv4.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return errors.Wrap(err, "auth: parse public key")
	}

	parser := jwtv4.NewParser(jwtv4.WithValidMethods([]string{"RS256"}))
	token, err := parser.Parse(tokenString, func(*jwtv4.Token) (interface{}, error) {
		return pubKey, nil
	})
	if err != nil {
		return errors.Wrap(err, "auth: invalid token")
	}

	claims, ok := token.Claims.(jwtv4.MapClaims)
	if !ok {
		return errors.New("auth: unexpected claims type")
	}

	want := ReadScope(sessionID)
	if claims["scope"] != want {
		return errors.Errorf("auth: token scope %v does not grant %q", claims["scope"], want)
	}
	return nil
}
