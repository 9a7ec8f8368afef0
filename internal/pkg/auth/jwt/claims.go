package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims the external authenticator issues for a session.
// The coordination core treats the Identity claim as an opaque, verified string;
// it keys rate limiting and message ownership, and nothing here owns its issuance.
type Payload struct {
	// StandardClaims embeds Exp, Iat, and Iss, required for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// Identity is the authenticated actor string associated with the connection.
	Identity string `json:"identity"`

	// DisplayName is the presentation name carried alongside the identity.
	DisplayName string `json:"display_name"`
}
