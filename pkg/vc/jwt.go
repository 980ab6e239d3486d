package vc

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "vericred/pkg/domain-errors"
)

// jwtVCClaims is the registered-claim subset a JWT-VC carries. The vc claim
// body is kept opaque; only envelope fields feed cache metadata.
type jwtVCClaims struct {
	jwt.RegisteredClaims
	VC map[string]any `json:"vc,omitempty"`
}

// FromJWT extracts the cache-relevant envelope of a JWT-encoded credential:
// issuer and holder DIDs, issuance and expiry instants, and the vc body.
//
// The token signature is deliberately NOT verified here; signature-algorithm
// checks belong to the verification collaborator. The parse is structural only.
func FromJWT(token string) (*Credential, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "JWT credential cannot be empty")
	}

	var claims jwtVCClaims
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed JWT credential")
	}

	cred := &Credential{
		Raw:    token,
		Claims: claims.VC,
	}

	if claims.ID != "" {
		cred.ID = claims.ID
	}
	if claims.Issuer != "" {
		issuer, err := ParseDID(claims.Issuer)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "JWT iss is not a DID")
		}
		cred.Issuer = issuer
	}
	if claims.Subject != "" {
		holder, err := ParseDID(claims.Subject)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "JWT sub is not a DID")
		}
		cred.Holder = holder
	}
	if claims.IssuedAt != nil {
		cred.IssuedAt = timePtr(claims.IssuedAt.Time)
	}
	if claims.ExpiresAt != nil {
		cred.ExpiresAt = timePtr(claims.ExpiresAt.Time)
	}

	// Some issuers put the credential type list inside the vc body.
	if types, ok := claims.VC["type"].([]any); ok {
		for _, tt := range types {
			if s, ok := tt.(string); ok {
				cred.Types = append(cred.Types, s)
			}
		}
	}

	return cred, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
