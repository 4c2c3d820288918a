package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrRoleMismatch is returned for tokens minted for another role, such as
// the public anon key or a service key.
var ErrRoleMismatch = errors.New("auth: token role not accepted")

// TokenValidator checks the claims of a parsed access token.
type TokenValidator struct {
	Issuer    string
	Audience  string
	Role      string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate checks algorithm, subject, time bounds, issuer, audience and role.
// Issuer, audience and role are only enforced when configured.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}
	if algorithm == "" {
		return errors.New("auth: token missing algorithm")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithRequiredClaim(jwt.SubjectKey),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	if v.Role != "" {
		options = append(options, jwt.WithValidator(roleValidator(v.Role)))
	}
	return jwt.Validate(tok, options...)
}

func roleValidator(role string) jwt.Validator {
	return jwt.ValidatorFunc(func(_ context.Context, tok jwt.Token) jwt.ValidationError {
		raw, ok := tok.Get("role")
		if !ok {
			return jwt.NewValidationError(fmt.Errorf("%w: missing role", ErrRoleMismatch))
		}
		if got, _ := raw.(string); got != role {
			return jwt.NewValidationError(fmt.Errorf("%w: %v", ErrRoleMismatch, raw))
		}
		return nil
	})
}
