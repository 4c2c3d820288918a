// Package auth verifies access tokens issued by the hosted auth service.
// This service never issues tokens itself.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/storefront/internal/common"
)

// Claims is the identity carried by a verified token.
type Claims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type claimsKey struct{}

// WithClaims stores verified claims on the context.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the verified claims of the request, if any.
func ClaimsFrom(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}

// Verifier checks HS256 access tokens signed with the shared project secret.
type Verifier struct {
	secret    []byte
	validator TokenValidator
	now       func() time.Time
}

// NewVerifier builds a verifier. Issuer and audience are checked only when set.
func NewVerifier(secret, issuer, audience string, skew time.Duration) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: skew,
			Algorithm: jwa.HS256,
		},
		now: time.Now,
	}
}

// WithRole requires the token "role" claim to equal role.
func (v *Verifier) WithRole(role string) *Verifier {
	v.validator.Role = strings.TrimSpace(role)
	return v
}

// WithClock overrides the verification clock.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	if now != nil {
		v.now = now
	}
	return v
}

func unauthorized(err error) error {
	return common.Unauthorized("", "invalid token", err)
}

// Verify parses the token, checks its signature and validates its claims.
func (v *Verifier) Verify(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, common.Unauthorized("", "missing token", nil)
	}
	if len(v.secret) == 0 {
		return Claims{}, unauthorized(errors.New("auth: verifier has no secret"))
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, unauthorized(err)
	}
	if v.validator.Algorithm != "" && algorithm != v.validator.Algorithm {
		return Claims{}, unauthorized(fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, unauthorized(err)
	}
	if err := v.validator.Validate(parsed, algorithm, v.now()); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return Claims{}, common.Unauthorized("TOKEN_EXPIRED", "token expired", err)
		}
		return Claims{}, unauthorized(err)
	}
	return claimsFromToken(parsed), nil
}

func claimsFromToken(tok jwt.Token) Claims {
	c := Claims{UserID: tok.Subject()}
	if v, ok := tok.Get("email"); ok {
		c.Email, _ = v.(string)
	}
	if v, ok := tok.Get("user_metadata"); ok {
		if meta, ok := v.(map[string]any); ok {
			c.FullName, _ = meta["full_name"].(string)
			c.Phone, _ = meta["phone"].(string)
		}
	}
	if c.Phone == "" {
		if v, ok := tok.Get("phone"); ok {
			c.Phone, _ = v.(string)
		}
	}
	return c
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", fmt.Errorf("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
