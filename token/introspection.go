package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// ErrMalformedToken is returned when the access token is not a readable JWT.
var ErrMalformedToken = errors.New("malformed access token")

// Introspection is the client side view of an access token. The signature is not
// verified; the backend remains the authority, this is only used to report expiry.
type Introspection struct {
	Subject   string    `json:"sub,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"` // Zero when the token carries no exp claim
}

// Inspect reads the claims of rawToken without verifying its signature.
func Inspect(rawToken string) (*Introspection, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrMalformedToken
	}

	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}

	// The backend issues numeric subjects, so sub is read loosely.
	in := &Introspection{
		Subject: claimString(claims["sub"]),
		Email:   claimString(claims["email"]),
		Role:    claimString(claims["role"]),
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		in.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		in.ExpiresAt = exp.Time
	}
	return in, nil
}

func claimString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// Expired reports whether the token is past its exp claim at now. Opaque tokens and
// tokens without exp are never considered expired here; the server decides with a 401.
func (i *Introspection) Expired(now time.Time) bool {
	if i == nil || i.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(i.ExpiresAt)
}

// OAuth2 wraps the raw tokens in an oauth2.Token, filling Expiry when the access
// token is a JWT.
func OAuth2(accessToken, refreshToken string) *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}
	if in, err := Inspect(accessToken); err == nil {
		t.Expiry = in.ExpiresAt
	}
	return t
}
