// Package identity implements the engine's identity-provider contract.
//
// The provider hands the engine a stable rider identifier plus the profile
// fields (name, email) that are copied onto a rider entry at creation time.
// Here that contract is carried by signed JWTs: the upstream auth system
// mints tokens with rider claims, and this package validates them.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
)

// Roles recognized in token claims. Drivers may verify boarding codes;
// riders may manage their own subscriptions.
const (
	RoleRider  = "rider"
	RoleDriver = "driver"
)

// Claims are the rider claims carried in an access token.
type Claims struct {
	RiderID string `json:"rider_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService validates (and for tests, mints) rider access tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewTokenService(signingKey, issuer, audience string) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateToken mints a signed token for the given rider. Production tokens
// come from the upstream auth system; this exists for tests and local dev.
func (s *TokenService) GenerateToken(riderID, name, email, role string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RiderID: riderID,
		Name:    name,
		Email:   email,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			Subject:   riderID,
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning its rider claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.RiderID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no rider id")
	}
	return claims, nil
}
