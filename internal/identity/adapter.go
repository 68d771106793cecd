package identity

import (
	"github.com/brahimakil/buscollege-mobile-sub000/internal/platform/middleware"
)

// MiddlewareAdapter adapts TokenService to the transport middleware's
// validator interface, keeping the middleware package free of jwt types.
type MiddlewareAdapter struct {
	tokens *TokenService
}

// NewMiddlewareAdapter wraps a TokenService for use with RequireAuth.
func NewMiddlewareAdapter(tokens *TokenService) *MiddlewareAdapter {
	return &MiddlewareAdapter{tokens: tokens}
}

// ValidateToken implements middleware.TokenValidator.
func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.AuthClaims, error) {
	claims, err := a.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.AuthClaims{
		RiderID: claims.RiderID,
		Name:    claims.Name,
		Email:   claims.Email,
		Role:    claims.Role,
	}, nil
}
