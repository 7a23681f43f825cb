package auth

import "linkarbox/internal/domain/models"

// JWTVerifier checks Supabase access tokens for the auth middleware
type JWTVerifier interface {
	// VerifyToken returns the claims of a valid, unexpired token signed by a
	// key from the project's JWKS.
	VerifyToken(tokenString string) (*models.SupabaseClaims, error)

	// Close stops the background JWKS refresh
	Close() error
}
