package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	MerchantID uuid.UUID
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to the merchant admin UI.
type AccessTokenClaims struct {
	MerchantID uuid.UUID `json:"merchant_id"`
	jwt.RegisteredClaims
}
