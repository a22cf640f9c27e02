package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sabzico/fulfillment-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT. Tokens
// are normally minted by the identity provider; this mirror exists for tests
// and local tooling.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	Role      enums.ActorRole
	VendorID  *uuid.UUID
	PartnerID *uuid.UUID
	JTI       string
}

// AccessTokenClaims represents the typed JWT presented by callers.
type AccessTokenClaims struct {
	UserID    uuid.UUID       `json:"user_id"`
	Role      enums.ActorRole `json:"role"`
	VendorID  *uuid.UUID      `json:"vendor_id,omitempty"`
	PartnerID *uuid.UUID      `json:"partner_id,omitempty"`
	jwt.RegisteredClaims
}
