package security

import (
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles recognised by the API. Workers may clock; managers and admins may
// additionally edit entries; service is for internal tooling (replay,
// sweeps) acting on behalf of workers.
const (
	RoleWorker  = "worker"
	RoleManager = "manager"
	RoleAdmin   = "admin"
	RoleService = "service"
)

type CrewIdentity struct {
	WorkerID int32
	Code     string
	Email    string
	Company  string
	Role     string
}

type Identity struct {
	WorkerID int32  `json:"workerId"`
	Code     string `json:"code"`
	Email    string `json:"email"`
	Company  string `json:"company"`
	Role     string `json:"role"`
}

type IdentityClaims struct {
	Identity
	jwt.RegisteredClaims
}

// CreateIdentityToken mints an HS256 token for a worker or service identity.
// The secret is base64-encoded, matching how the platform distributes it.
func CreateIdentityToken(identity *CrewIdentity, base64Secret string, expiresInSeconds int64) (string, error) {
	secretBytes, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return "", err
	}
	claims := IdentityClaims{
		Identity: Identity{
			WorkerID: identity.WorkerID,
			Code:     identity.Code,
			Email:    identity.Email,
			Company:  identity.Company,
			Role:     identity.Role,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "crewclock",
			Audience:  []string{"*.crewclock.app"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expiresInSeconds) * time.Second)),
		},
	}

	// Use HS256 signing method (symmetric key)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secretBytes))
}
