package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerateToken issues a signed access token for a fleet user. The identity
// service is the normal issuer; this is used by tooling and tests.
func GenerateToken(userID primitive.ObjectID, userType, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":   userID.Hex(),
		"user_type": userType,
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
		"iss":       AppName,
		"sub":       userID.Hex(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
