package utils

import (
	"os"
	"time"

	"github.com/bidzi/bidzi-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued session token stays valid. Mobile sessions
// are long-lived; there is no refresh-token flow.
const TokenTTL = 7 * 24 * time.Hour

func GenerateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"id":       user.ID,
		"email":    user.Email,
		"userType": user.UserType,
		"exp":      time.Now().Add(TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

func ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
}
