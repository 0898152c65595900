package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access-token payload issued by the identity provider.
type JWTClaims struct {
	UserID     int64  `json:"uid"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}
