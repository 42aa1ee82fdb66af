package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Admin back-office roles. Any of these grants access to the admin surface.
const (
	RoleSuperAdmin             = "SUPER_ADMIN"
	RoleAdmin                  = "ADMIN"
	RoleGestorEmpresas         = "GESTOR_EMPRESAS"
	RoleGestorAdministraciones = "GESTOR_ADMINISTRACIONES"
	RoleGestorContenido        = "GESTOR_CONTENIDO"
)

// AdminRoles lists every role allowed on the admin routes.
var AdminRoles = []string{
	RoleSuperAdmin,
	RoleAdmin,
	RoleGestorEmpresas,
	RoleGestorAdministraciones,
	RoleGestorContenido,
}

// Claims represents JWT claims. PrimaryRole mirrors Role for tokens issued
// by the identity service, which sets either field.
type Claims struct {
	UserID      string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role,omitempty"`
	PrimaryRole string `json:"primaryRole,omitempty"`
	jwt.RegisteredClaims
}

// EffectiveRole returns whichever role claim the token carries.
func (c *Claims) EffectiveRole() string {
	if c.Role != "" {
		return c.Role
	}
	return c.PrimaryRole
}

// GenerateJWT generates a new JWT token
func GenerateJWT(userID, email, role, secret string, expirationHours int) (string, error) {
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * time.Duration(expirationHours))),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
