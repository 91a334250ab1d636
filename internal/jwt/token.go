package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainerrors "drone-fleet/internal/errors"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleAdmin, RoleOperator, RoleStaff, RoleCustomer:
		return r, true
	}
	return "", false
}

type Claims struct {
	Sub  string `json:"sub"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

// Service validates bearer tokens. Tokens are issued by the identity
// provider; Sign exists for tooling and tests.
type Service struct {
	secret []byte
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

func (s *Service) Sign(sub string, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domainerrors.NewUnauthorized("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, domainerrors.NewUnauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domainerrors.NewUnauthorized("invalid token claims")
	}
	if claims.Sub == "" {
		return nil, domainerrors.NewUnauthorized("token has no subject")
	}
	if _, ok := ParseRole(string(claims.Role)); !ok {
		return nil, domainerrors.NewUnauthorized("unknown role " + string(claims.Role))
	}

	return claims, nil
}
