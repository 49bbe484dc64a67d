package security

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/usecase"
)

// Claims is the payload of an access token.
type Claims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies HS256 access tokens.
type JWTManager struct {
	secret []byte
	issuer string
}

func NewJWTManager(secret, issuer string) (*JWTManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTManager{secret: []byte(secret), issuer: issuer}, nil
}

var _ usecase.TokenIssuer = (*JWTManager)(nil)

// Issue signs a token that expires together with the session.
func (m *JWTManager) Issue(session *domain.Session) (string, error) {
	if session == nil || session.UserID == "" {
		return "", domain.ErrInvalidPayload
	}
	claims := Claims{
		UserID:    session.UserID,
		Role:      string(session.Role),
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			Issuer:    m.issuer,
			ID:        session.ID,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies the signature, expiry and issuer of a token.
func (m *JWTManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", err)
	}
	if m.issuer != "" && !claims.VerifyIssuer(m.issuer, true) {
		return nil, domain.NewError(domain.ErrCodeUnauthorized, "invalid token issuer")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}
