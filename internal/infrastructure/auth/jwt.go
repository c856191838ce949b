package auth

import (
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nexis-chat/nexis/gateway/pkg/errors"
)

// DefaultExpirySeconds is the token lifetime when the config leaves it
// unset.
const DefaultExpirySeconds = 3600

// ErrTokenExpired distinguishes an expired token from other verification
// failures so callers can prompt a refresh.
var ErrTokenExpired = errors.NewUnauthorizedError("token expired")

// JWTConfig configures token signing and validation.
type JWTConfig struct {
	Secret        string
	Issuer        string
	Audience      string
	ExpirySeconds int
}

// Claims is the token payload: subject is the member id, member type and
// tenant travel as private claims.
type Claims struct {
	MemberType string `json:"member_type,omitempty"`
	TenantID   string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens.
type TokenService struct {
	cfg JWTConfig
}

// NewTokenService creates a token service, applying the default expiry.
func NewTokenService(cfg JWTConfig) *TokenService {
	if cfg.ExpirySeconds <= 0 {
		cfg.ExpirySeconds = DefaultExpirySeconds
	}
	return &TokenService{cfg: cfg}
}

// GenerateToken issues a token for a member.
func (s *TokenService) GenerateToken(subject, memberType, tenantID string) (string, error) {
	now := time.Now()
	claims := Claims{
		MemberType: memberType,
		TenantID:   tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.cfg.ExpirySeconds) * time.Second)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", errors.NewInternalErrorWithCause("failed to sign token", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a token, enforcing issuer, audience and
// the HS256 method.
func (s *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, stderrors.New("unexpected signing method")
		}
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.NewUnauthorizedError("invalid token")
	}
	if !token.Valid {
		return nil, errors.NewUnauthorizedError("invalid token")
	}
	return claims, nil
}
