package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// Join-token roles.
const (
	TokenRoleHost      = "host"
	TokenRoleGuest     = "guest"
	TokenRoleSpectator = "spectator"
)

// TokenService issues and verifies signed match join tokens. The host shares
// the token out of band (the invitation link); the guest presents it when
// joining so the transport can seat them without a lobby round-trip.
type TokenService struct {
	secret string
	issuer string
	ttl    time.Duration
}

// JoinClaims is the verified content of a join token.
type JoinClaims struct {
	UserID  string
	MatchID string
	Role    string
}

// NewTokenService builds a TokenService; ttl <= 0 defaults to one hour.
func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{secret: secret, issuer: issuer, ttl: ttl}
}

// GenerateJoinToken signs a token admitting user into match with the given
// role.
func (s *TokenService) GenerateJoinToken(userID, matchID, role string) (string, error) {
	if s == nil || s.secret == "" || s.issuer == "" {
		return "", fmt.Errorf("token service config is incomplete")
	}
	if userID == "" {
		return "", fmt.Errorf("user is required")
	}
	if matchID == "" {
		return "", fmt.Errorf("match id is required")
	}
	switch role {
	case TokenRoleHost, TokenRoleGuest, TokenRoleSpectator:
	default:
		return "", fmt.Errorf("unsupported join role: %s", role)
	}

	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": userID,
		"mid": matchID,
		"rol": role,
		"exp": time.Now().Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// VerifyJoinToken parses and validates a join token.
func (s *TokenService) VerifyJoinToken(tokenString string) (JoinClaims, error) {
	var out JoinClaims
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return out, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return out, fmt.Errorf("invalid join token")
	}
	if iss, _ := claims["iss"].(string); iss != s.issuer {
		return out, fmt.Errorf("unexpected token issuer")
	}
	out.UserID, _ = claims["sub"].(string)
	out.MatchID, _ = claims["mid"].(string)
	out.Role, _ = claims["rol"].(string)
	if out.UserID == "" || out.MatchID == "" {
		return out, fmt.Errorf("join token missing subject or match")
	}
	return out, nil
}
