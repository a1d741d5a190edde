package services

import (
	"context"
	"errors"
	"time"

	"github.com/cppla/studyshare/utils"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Session is what a successful admin login hands back to the client.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      Principal `json:"user"`
}

// AuthService verifies the admin key and the session tokens issued for it.
type AuthService struct {
	keyHash   string
	admin     Principal
	tokens    *utils.TokenManager
	blacklist *utils.TokenBlacklist
	guard     *utils.LoginGuard
}

// NewAuthService wires the configured admin identity. guard may be nil to disable the lockout.
func NewAuthService(keyHash, adminID, adminName string, tokens *utils.TokenManager, blacklist *utils.TokenBlacklist, guard *utils.LoginGuard) (*AuthService, error) {
	if keyHash == "" {
		return nil, errors.New("admin key hash is empty")
	}
	if tokens == nil || blacklist == nil {
		return nil, errors.New("token manager and blacklist are required")
	}
	return &AuthService{
		keyHash:   keyHash,
		admin:     Principal{ID: adminID, Name: adminName, Role: utils.RoleAdmin},
		tokens:    tokens,
		blacklist: blacklist,
		guard:     guard,
	}, nil
}

// VerifyAdminKey exchanges the admin key for a session token. A wrong or empty key always yields
// ErrInvalidCredentials; an IP with too many recent failures gets ErrTooManyAttempts.
func (s *AuthService) VerifyAdminKey(ctx context.Context, ip, candidate string) (*Session, error) {
	if s.guard.IsBanned(ctx, ip) {
		return nil, ErrTooManyAttempts
	}
	if candidate == "" || !utils.CheckPassword(s.keyHash, candidate) {
		if s.guard.RecordFailure(ctx, ip) {
			utils.Sugar.Warnw("admin login locked for ip", "ip", ip)
		}
		return nil, ErrInvalidCredentials
	}
	s.guard.Reset(ctx, ip)

	token, expiresAt, err := s.tokens.GenerateToken(s.admin.ID, s.admin.Name, s.admin.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: s.admin}, nil
}

// Authenticate validates a bearer token and returns the principal it asserts.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.parse(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Principal{ID: claims.Subject, Name: claims.Name, Role: claims.Role}, nil
}

// Logout revokes a token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(ctx, token)
	if err != nil {
		return err
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return upstream("revoke token", err)
	}
	return nil
}

func (s *AuthService) parse(ctx context.Context, token string) (*utils.Claims, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if claims.Role != utils.RoleAdmin || claims.Subject != s.admin.ID || claims.ID == "" {
		return nil, ErrUnauthenticated
	}
	if s.blacklist.IsRevoked(ctx, claims.ID) {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}
