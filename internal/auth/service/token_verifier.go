package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	authDomain "github.com/tnptm/next-djchat/internal/auth/domain"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

// tokenClaims accepts both a "user_id" claim and the registered "sub" claim.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
}

func (c *tokenClaims) subject() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// JWTVerifier verifies HS256-signed JWTs.
type JWTVerifier struct {
	signingKey []byte
	issuer     string
	users      UserLookup
	logger     *slog.Logger
}

// NewJWTVerifier creates a JWTVerifier. An empty issuer disables the "iss" check.
func NewJWTVerifier(signingKey, issuer string, users UserLookup, logger *slog.Logger) *JWTVerifier {
	return &JWTVerifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		users:      users,
		logger:     logger,
	}
}

// Verify parses the token, validates signature and expiry and resolves the user.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*authDomain.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, authDomain.ErrMissingCredential
	}
	if len(v.signingKey) == 0 {
		v.logger.Error("token verification failed: signing key not configured")
		return nil, authDomain.ErrInvalidCredential
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.signingKey, nil
	}, options...)
	if err != nil || !parsed.Valid {
		v.logger.Debug("token verification failed", slog.Any("error", err))
		return nil, authDomain.ErrInvalidCredential
	}

	userID, err := uuid.Parse(claims.subject())
	if err != nil {
		v.logger.Debug("token verification failed: subject is not a user id")
		return nil, authDomain.ErrInvalidCredential
	}

	user, err := v.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, roomDomain.ErrUserNotFound) {
			v.logger.Debug("token verification failed: unknown user", slog.String("user_id", userID.String()))
			return nil, authDomain.ErrInvalidCredential
		}
		return nil, err
	}

	return &authDomain.Principal{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}, nil
}
