package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shellmastery-backend/internal/apierr"
	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/repos"
	"github.com/yungbote/shellmastery-backend/internal/requestdata"
	"github.com/yungbote/shellmastery-backend/internal/types"
)

// IssuedToken is a signed access token and its expiry.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    uuid.UUID `json:"user_id"`
}

type TokenService interface {
	// IssueForEmail returns a token for the user with this email, creating
	// the user on first sight.
	IssueForEmail(ctx context.Context, email, displayName string) (*IssuedToken, error)
	// SetContextFromToken validates a token and attaches the caller's
	// identity to the context.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type tokenService struct {
	db        *gorm.DB
	log       *logger.Logger
	userRepo  repos.UserRepo
	secretKey []byte
	tokenTTL  time.Duration
}

func NewTokenService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, secretKey string, tokenTTL time.Duration) TokenService {
	return &tokenService{
		db:        db,
		log:       log.With("service", "TokenService"),
		userRepo:  userRepo,
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
	}
}

func (s *tokenService) IssueForEmail(ctx context.Context, email, displayName string) (*IssuedToken, error) {
	if email == "" {
		return nil, apierr.Invalid("invalid_email", "email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("Failed to look up user: %w", err)
	}
	if user == nil {
		created, err := s.userRepo.Create(ctx, nil, []*types.User{
			{Email: email, DisplayName: displayName},
		})
		if err != nil {
			return nil, fmt.Errorf("Failed to create user: %w", err)
		}
		user = created[0]
		s.log.Info("Created user", "user_id", user.ID)
	}

	expiresAt := time.Now().UTC().Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return nil, fmt.Errorf("Failed to sign token: %w", err)
	}

	return &IssuedToken{Token: signed, ExpiresAt: expiresAt, UserID: user.ID}, nil
}

func (s *tokenService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return ctx, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return ctx, fmt.Errorf("token carries no subject")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("token subject is not a user id: %w", err)
	}

	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return ctx, fmt.Errorf("Failed to look up user: %w", err)
	}
	if len(users) == 0 {
		return ctx, fmt.Errorf("user %s not found", userID)
	}

	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}), nil
}
