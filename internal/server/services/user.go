// Package services holds the chat server's business rules. The session layer
// owns the wire, the store owns persistence; services sit in between.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/cryptox"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/store"
)

// UserService handles registration, login, resume tokens and user search.
type UserService struct {
	store                       store.Store
	hasher                      cryptox.PasswordHasher
	jwtSecret                   []byte
	resumeTokenValidityDuration time.Duration
}

func NewUserService(st store.Store, hasher cryptox.PasswordHasher, cfg *config.Config) *UserService {
	return &UserService{
		store:                       st,
		hasher:                      hasher,
		jwtSecret:                   []byte(cfg.SecretKey),
		resumeTokenValidityDuration: cfg.ResumeTokenValidityDuration,
	}
}

// Register creates an account. Malformed input yields common.ErrorValidation,
// a taken email common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, fullName, email, password string) (models.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = models.NormalizeEmail(email)
	if fullName == "" || password == "" || !validEmail(email) {
		return models.User{}, common.ErrorValidation
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("error hashing password: %w", err)
	}

	u := models.User{Email: email, FullName: fullName, PasswordHash: hash}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login checks credentials. Unknown users and wrong passwords both yield
// common.ErrorUnauthorized after the same hashing effort.
func (s *UserService) Login(ctx context.Context, email, password string) (models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return models.User{}, common.ErrorValidation
	}

	user, err := s.store.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify("", password)
			return models.User{}, common.ErrorUnauthorized
		}
		return models.User{}, fmt.Errorf("error loading user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return models.User{}, common.ErrorUnauthorized
	}
	return user, nil
}

// Resume authenticates with a token previously issued by IssueToken.
func (s *UserService) Resume(ctx context.Context, token string) (models.User, error) {
	email, err := auth.EmailFromToken(token, s.jwtSecret)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.store.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.User{}, common.ErrInvalidToken
		}
		return models.User{}, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

func (s *UserService) IssueToken(email string) (string, error) {
	return auth.GenerateToken(email, s.jwtSecret, s.resumeTokenValidityDuration)
}

func (s *UserService) SearchUsers(ctx context.Context, prefix string) ([]models.User, error) {
	users, err := s.store.SearchUsers(ctx, strings.TrimSpace(prefix))
	if err != nil {
		return nil, fmt.Errorf("error searching users: %w", err)
	}
	return users, nil
}

func validEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return false
	}
	if strings.ContainsAny(email, " \t|") || strings.Contains(domain, "@") {
		return false
	}
	return true
}
