// Package auth issues and invalidates JWT sessions. Tokens carry a version
// number checked against the user row on every authenticated request; bumping
// the version invalidates everything issued before it.
package auth

import (
	"context"
	goerrors "errors"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rekberkan/kahade-sub000/internal/errors"
	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
	"github.com/rekberkan/kahade-sub000/internal/repositories/cache"
	"github.com/rekberkan/kahade-sub000/internal/services/wallet"
	"github.com/rekberkan/kahade-sub000/internal/utils"
	"github.com/rekberkan/kahade-sub000/internal/validation"
)

const tokenVersionTTL = 15 * time.Minute

type Service interface {
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, string, string, error)
	RefreshTokens(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, userID uint) error
	ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
	// TokenVersion is the middleware's per-request check; reads through the
	// cache so it does not hit the users table on every call.
	TokenVersion(ctx context.Context, userID uint) (int, error)
}

type service struct {
	manager repositories.Manager
	wallets wallet.Service
	cache   cache.Store
}

// NewService creates a new auth service
func NewService(manager repositories.Manager, wallets wallet.Service, store cache.Store) Service {
	if manager == nil {
		panic("manager is required")
	}
	if wallets == nil {
		panic("wallet service is required")
	}
	if store == nil {
		panic("cache store is required")
	}
	return &service{manager: manager, wallets: wallets, cache: store}
}

func (s *service) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	if email == "" {
		return nil, errors.Validation("email is required")
	}
	if !validation.ValidPassword(password) {
		return nil, errors.Validation("password must be at least 8 characters and contain special characters")
	}
	if existing, _ := s.manager.Users().GetByEmail(ctx, email); existing != nil {
		return nil, errors.ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:    email,
		Password: string(hashed),
		Name:     name,
		Role:     models.RoleUser,
	}
	if err := s.manager.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	if _, err := s.wallets.CreateWallet(ctx, user.ID, ""); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*models.User, string, string, error) {
	user, err := s.manager.Users().GetByEmail(ctx, email)
	if err != nil {
		log.Printf("login failed: no user for email %s", email)
		return nil, "", "", errors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Printf("login failed: wrong password for user %d", user.ID)
		return nil, "", "", errors.ErrInvalidCredentials
	}

	accessToken, refreshToken, err := utils.GenerateTokens(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		Permissions:  models.GetDefaultPermissions(user.Role),
	})
	if err != nil {
		log.Println("error generating tokens:", err)
		return nil, "", "", goerrors.New("error generating tokens")
	}

	user.LastLoginAt = time.Now()
	if err := s.manager.Users().Update(ctx, user); err != nil {
		log.Printf("failed to record login time for user %d: %v", user.ID, err)
	}

	return user, accessToken, refreshToken, nil
}

func (s *service) RefreshTokens(ctx context.Context, refreshToken string) (string, string, error) {
	_, claims, err := utils.ParseToken(refreshToken)
	if err != nil {
		return "", "", errors.ErrInvalidToken
	}

	user, err := s.manager.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		return "", "", errors.ErrInvalidToken
	}

	if user.TokenVersion != claims.TokenVersion {
		return "", "", errors.ErrInvalidToken
	}

	return utils.GenerateTokens(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		Permissions:  models.GetDefaultPermissions(user.Role),
	})
}

func (s *service) Logout(ctx context.Context, userID uint) error {
	if err := s.manager.Users().IncrementTokenVersion(ctx, userID); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, cache.Key("user", "token_version", userID))
	return nil
}

func (s *service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.manager.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return errors.ErrInvalidCredentials
	}

	if !validation.ValidPassword(newPassword) {
		return errors.Validation("password must be at least 8 characters and contain special characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.Password = string(hashed)
	user.TokenVersion++ // invalidate existing tokens

	if err := s.manager.Users().Update(ctx, user); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, cache.Key("user", "token_version", userID))
	return nil
}

func (s *service) TokenVersion(ctx context.Context, userID uint) (int, error) {
	key := cache.Key("user", "token_version", userID)
	var version int
	if err := s.cache.Get(ctx, key, &version); err == nil {
		return version, nil
	}

	user, err := s.manager.Users().GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	_ = s.cache.Set(ctx, key, user.TokenVersion, tokenVersionTTL)
	return user.TokenVersion, nil
}
