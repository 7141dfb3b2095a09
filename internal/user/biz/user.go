package biz

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	folderbiz "github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// User is an account row
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepo is the user persistence contract
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}

// RootProvisioner creates the reserved Home and Bin folders for a user
type RootProvisioner interface {
	EnsureUserRoots(ctx context.Context, userID string) (home, bin *folderbiz.Folder, err error)
}

// UserUseCase manages accounts
type UserUseCase struct {
	repo   UserRepo
	roots  RootProvisioner
	logger *logger.Logger
}

// NewUserUseCase creates the account manager
func NewUserUseCase(repo UserRepo, roots RootProvisioner, log *logger.Logger) *UserUseCase {
	return &UserUseCase{repo: repo, roots: roots, logger: log}
}

// Register creates an account and provisions its root folders
func (uc *UserUseCase) Register(ctx context.Context, email, name, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := uc.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if err != ErrUserNotFound {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if _, _, err := uc.roots.EnsureUserRoots(ctx, user.ID); err != nil {
		// The account exists; roots are re-checked at login and by the
		// upload hooks.
		uc.logger.WithContext(ctx).Warn("failed to provision root folders at registration",
			zap.String("user_id", user.ID),
			zap.Error(err))
	}

	uc.logger.WithContext(ctx).Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Authenticate verifies credentials and re-checks the root folders
func (uc *UserUseCase) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrUserNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if _, _, err := uc.roots.EnsureUserRoots(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns an account by ID
func (uc *UserUseCase) Get(ctx context.Context, id string) (*User, error) {
	return uc.repo.GetByID(ctx, id)
}

// List returns every account; admin only, enforced at the route
func (uc *UserUseCase) List(ctx context.Context) ([]*User, error) {
	return uc.repo.List(ctx)
}
