package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Service struct {
	userRepo UserRepository
	// filter is nil until LoadUsernameFilter runs and is swapped whole when it saturates.
	filter   atomic.Pointer[UsernameFilter]
	resizing sync.Mutex
}

func NewService(userRepo UserRepository) *Service {
	return &Service{
		userRepo: userRepo,
	}
}

// LoadUsernameFilter builds the filter of taken usernames used to skip the lookup in Register.
func (svc *Service) LoadUsernameFilter(ctx context.Context, minCapacity uint, falsePositiveRate float64) error {
	usernames, err := svc.userRepo.ListUsernames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list usernames for filter: %w", err)
	}

	svc.filter.Store(BuildUsernameFilter(usernames, minCapacity, falsePositiveRate))

	return nil
}

func (svc *Service) usernameMightBeTaken(username string) bool {
	filter := svc.filter.Load()

	return filter == nil || filter.MightContain(username)
}

// rememberUsername adds username to the filter and rebuilds the filter once it holds more
// usernames than it was sized for.
func (svc *Service) rememberUsername(ctx context.Context, username string) {
	filter := svc.filter.Load()
	if filter == nil {
		return
	}

	filter.Add(username)

	if !filter.Saturated() || !svc.resizing.TryLock() {
		return
	}
	defer svc.resizing.Unlock()

	err := svc.LoadUsernameFilter(ctx, 2*filter.Capacity(), filter.FalsePositiveRate())
	if err != nil {
		slog.WarnContext(ctx, "failed to resize username filter", "error", err)

		return
	}

	slog.DebugContext(ctx, "username filter resized", "capacity", svc.filter.Load().Capacity())
}

func HashPassword(password string) (string, error) {
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(bcryptHash), nil
}

type RegisterRequest struct {
	Username string `validate:"required,alphanum,min=3,max=32"`
	// bcrypt ignores everything after 72 bytes.
	Password string `validate:"required,min=8,max=72"`
}

func (svc *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	err := validate.Struct(req)
	if err != nil {
		return nil, &InvalidRequestError{Err: err}
	}

	if svc.usernameMightBeTaken(req.Username) {
		_, err = svc.userRepo.FindByUsername(ctx, req.Username)
		if err != nil {
			var userByUsernameNotFoundErr *UserByUsernameNotFoundError
			if !errors.As(err, &userByUsernameNotFoundErr) {
				return nil, fmt.Errorf("failed to check if username already exists: %w", err)
			}
		} else {
			return nil, &UserAlreadyExistsError{Username: req.Username}
		}
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		RegisteredAt: time.Now().UTC(),
	}

	err = svc.userRepo.Insert(ctx, user)
	if err != nil {
		var alreadyExistsErr *UserAlreadyExistsError
		if errors.As(err, &alreadyExistsErr) {
			svc.rememberUsername(ctx, req.Username)
		}

		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	svc.rememberUsername(ctx, req.Username)

	user.PasswordHash = ""

	return user, nil
}

// CheckPassword reports whether password belongs to the user with the given username.
func (svc *Service) CheckPassword(ctx context.Context, username, password string) (bool, error) {
	user, err := svc.userRepo.FindByUsername(ctx, username)
	if err != nil {
		var userByUsernameNotFoundErr *UserByUsernameNotFoundError
		if errors.As(err, &userByUsernameNotFoundErr) {
			return false, nil
		}

		return false, fmt.Errorf("failed to find user by username: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}

		return false, fmt.Errorf("failed to compare password hash: %w", err)
	}

	return true, nil
}

func (svc *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := svc.userRepo.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}

	user.PasswordHash = "" // clear password hash before returning user

	return user, nil
}

func (svc *Service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	user, err := svc.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	user.PasswordHash = ""

	return user, nil
}
