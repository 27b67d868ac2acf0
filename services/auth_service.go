package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kswiatek/tile-league/models"
	"github.com/kswiatek/tile-league/repositories"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var (
	ErrAuthEmailTaken   = errors.New("email is already taken")
	ErrPasswordTooShort = errors.New("password is too short")
)

type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type AuthService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// Register создаёт учётную запись оператора. Новые учётки получают роль
// viewer; роль admin назначается вручную в базе.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" {
		return nil, fmt.Errorf("email is required: %w", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         models.RoleViewer,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrAuthEmailTaken
		}
		return nil, fmt.Errorf("user creation failed: %w", err)
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	email := strings.TrimSpace(strings.ToLower(creds.Email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		return nil, ErrAuthInvalidCredentials
	}
	return user, nil
}
