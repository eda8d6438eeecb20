package authenticating

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/buffapp/amazon-ads-api/infrastructure/repository"
	"github.com/buffapp/amazon-ads-api/internal/config"
	"github.com/buffapp/amazon-ads-api/internal/domain"
	"github.com/buffapp/amazon-ads-api/pkg/apiErrors"
)

const tokenTTL = 24 * time.Hour

type Authenticator interface {
	CreateUser(ctx context.Context, user *domain.User, password string) (*domain.User, error)
	LoginUser(ctx context.Context, email, password string) (string, error)
	GetUserProfile(ctx context.Context, userID int) (*domain.User, error)
	ValidateToken(tokenString string) (*domain.Claims, error)
}

type Service struct {
	userRepo repository.UserRepository
	cfg      *config.Config
}

func NewService(userRepo repository.UserRepository, cfg *config.Config) Authenticator {
	return &Service{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

func (s *Service) CreateUser(ctx context.Context, user *domain.User, password string) (*domain.User, error) {
	existing, err := s.userRepo.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewAuthError(ErrUserAlreadyExists, apiErrors.ErrUserAlreadyExists, user.Email)
	}

	if err := validatePasswordStrength(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = string(hash)
	user.Active = true
	if user.RoleID == 0 {
		user.RoleID = domain.RoleClient
	}

	created, err := s.userRepo.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": created.ID,
		"email":   created.Email,
	}).Info("Usuário criado")

	return created, nil
}

func (s *Service) LoginUser(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		// Mesma resposta de credenciais inválidas para não revelar se o
		// e-mail existe
		return "", NewAuthError(ErrInvalidCredentials, apiErrors.ErrInvalidCredentials, "")
	}

	if !user.Active {
		return "", NewAuthError(ErrUserDisabled, apiErrors.ErrUserDisabled, "")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", NewAuthError(ErrInvalidCredentials, apiErrors.ErrInvalidCredentials, "")
	}

	return s.generateToken(user)
}

func (s *Service) GetUserProfile(ctx context.Context, userID int) (*domain.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NewAuthError(ErrUserNotFound, apiErrors.ErrUserNotFound, "")
	}
	return user, nil
}

func (s *Service) generateToken(user *domain.User) (string, error) {
	claims := &domain.Claims{
		UserID:     user.ID,
		UserEmail:  user.Email,
		UserRoleID: user.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.cfg.Auth.Secret))
}

func (s *Service) ValidateToken(tokenString string) (*domain.Claims, error) {
	claims := &domain.Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.cfg.Auth.Secret), nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return nil, NewAuthError(ErrExpiredToken, apiErrors.ErrExpiredToken, "")
		}
		return nil, NewAuthError(ErrInvalidToken, apiErrors.ErrInvalidToken, "")
	}

	if !token.Valid {
		return nil, NewAuthError(ErrInvalidToken, apiErrors.ErrInvalidToken, "")
	}

	return claims, nil
}

// validatePasswordStrength exige ao menos 8 caracteres com letra maiúscula,
// minúscula e dígito
func validatePasswordStrength(password string) error {
	if len(password) < 8 {
		return NewAuthError(ErrWeakPassword, apiErrors.ErrInvalidRequest, "a senha deve ter ao menos 8 caracteres")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return NewAuthError(ErrWeakPassword, apiErrors.ErrInvalidRequest, "a senha deve conter maiúscula, minúscula e dígito")
	}

	return nil
}
