package service

import (
	"errors"
	"strings"

	"bakery-backoffice/internal/apperr"
	"bakery-backoffice/internal/model"
	"bakery-backoffice/internal/repository"
	"bakery-backoffice/pkg/jwt"
	"bakery-backoffice/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
)

type AuthService interface {
	Login(email, password string) (*LoginResponse, error)
	EnsureAdmin(email, password string) (bool, error)
	ResetPassword(email, newPassword string) error
}

type LoginResponse struct {
	Token string             `json:"token"`
	User  model.UserResponse `json:"user"`
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *jwt.Manager
	log      *logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager, log *logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		log:      log,
	}
}

func (s *authService) Login(email, password string) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Email, user.FullName, string(user.Role))
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		s.log.Warn("failed to record login", "user_id", user.ID, "error", err)
	}

	return &LoginResponse{Token: token, User: user.ToResponse()}, nil
}

// EnsureAdmin creates a senior supervisor account when no user exists yet.
func (s *authService) EnsureAdmin(email, password string) (bool, error) {
	n, err := s.userRepo.Count()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	admin := &model.User{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		FullName: "Senior Supervisor",
		Role:     model.RoleSupervisorSenior,
		IsActive: true,
	}
	if err := admin.SetPassword(password); err != nil {
		return false, err
	}
	if err := s.userRepo.Create(admin); err != nil {
		return false, err
	}
	return true, nil
}

// ResetPassword sets a new password without checking the old one. It backs
// the operator command, not the HTTP API.
func (s *authService) ResetPassword(email, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrPasswordTooShort
	}
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(user.ID, user.Password); err != nil {
		return err
	}
	s.log.Info("password reset", "user_id", user.ID)
	return nil
}
