package service

import (
	"strings"

	"bakery-backoffice/internal/apperr"
	"bakery-backoffice/internal/model"
	"bakery-backoffice/internal/repository"
	"bakery-backoffice/pkg/logger"

	"github.com/google/uuid"
)

type UserService interface {
	CreateUser(req *CreateUserRequest) (*model.User, error)
	UpdateUser(userID uuid.UUID, req *UpdateUserRequest, caller model.Caller) (*model.User, error)
	GetAllUsers() ([]model.UserResponse, error)
	GetUserByID(id uuid.UUID) (*model.UserResponse, error)
}

type CreateUserRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	FullName string     `json:"full_name" validate:"required"`
	Role     model.Role `json:"role" validate:"required"`
}

// UpdateUserRequest changes only the fields that are set.
type UpdateUserRequest struct {
	Email    *string     `json:"email" validate:"omitempty,email"`
	Password *string     `json:"password" validate:"omitempty,min=6"`
	FullName *string     `json:"full_name"`
	Role     *model.Role `json:"role"`
	IsActive *bool       `json:"is_active"`
}

type userService struct {
	userRepo repository.UserRepository
	log      *logger.Logger
}

func NewUserService(userRepo repository.UserRepository, log *logger.Logger) UserService {
	return &userService{userRepo: userRepo, log: log}
}

func (s *userService) ensureEmailFree(email string, self uuid.UUID) error {
	existing, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != self {
		return apperr.Conflict("email %q already exists", email)
	}
	return nil
}

func (s *userService) CreateUser(req *CreateUserRequest) (*model.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := validateInput(req); err != nil {
		return nil, err
	}
	if !req.Role.Valid() {
		return nil, apperr.Validation("unknown role %q", req.Role)
	}
	if err := s.ensureEmailFree(req.Email, uuid.Nil); err != nil {
		return nil, err
	}

	user := &model.User{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.log.Info("user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) UpdateUser(userID uuid.UUID, req *UpdateUserRequest, caller model.Caller) (*model.User, error) {
	if err := validateInput(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	self := caller.UserID == userID.String()
	if self && req.IsActive != nil && !*req.IsActive {
		return nil, apperr.Validation("you cannot deactivate your own account")
	}
	if self && req.Role != nil && *req.Role != user.Role {
		return nil, apperr.Validation("you cannot change your own role")
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := s.ensureEmailFree(email, user.ID); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, apperr.Validation("full name must not be empty")
		}
		user.FullName = name
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, apperr.Validation("unknown role %q", *req.Role)
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Password != nil {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return s.userRepo.FindByID(userID)
}

func (s *userService) GetAllUsers() ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll()
	if err != nil {
		return nil, err
	}

	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	response := user.ToResponse()
	return &response, nil
}
