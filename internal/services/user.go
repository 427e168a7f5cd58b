package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eduhacktech-backend/internal/apperr"
	"eduhacktech-backend/internal/models"
	"eduhacktech-backend/internal/repository"
	"eduhacktech-backend/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const jwtExpDays = 30

// Identity is the authenticated caller extracted from a token
type Identity struct {
	UserID string
	Role   string
}

// IsStaff reports whether the caller may act as an organizer
func (i Identity) IsStaff() bool {
	return i.Role == models.RoleOrganizer || i.Role == models.RoleAdmin
}

// UserService handles user-related business logic
type UserService struct {
	userRepo    UserStore
	jwtSecret   string
	adminEmails map[string]bool
}

// NewUserService creates a new user service. Sign-ups from adminEmails get the admin role.
func NewUserService(userRepo UserStore, jwtSecret string, adminEmails ...string) *UserService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &UserService{
		userRepo:    userRepo,
		jwtSecret:   jwtSecret,
		adminEmails: admins,
	}
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the caller identity
func (s *UserService) ValidateJWT(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return Identity{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Identity{}, fmt.Errorf("user_id not found in token")
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = models.RoleUser
	}

	return Identity{UserID: userID, Role: role}, nil
}

// Authenticate validates a token and resolves the caller's current role from storage,
// so role changes apply to tokens issued before them.
func (s *UserService) Authenticate(ctx context.Context, tokenString string) (Identity, error) {
	claims, err := s.ValidateJWT(tokenString)
	if err != nil {
		return Identity{}, apperr.Unauthorized("Invalid token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Identity{}, apperr.Unauthorized("User no longer exists")
		}
		return Identity{}, apperr.Internal("failed to load user", err)
	}
	return Identity{UserID: user.ID, Role: user.Role}, nil
}

// CreateUser creates a user and returns it with a fresh token
func (s *UserService) CreateUser(ctx context.Context, name, email string) (*models.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, "", apperr.Invalid("name is required")
	}
	if !validation.Check(email, "required,email") {
		return nil, "", apperr.Invalid("a valid email is required")
	}

	role := models.RoleUser
	if s.adminEmails[email] {
		role = models.RoleAdmin
	}

	user := &models.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", apperr.Conflict("email is already registered")
		}
		return nil, "", apperr.Internal("failed to create user", err)
	}

	token, err := s.GenerateJWT(user.ID, user.Role)
	if err != nil {
		return nil, "", apperr.Internal("failed to generate token", err)
	}

	return user, token, nil
}

// GetUser returns a user by ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "User not found", "failed to get user")
	}
	return user, nil
}

// UpdatePushToken stores or clears the device token used for offline notifications
func (s *UserService) UpdatePushToken(ctx context.Context, userID string, pushToken string) error {
	var token *string
	if t := strings.TrimSpace(pushToken); t != "" {
		token = &t
	}
	if err := s.userRepo.UpdatePushToken(ctx, userID, token); err != nil {
		return storeErr(err, "User not found", "failed to update push token")
	}
	return nil
}

// SetRole lets an admin promote or demote a user. Authenticate picks up the change on the next request.
func (s *UserService) SetRole(ctx context.Context, caller Identity, userID, role string) (*models.User, error) {
	if caller.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("Only admins can change roles")
	}
	switch role {
	case models.RoleUser, models.RoleOrganizer, models.RoleAdmin:
	default:
		return nil, apperr.Invalid("role must be one of: user, organizer, admin")
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, storeErr(err, "User not found", "failed to update role")
	}
	return s.GetUser(ctx, userID)
}

// IssueToken returns a fresh token reflecting the user's current role
func (s *UserService) IssueToken(ctx context.Context, userID string) (string, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	token, err := s.GenerateJWT(user.ID, user.Role)
	if err != nil {
		return "", apperr.Internal("failed to generate token", err)
	}
	return token, nil
}

// storeErr converts a storage error into an application error
func storeErr(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(notFoundMsg)
	}
	return apperr.Internal(internalMsg, err)
}
