package services

import (
	"fmt"
	"strings"

	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/models"
	"github.com/ticketkini/booking-backend/pkg/jwt"
)

// AuthService handles registration, login and token refresh
type AuthService struct {
	userRepo   *database.UserRepository
	jwtService *jwt.Service
	bcryptCost int
	logger     *logrus.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo *database.UserRepository, jwtService *jwt.Service, bcryptCost int, logger *logrus.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a new account with a hashed password
func (s *AuthService) Register(req *models.RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   email,
	}).Info("User registered")
	return user, nil
}

// Login verifies credentials and issues a token pair. The user agent string
// is summarized for the session response.
func (s *AuthService) Login(req *models.LoginRequest, userAgent string) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrForbidden)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", ErrForbidden)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrForbidden)
	}

	response, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	response.Device = summarizeDevice(userAgent)

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"device":  response.Device,
	}).Info("User logged in")
	return response, nil
}

// Refresh rotates an access token from a valid refresh token
func (s *AuthService) Refresh(refreshToken string) (*models.AuthResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForbidden, err)
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, fmt.Errorf("%w: account unavailable", ErrForbidden)
	}

	return s.issueTokens(user)
}

// Profile returns the account behind a validated token
func (s *AuthService) Profile(userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return user, nil
}

// UpdateProfile changes the account's display name and phone
func (s *AuthService) UpdateProfile(userID int, req *models.UpdateProfileRequest) (*models.User, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, ValidationError("full name cannot be empty")
	}

	if err := s.userRepo.UpdateProfile(userID, name, req.Phone); err != nil {
		return nil, err
	}
	return s.Profile(userID)
}

// issueTokens builds the access and refresh token pair for a user
func (s *AuthService) issueTokens(user *models.User) (*models.AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtService.AccessTokenExpiry().Seconds()),
		User:         user,
	}, nil
}

// summarizeDevice renders a short browser-on-OS label from a user agent
func summarizeDevice(raw string) string {
	if raw == "" {
		return ""
	}
	ua := user_agent.New(raw)
	browser, _ := ua.Browser()
	os := ua.OS()
	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	default:
		return os
	}
}
