package service

import (
	"crypto/subtle"
	"errors"
	"time"

	"go-polyglot-store/pkg/jwt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAdminDisabled      = errors.New("admin login is not configured")
)

type AuthService interface {
	Login(username, password string) (*LoginResponse, error)
}

type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// authService checks the single admin account configured through the environment.
type authService struct {
	username     string
	passwordHash []byte
}

func NewAuthService(username, passwordHash string) AuthService {
	return &authService{
		username:     username,
		passwordHash: []byte(passwordHash),
	}
}

func (s *authService) Login(username, password string) (*LoginResponse, error) {
	// 1. Admin must be configured
	if len(s.passwordHash) == 0 {
		return nil, ErrAdminDisabled
	}

	// 2. Verify credentials
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil || !userOK {
		return nil, ErrInvalidCredentials
	}

	// 3. Issue session token
	token, expiresAt, err := jwt.GenerateToken(s.username)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &LoginResponse{
		Token:     token,
		Username:  s.username,
		ExpiresAt: expiresAt,
	}, nil
}
