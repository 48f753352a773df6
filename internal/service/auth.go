package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/omada-guest/backend/internal/config"
	"github.com/omada-guest/backend/internal/model"
)

const (
	minLoginIDLength  = 3
	maxCredentialLen  = 128
	defaultAccessTTL  = 12 * time.Hour
	operatorJWTIssuer = "omada-guest-backend"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrMisconfigured = errors.New("auth config invalid")
)

// AuthService authenticates the single operator account configured through
// ADMIN_USERNAME and issues stateless access tokens.
type AuthService struct {
	username     string
	passwordHash []byte
	jwtSecret    []byte
	accessTTL    time.Duration
	now          func() time.Time
}

type authClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewAuthService(cfg config.AuthConfig) (*AuthService, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: ADMIN_USERNAME and ADMIN_PASSWORD or ADMIN_PASSWORD_HASH are required", ErrMisconfigured)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}

	hash := []byte(cfg.AdminPasswordHash)
	if len(hash) == 0 {
		generated, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMisconfigured, err)
		}
		hash = generated
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("%w: invalid ADMIN_PASSWORD_HASH", ErrMisconfigured)
	}

	accessTTL := cfg.JWTAccessTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}

	return &AuthService{
		username:     strings.TrimSpace(cfg.AdminUsername),
		passwordHash: hash,
		jwtSecret:    []byte(cfg.JWTSecret),
		accessTTL:    accessTTL,
		now:          time.Now,
	}, nil
}

// Login checks the operator credentials and returns a signed access token
// and its lifetime in seconds.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, int64, error) {
	if err := validateCredentials(username, password); err != nil {
		return "", 0, err
	}

	username = strings.TrimSpace(username)
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) != 1 {
		return "", 0, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", 0, ErrUnauthorized
	}

	return s.generateAccessToken(username)
}

func (s *AuthService) ParseAccessToken(tokenStr string) (*model.AuthUser, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(operatorJWTIssuer), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}
	if claims.Username == "" {
		return nil, ErrUnauthorized
	}

	return &model.AuthUser{Username: claims.Username}, nil
}

func (s *AuthService) generateAccessToken(username string) (string, int64, error) {
	now := s.now()
	claims := authClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    operatorJWTIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, err
	}

	return signed, int64(s.accessTTL.Seconds()), nil
}

func validateCredentials(loginID, password string) error {
	loginID = strings.TrimSpace(loginID)

	if len(loginID) < minLoginIDLength || len(loginID) > 64 {
		return ErrInvalidInput
	}
	if password == "" || len(password) > maxCredentialLen {
		return ErrInvalidInput
	}
	return nil
}
