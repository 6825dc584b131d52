// internal/server/auth.go
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kor4soft/teamsync/internal/config"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthUser is the public shape of an authenticated account.
type AuthUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// ============================================
// Auth Service
// ============================================

type AuthService interface {
	Register(ctx context.Context, fullName, email, password string) (*AuthUser, string, string, error)
	Login(ctx context.Context, email, password string) (*AuthUser, string, string, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateToken(token string) (*jwt.Token, error)
	GetUserIDFromToken(token *jwt.Token) (string, error)
	GetUser(ctx context.Context, userID string) (*AuthUser, error)
}

type authService struct {
	cfg  *config.Config
	pool *pgxpool.Pool
}

func NewAuthService(cfg *config.Config, pool *pgxpool.Pool) AuthService {
	return &authService{cfg: cfg, pool: pool}
}

func (s *authService) Register(ctx context.Context, fullName, email, password string) (*AuthUser, string, string, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists); err != nil {
		return nil, "", "", fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return nil, "", "", ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &AuthUser{
		ID:       uuid.New().String(),
		Email:    email,
		FullName: fullName,
		Role:     "developer",
	}
	if _, err := s.pool.Exec(ctx,
		"INSERT INTO users (id, email, full_name, role, password_hash) VALUES ($1, $2, $3, $4, $5)",
		user.ID, user.Email, user.FullName, user.Role, string(hashedPassword)); err != nil {
		return nil, "", "", fmt.Errorf("failed to create user: %w", err)
	}

	accessToken, refreshToken, err := s.generateTokens(ctx, user.ID)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to generate tokens: %w", err)
	}
	return user, accessToken, refreshToken, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthUser, string, string, error) {
	user := &AuthUser{}
	var passwordHash string
	err := s.pool.QueryRow(ctx,
		"SELECT id, email, full_name, role, password_hash FROM users WHERE email = $1", email).
		Scan(&user.ID, &user.Email, &user.FullName, &user.Role, &passwordHash)
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.generateTokens(ctx, user.ID)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to generate tokens: %w", err)
	}
	return user, accessToken, refreshToken, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, string, error) {
	var userID string
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx,
		"SELECT user_id, expires_at FROM refresh_tokens WHERE token = $1", refreshToken).
		Scan(&userID, &expiresAt)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	// Rotate: the old token is spent either way
	s.pool.Exec(ctx, "DELETE FROM refresh_tokens WHERE token = $1", refreshToken)

	if time.Now().After(expiresAt) {
		return "", "", ErrInvalidToken
	}

	accessToken, newRefreshToken, err := s.generateTokens(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate tokens: %w", err)
	}
	return accessToken, newRefreshToken, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM refresh_tokens WHERE token = $1", refreshToken)
	return err
}

func (s *authService) ValidateToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (s *authService) GetUserIDFromToken(token *jwt.Token) (string, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["sub"].(string)
	if !ok {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func (s *authService) GetUser(ctx context.Context, userID string) (*AuthUser, error) {
	user := &AuthUser{}
	err := s.pool.QueryRow(ctx,
		"SELECT id, email, full_name, role FROM users WHERE id = $1", userID).
		Scan(&user.ID, &user.Email, &user.FullName, &user.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) generateTokens(ctx context.Context, userID string) (string, string, error) {
	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour * time.Duration(s.cfg.JWTExpiry)).Unix(),
		"iat": time.Now().Unix(),
	})

	accessTokenString, err := accessToken.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", "", err
	}

	refreshTokenString := uuid.New().String()
	refreshTokenExpiry := time.Now().Add(time.Hour * 24 * time.Duration(s.cfg.RefreshExpiry))

	if _, err := s.pool.Exec(ctx,
		"INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)",
		refreshTokenString, userID, refreshTokenExpiry); err != nil {
		return "", "", err
	}

	return accessTokenString, refreshTokenString, nil
}
