package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bcardoso2/mycar/internal/auctionerrors"
	"github.com/Bcardoso2/mycar/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserStore persists accounts
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, name, phone *string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

const (
	minNameLength     = 3
	minPasswordLength = 6
	maxPasswordLength = 72
)

// AuthService handles user authentication
type AuthService struct {
	Users UserStore

	secret   []byte
	ttl      time.Duration
	cost     int
	validate *validator.Validate
}

// NewAuthService creates a new auth service signing tokens with secret
func NewAuthService(users UserStore, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		Users:    users,
		secret:   []byte(secret),
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		validate: validator.New(),
	}
}

// Claims is the JWT payload
type Claims struct {
	UserID int64       `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Registration is the data a new user supplies
type Registration struct {
	Name     string
	Email    string
	Password string
	Phone    *string
	Role     models.Role
}

// Register creates a new user with hashed password and returns it with a token
func (s *AuthService) Register(ctx context.Context, r Registration) (*models.User, string, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
	if r.Role == "" {
		r.Role = models.RoleRegular
	}

	if len(r.Name) < minNameLength {
		return nil, "", fmt.Errorf("name must have at least %d characters: %w", minNameLength, auctionerrors.ErrInvalidInput)
	}
	if err := s.validate.Var(r.Email, "required,email"); err != nil {
		return nil, "", fmt.Errorf("invalid email %q: %w", r.Email, auctionerrors.ErrInvalidInput)
	}
	if err := checkPassword(r.Password); err != nil {
		return nil, "", err
	}
	if !r.Role.Valid() || r.Role == models.RoleAdmin {
		return nil, "", fmt.Errorf("role %q cannot be registered: %w", r.Role, auctionerrors.ErrInvalidInput)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.Users.CreateUser(ctx, &models.User{
		UUID:         uuid.New(),
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: string(hashedPassword),
		Phone:        r.Phone,
		Role:         r.Role,
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials and generates a JWT
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.Users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, auctionerrors.ErrNotFound) {
			return nil, "", auctionerrors.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !user.Active {
		return nil, "", auctionerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", auctionerrors.ErrInvalidCredentials
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate verifies a token and resolves the caller. The user is reloaded
// so deactivated accounts and role changes take effect before the token expires.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (models.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return models.Identity{}, fmt.Errorf("invalid token: %w", auctionerrors.ErrUnauthorized)
	}

	user, err := s.Users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrNotFound) {
			return models.Identity{}, fmt.Errorf("user %d: %w", claims.UserID, auctionerrors.ErrUnauthorized)
		}
		return models.Identity{}, err
	}
	if !user.Active {
		return models.Identity{}, fmt.Errorf("user %d is inactive: %w", user.ID, auctionerrors.ErrUnauthorized)
	}
	return models.Identity{UserID: user.ID, Role: user.Role}, nil
}

// Profile returns the caller's account
func (s *AuthService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	return s.Users.GetUserByID(ctx, userID)
}

// UpdateProfile changes name and phone; nil leaves a field unchanged
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, name, phone *string) (*models.User, error) {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if len(trimmed) < minNameLength {
			return nil, fmt.Errorf("name must have at least %d characters: %w", minNameLength, auctionerrors.ErrInvalidInput)
		}
		name = &trimmed
	}
	return s.Users.UpdateProfile(ctx, userID, name, phone)
}

// ChangePassword replaces the password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if err := checkPassword(next); err != nil {
		return err
	}

	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return auctionerrors.ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.Users.UpdatePasswordHash(ctx, userID, string(hashedPassword))
}

func (s *AuthService) issue(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UUID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must have at least %d characters: %w", minPasswordLength, auctionerrors.ErrInvalidInput)
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password too long (max %d characters): %w", maxPasswordLength, auctionerrors.ErrInvalidInput)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
