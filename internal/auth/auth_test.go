package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Bcardoso2/mycar/internal/auctionerrors"
	"github.com/Bcardoso2/mycar/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

// memoryUsers is an in-memory UserStore
type memoryUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[int64]*models.User)}
}

func (m *memoryUsers) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, auctionerrors.ErrEmailTaken
		}
	}
	m.nextID++
	created := *u
	created.ID = m.nextID
	created.Active = true
	created.CreatedAt = time.Now()
	m.users[created.ID] = &created
	out := created
	return &out, nil
}

func (m *memoryUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, auctionerrors.ErrNotFound
}

func (m *memoryUsers) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, auctionerrors.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *memoryUsers) UpdateProfile(ctx context.Context, id int64, name, phone *string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.Active {
		return nil, auctionerrors.ErrNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if phone != nil {
		u.Phone = phone
	}
	out := *u
	return &out, nil
}

func (m *memoryUsers) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.Active {
		return auctionerrors.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memoryUsers) deactivate(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].Active = false
}

func newTestService() (*AuthService, *memoryUsers) {
	users := newMemoryUsers()
	s := NewAuthService(users, testSecret, time.Hour)
	s.cost = bcrypt.MinCost
	return s, users
}

func registerAlice(t *testing.T, s *AuthService) *models.User {
	t.Helper()
	user, _, err := s.Register(context.Background(), Registration{
		Name:     "Alice Souza",
		Email:    "alice@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("failed to register alice: %v", err)
	}
	return user
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name        string
		reg         Registration
		expectError error
		expectRole  models.Role
	}{
		{
			name:       "Success",
			reg:        Registration{Name: "Alice Souza", Email: " Alice@Example.com ", Password: "password123"},
			expectRole: models.RoleRegular,
		},
		{
			name:       "Dealer",
			reg:        Registration{Name: "Loja Carros", Email: "loja@example.com", Password: "password123", Role: models.RoleDealer},
			expectRole: models.RoleDealer,
		},
		{
			name:        "AdminNotAllowed",
			reg:         Registration{Name: "Mallory", Email: "mallory@example.com", Password: "password123", Role: models.RoleAdmin},
			expectError: auctionerrors.ErrInvalidInput,
		},
		{
			name:        "UnknownRole",
			reg:         Registration{Name: "Mallory", Email: "mallory@example.com", Password: "password123", Role: "root"},
			expectError: auctionerrors.ErrInvalidInput,
		},
		{
			name:        "ShortName",
			reg:         Registration{Name: "Al", Email: "al@example.com", Password: "password123"},
			expectError: auctionerrors.ErrInvalidInput,
		},
		{
			name:        "BadEmail",
			reg:         Registration{Name: "Alice Souza", Email: "not-an-email", Password: "password123"},
			expectError: auctionerrors.ErrInvalidInput,
		},
		{
			name:        "ShortPassword",
			reg:         Registration{Name: "Alice Souza", Email: "alice@example.com", Password: "12345"},
			expectError: auctionerrors.ErrInvalidInput,
		},
		{
			name:        "LongPassword",
			reg:         Registration{Name: "Alice Souza", Email: "alice@example.com", Password: strings.Repeat("p", 100)},
			expectError: auctionerrors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, users := newTestService()

			user, token, err := s.Register(context.Background(), tt.reg)
			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected %v, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Role != tt.expectRole {
				t.Errorf("expected role %q, got %q", tt.expectRole, user.Role)
			}
			if user.Email != strings.ToLower(strings.TrimSpace(tt.reg.Email)) {
				t.Errorf("email not normalized: %q", user.Email)
			}
			if token == "" {
				t.Errorf("expected a token")
			}

			stored, _ := users.GetUserByID(context.Background(), user.ID)
			if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(tt.reg.Password)); err != nil {
				t.Errorf("password hash mismatch")
			}
		})
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	s, _ := newTestService()
	registerAlice(t, s)

	_, _, err := s.Register(context.Background(), Registration{
		Name:     "Alice Again",
		Email:    "ALICE@example.com",
		Password: "password456",
	})
	if !errors.Is(err, auctionerrors.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthService_Login(t *testing.T) {
	s, users := newTestService()
	alice := registerAlice(t, s)
	bob, _, err := s.Register(context.Background(), Registration{Name: "Bob Lima", Email: "bob@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("failed to register bob: %v", err)
	}
	users.deactivate(bob.ID)

	tests := []struct {
		name        string
		email       string
		password    string
		expectError bool
	}{
		{name: "Success", email: "alice@example.com", password: "password123"},
		{name: "CaseInsensitiveEmail", email: "ALICE@example.com", password: "password123"},
		{name: "WrongPassword", email: "alice@example.com", password: "wrongpass", expectError: true},
		{name: "NonExistentUser", email: "carol@example.com", password: "password123", expectError: true},
		{name: "InactiveUser", email: "bob@example.com", password: "password123", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, token, err := s.Login(context.Background(), tt.email, tt.password)
			if tt.expectError {
				if !errors.Is(err, auctionerrors.ErrInvalidCredentials) {
					t.Errorf("expected ErrInvalidCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.ID != alice.ID {
				t.Errorf("expected user %d, got %d", alice.ID, user.ID)
			}

			claims := &Claims{}
			_, err = jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(testSecret), nil
			})
			if err != nil {
				t.Fatalf("invalid token: %v", err)
			}
			if claims.UserID != alice.ID || claims.Role != models.RoleRegular {
				t.Errorf("invalid token claims: %+v", claims)
			}
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	s, users := newTestService()
	alice := registerAlice(t, s)
	_, token, err := s.Login(context.Background(), "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("failed to login: %v", err)
	}

	sign := func(claims Claims, key string, method jwt.SigningMethod) string {
		signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
		if err != nil {
			t.Fatalf("failed to sign: %v", err)
		}
		return signed
	}
	expired := sign(Claims{UserID: alice.ID, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}, testSecret, jwt.SigningMethodHS256)
	wrongKey := sign(Claims{UserID: alice.ID}, "wrong-key", jwt.SigningMethodHS256)
	wrongMethod := sign(Claims{UserID: alice.ID}, testSecret, jwt.SigningMethodHS512)
	unknownUser := sign(Claims{UserID: 999}, testSecret, jwt.SigningMethodHS256)

	tests := []struct {
		name         string
		token        string
		expectUserID int64
		expectError  bool
	}{
		{name: "Success", token: token, expectUserID: alice.ID},
		{name: "ExpiredToken", token: expired, expectError: true},
		{name: "InvalidSignature", token: wrongKey, expectError: true},
		{name: "UnexpectedMethod", token: wrongMethod, expectError: true},
		{name: "UnknownUser", token: unknownUser, expectError: true},
		{name: "EmptyToken", token: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := s.Authenticate(context.Background(), tt.token)
			if tt.expectError {
				if !errors.Is(err, auctionerrors.ErrUnauthorized) {
					t.Errorf("expected ErrUnauthorized, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if identity.UserID != tt.expectUserID {
				t.Errorf("expected user ID %d, got %d", tt.expectUserID, identity.UserID)
			}
		})
	}

	t.Run("DeactivatedAfterLogin", func(t *testing.T) {
		users.deactivate(alice.ID)
		if _, err := s.Authenticate(context.Background(), token); !errors.Is(err, auctionerrors.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestAuthService_UpdateProfile(t *testing.T) {
	s, _ := newTestService()
	alice := registerAlice(t, s)

	short := "Al"
	if _, err := s.UpdateProfile(context.Background(), alice.ID, &short, nil); !errors.Is(err, auctionerrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	phone := "+55 11 99999-0000"
	user, err := s.UpdateProfile(context.Background(), alice.ID, nil, &phone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Name != "Alice Souza" {
		t.Errorf("name changed to %q", user.Name)
	}
	if user.Phone == nil || *user.Phone != phone {
		t.Errorf("phone not updated: %v", user.Phone)
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	s, _ := newTestService()
	alice := registerAlice(t, s)
	ctx := context.Background()

	if err := s.ChangePassword(ctx, alice.ID, "wrongpass", "newpassword"); !errors.Is(err, auctionerrors.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := s.ChangePassword(ctx, alice.ID, "password123", "123"); !errors.Is(err, auctionerrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := s.ChangePassword(ctx, alice.ID, "password123", "newpassword"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := s.Login(ctx, "alice@example.com", "password123"); !errors.Is(err, auctionerrors.ErrInvalidCredentials) {
		t.Errorf("old password still accepted: %v", err)
	}
	if _, _, err := s.Login(ctx, "alice@example.com", "newpassword"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}
