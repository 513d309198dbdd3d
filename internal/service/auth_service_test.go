package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/repository"
)

// mockAuthRepository реализует AuthRepository для тестов.
type mockAuthRepository struct {
	usersByEmail map[string]*models.User
	usersByID    map[uuid.UUID]*models.User
	sessions     map[string]*models.Session
}

func newMockAuthRepository() *mockAuthRepository {
	return &mockAuthRepository{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[uuid.UUID]*models.User),
		sessions:     make(map[string]*models.Session),
	}
}

func (m *mockAuthRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	user.IsActive = true
	user.CreatedAt = time.Now()
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockAuthRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := m.usersByEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockAuthRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockAuthRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (m *mockAuthRepository) CreateSession(ctx context.Context, session *models.Session) error {
	session.ID = uuid.New()
	m.sessions[session.RefreshToken] = session
	return nil
}

func (m *mockAuthRepository) GetSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	session, ok := m.sessions[refreshToken]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return session, nil
}

func (m *mockAuthRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	delete(m.sessions, refreshToken)
	return nil
}

func newTestAuthService(repo AuthRepository) *AuthService {
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 720*time.Hour)
	return NewAuthService(repo, tm)
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{
		Name:     "Alice Smith",
		Email:    "alice@example.com",
		Password: "Str0ngPass!",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.User.Role != models.RoleUser {
		t.Errorf("new user role = %q, want %q", result.User.Role, models.RoleUser)
	}
	if result.TokenPair.AccessToken == "" || result.TokenPair.RefreshToken == "" {
		t.Error("expected both tokens to be issued")
	}
	if len(repo.sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(repo.sessions))
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	input := RegisterInput{Name: "Alice Smith", Email: "alice@example.com", Password: "Str0ngPass!"}
	if _, err := svc.Register(ctx, input, nil); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	if _, err := svc.Register(ctx, input, nil); err == nil {
		t.Error("expected duplicate email registration to fail")
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Str0ngPass!"), bcrypt.MinCost)
	user := &models.User{Email: "alice@example.com", Name: "Alice", PasswordHash: string(hash)}
	repo.Create(ctx, user)

	result, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "Str0ngPass!"}, map[string]string{
		"user_agent": "test-agent",
		"ip":         "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session := repo.sessions[result.TokenPair.RefreshToken]
	if session == nil {
		t.Fatal("session was not stored")
	}
	if session.UserAgent == nil || *session.UserAgent != "test-agent" {
		t.Error("session user agent not recorded")
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Str0ngPass!"), bcrypt.MinCost)
	repo.Create(ctx, &models.User{Email: "alice@example.com", Name: "Alice", PasswordHash: string(hash)})

	if _, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"}, nil); err == nil {
		t.Error("expected login with wrong password to fail")
	}
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Str0ngPass!"), bcrypt.MinCost)
	user := &models.User{Email: "alice@example.com", Name: "Alice", PasswordHash: string(hash)}
	repo.Create(ctx, user)
	user.IsActive = false

	if _, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "Str0ngPass!"}, nil); err == nil {
		t.Error("expected login into inactive account to fail")
	}
}

func TestAuthService_Refresh_RotatesSession(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{
		Name:     "Alice Smith",
		Email:    "alice@example.com",
		Password: "Str0ngPass!",
	}, nil)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	oldToken := result.TokenPair.RefreshToken
	pair, err := svc.Refresh(ctx, oldToken, nil)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if _, ok := repo.sessions[oldToken]; ok {
		t.Error("old session must be deleted after refresh")
	}
	if _, ok := repo.sessions[pair.RefreshToken]; !ok {
		t.Error("new session must be stored")
	}

	// Повторное использование уже обменянного токена отклоняется.
	if _, err := svc.Refresh(ctx, oldToken, nil); err == nil {
		t.Error("expected reuse of rotated refresh token to fail")
	}
}

func TestAuthService_Logout(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{
		Name:     "Alice Smith",
		Email:    "alice@example.com",
		Password: "Str0ngPass!",
	}, nil)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.Logout(ctx, result.TokenPair.RefreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if len(repo.sessions) != 0 {
		t.Error("session must be removed on logout")
	}
}
