package user

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaious/oneflow/internal/rbac"
)

type memStore struct {
	byID map[string]*User
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*User{}}
}

func (m *memStore) GetByID(_ context.Context, id string) (*User, error) {
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrUserNotFound
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memStore) Create(_ context.Context, u *User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: %s", ErrUserAlreadyExists, u.Email)
		}
	}
	u.ID = uuid.NewString()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memStore) List(_ context.Context) ([]*User, error) {
	out := []*User{}
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

func (m *memStore) UpdateRole(_ context.Context, id string, role rbac.Role) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Role = role
	return u, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, status Status) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Status = status
	return u, nil
}

func (m *memStore) SetVerificationCode(_ context.Context, id string, code string, expiresAt time.Time) error {
	u, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.VerificationCode = &code
	u.VerificationExpiresAt = &expiresAt
	return nil
}

func (m *memStore) MarkVerified(_ context.Context, id string) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.EmailVerified = true
	u.VerificationCode = nil
	u.VerificationExpiresAt = nil
	return u, nil
}

type mockMailer struct {
	codes map[string]string
}

func (m *mockMailer) SendVerificationCode(_ context.Context, toEmail, _ string, code string) error {
	m.codes[toEmail] = code
	return nil
}

type mockRevoker struct {
	revoked []string
	err     error
}

func (m *mockRevoker) DeleteAllForUser(_ context.Context, userID string) error {
	if m.err != nil {
		return m.err
	}
	m.revoked = append(m.revoked, userID)
	return nil
}

func newTestService() (*UserService, *memStore, *mockMailer, *mockRevoker) {
	store := newMemStore()
	mailer := &mockMailer{codes: map[string]string{}}
	revoker := &mockRevoker{}
	return NewUserService(store, revoker, mailer), store, mailer, revoker
}

func TestRegisterAndVerify(t *testing.T) {
	svc, _, mailer, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, &RegisterRequest{Name: "Ana", Email: " Ana@Example.com ", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, rbac.RoleTeamMember, u.Role)
	assert.Equal(t, StatusActive, u.Status)
	assert.False(t, u.EmailVerified)

	_, err = svc.Authenticate(ctx, "ana@example.com", "password1")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	_, err = svc.VerifyEmail(ctx, "ana@example.com", "000000x")
	assert.ErrorIs(t, err, ErrInvalidCode)

	verified, err := svc.VerifyEmail(ctx, "ana@example.com", mailer.codes["ana@example.com"])
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	logged, err := svc.Authenticate(ctx, "ANA@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Register(context.Background(), &RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(context.Background(), &RegisterRequest{Email: "ana@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterRequest{Name: "Ana 2", Email: "ana@example.com", Password: "password2"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestVerifyEmailExpired(t *testing.T) {
	svc, _, mailer, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "password1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(verificationCodeTTL + time.Minute) }
	_, err = svc.VerifyEmail(ctx, "ana@example.com", mailer.codes["ana@example.com"])
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestResendVerificationAfterExpiry(t *testing.T) {
	svc, _, mailer, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "password1"})
	require.NoError(t, err)
	first := mailer.codes["ana@example.com"]

	later := time.Now().Add(verificationCodeTTL + time.Minute)
	svc.now = func() time.Time { return later }

	_, err = svc.VerifyEmail(ctx, "ana@example.com", first)
	require.ErrorIs(t, err, ErrCodeExpired)

	require.NoError(t, svc.ResendVerificationCode(ctx, " ANA@example.com "))
	second := mailer.codes["ana@example.com"]
	require.Len(t, second, 6)

	verified, err := svc.VerifyEmail(ctx, "ana@example.com", second)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	_, err = svc.Authenticate(ctx, "ana@example.com", "password1")
	require.NoError(t, err)

	err = svc.ResendVerificationCode(ctx, "ana@example.com")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestResendVerificationCooldown(t *testing.T) {
	svc, store, mailer, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, &RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "password1"})
	require.NoError(t, err)
	first := mailer.codes["ana@example.com"]

	err = svc.ResendVerificationCode(ctx, "ana@example.com")
	assert.ErrorIs(t, err, ErrResendTooSoon)
	assert.Equal(t, first, *store.byID[u.ID].VerificationCode)

	svc.now = func() time.Time { return time.Now().Add(resendCooldown + time.Second) }
	require.NoError(t, svc.ResendVerificationCode(ctx, "ana@example.com"))
	assert.Equal(t, mailer.codes["ana@example.com"], *store.byID[u.ID].VerificationCode)

	err = svc.ResendVerificationCode(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGenerateCodeDigits(t *testing.T) {
	seen := map[byte]bool{}
	for i := 0; i < 200; i++ {
		code, err := generateCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for j := 0; j < len(code); j++ {
			require.True(t, code[j] >= '0' && code[j] <= '9', "unexpected character %q", code[j])
			seen[code[j]] = true
		}
	}
	assert.Len(t, seen, 10)
}

func TestAuthenticate(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	u, err := svc.CreateByAdmin(ctx, &CreateUserRequest{Name: "Pat", Email: "pat@example.com", Password: "password1", Role: rbac.RoleProjectManager})
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)

	_, err = svc.Authenticate(ctx, "pat@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	store.byID[u.ID].Status = StatusSuspended
	_, err = svc.Authenticate(ctx, "pat@example.com", "password1")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestCreateByAdminRejectsUnknownRole(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.CreateByAdmin(context.Background(), &CreateUserRequest{Name: "X", Email: "x@example.com", Password: "password1", Role: "OWNER"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatusRevokesSessions(t *testing.T) {
	svc, _, _, revoker := newTestService()
	ctx := context.Background()

	u, err := svc.CreateByAdmin(ctx, &CreateUserRequest{Name: "Tom", Email: "tom@example.com", Password: "password1", Role: rbac.RoleTeamMember})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, u.ID, StatusActive)
	require.NoError(t, err)
	assert.Empty(t, revoker.revoked)

	updated, err := svc.UpdateStatus(ctx, u.ID, StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, updated.Status)
	assert.Equal(t, []string{u.ID}, revoker.revoked)

	_, err = svc.UpdateStatus(ctx, u.ID, Status("DELETED"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatusKeepsChangeWhenRevocationFails(t *testing.T) {
	svc, store, _, revoker := newTestService()
	ctx := context.Background()

	u, err := svc.CreateByAdmin(ctx, &CreateUserRequest{Name: "Tom", Email: "tom@example.com", Password: "password1", Role: rbac.RoleTeamMember})
	require.NoError(t, err)

	revoker.err = errors.New("redis unavailable")
	updated, err := svc.UpdateStatus(ctx, u.ID, StatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, updated.Status)
	assert.Equal(t, StatusSuspended, store.byID[u.ID].Status)

	_, err = svc.Authenticate(ctx, "tom@example.com", "password1")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestUpdateRole(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	u, err := svc.CreateByAdmin(ctx, &CreateUserRequest{Name: "Tom", Email: "tom@example.com", Password: "password1", Role: rbac.RoleTeamMember})
	require.NoError(t, err)

	updated, err := svc.UpdateRole(ctx, u.ID, rbac.RoleSalesFinance)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSalesFinance, updated.Role)

	_, err = svc.UpdateRole(ctx, "missing", rbac.RoleAdmin)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
