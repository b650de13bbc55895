package user

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/curaious/oneflow/internal/notify"
	"github.com/curaious/oneflow/internal/rbac"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not active")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrResendTooSoon      = errors.New("verification code was sent recently")
)

const (
	verificationCodeTTL = 10 * time.Minute
	// minimum gap between two codes mailed to the same account
	resendCooldown = time.Minute
)

// Store is the persistence the service needs; *UserRepo satisfies it.
type Store interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	List(ctx context.Context) ([]*User, error)
	UpdateRole(ctx context.Context, id string, role rbac.Role) (*User, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*User, error)
	SetVerificationCode(ctx context.Context, id string, code string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id string) (*User, error)
}

// SessionRevoker drops every session of a user.
type SessionRevoker interface {
	DeleteAllForUser(ctx context.Context, userID string) error
}

type UserService struct {
	repo     Store
	sessions SessionRevoker
	mailer   notify.Notifier
	now      func() time.Time
}

func NewUserService(repo Store, sessions SessionRevoker, mailer notify.Notifier) *UserService {
	return &UserService{repo: repo, sessions: sessions, mailer: mailer, now: time.Now}
}

// Register creates an unverified TEAM_MEMBER and mails a verification code.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: name, email and a password of at least 8 characters are required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := generateCode(6)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}
	expires := s.now().Add(verificationCodeTTL)

	u := &User{
		Name:                  name,
		Email:                 email,
		PasswordHash:          string(hash),
		Role:                  rbac.RoleTeamMember,
		Status:                StatusActive,
		EmailVerified:         false,
		VerificationCode:      &code,
		VerificationExpiresAt: &expires,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerificationCode(ctx, u.Email, u.Name, code); err != nil {
		slog.WarnContext(ctx, "Unable to send verification email", slog.String("email", u.Email), slog.Any("error", err))
	}

	return u, nil
}

// CreateByAdmin creates an account that is already verified.
func (s *UserService) CreateByAdmin(ctx context.Context, req *CreateUserRequest) (*User, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: name, email and a password of at least 8 characters are required", ErrInvalidInput)
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		Name:          name,
		Email:         email,
		PasswordHash:  string(hash),
		Role:          req.Role,
		Status:        StatusActive,
		EmailVerified: true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials for login. Inactive and unverified accounts are refused here
// as well as in the request gate.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrAccountInactive
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	return user, nil
}

func (s *UserService) VerifyEmail(ctx context.Context, email, code string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if user.EmailVerified {
		return user, nil
	}
	if user.VerificationCode == nil || *user.VerificationCode != strings.TrimSpace(code) {
		return nil, ErrInvalidCode
	}
	if user.VerificationExpiresAt == nil || s.now().After(*user.VerificationExpiresAt) {
		return nil, ErrCodeExpired
	}

	return s.repo.MarkVerified(ctx, user.ID)
}

// ResendVerificationCode replaces the pending code of an unverified account and mails the new one.
// The previous code stops working. A code is resent at most once per resendCooldown.
func (s *UserService) ResendVerificationCode(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	now := s.now()
	if user.VerificationExpiresAt != nil {
		sentAt := user.VerificationExpiresAt.Add(-verificationCodeTTL)
		if now.Sub(sentAt) < resendCooldown {
			return ErrResendTooSoon
		}
	}

	code, err := generateCode(6)
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}
	if err := s.repo.SetVerificationCode(ctx, user.ID, code, now.Add(verificationCodeTTL)); err != nil {
		return err
	}

	if err := s.mailer.SendVerificationCode(ctx, user.Email, user.Name, code); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	slog.InfoContext(ctx, "Verification code resent", slog.String("user_id", user.ID))
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) UpdateRole(ctx context.Context, id string, role rbac.Role) (*User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	return s.repo.UpdateRole(ctx, id, role)
}

// UpdateStatus changes the lifecycle status; leaving ACTIVE revokes every session of the user.
// A revocation failure is logged and does not undo the status change.
func (s *UserService) UpdateStatus(ctx context.Context, id string, status Status) (*User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	u, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	if status != StatusActive {
		if err := s.sessions.DeleteAllForUser(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Unable to revoke sessions after status change",
				slog.String("user_id", id), slog.String("status", string(status)), slog.Any("error", err))
		}
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateCode returns n uniformly distributed decimal digits.
func generateCode(n int) (string, error) {
	ten := big.NewInt(10)
	buf := make([]byte, n)
	for i := range buf {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = '0' + byte(d.Int64())
	}
	return string(buf), nil
}
