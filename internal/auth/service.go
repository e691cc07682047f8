package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/meetos/internal/store"
	"github.com/redmonkez12/meetos/internal/user"
)

// MinPasswordLength applies to registration and password reset.
const MinPasswordLength = 6

var (
	ErrInvalidEmail     = user.ErrInvalidEmail
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrUnknownUser      = errors.New("no such user")
	ErrInvalidCode      = errors.New("invalid code")
	ErrAlreadyVerified  = errors.New("email already verified")
	ErrUnverified       = errors.New("email not verified")
	ErrBadPassword      = errors.New("invalid password")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// Service handles the account lifecycle: registration, email verification,
// login and password reset. Every pending flow is keyed by a single-use code
// stored on the user next to the process that issued it.
type Service struct {
	store    store.Store
	notifier Notifier
	audit    Auditor
	now      func() time.Time
}

func NewService(st store.Store, notifier Notifier, auditor Auditor) *Service {
	return &Service{
		store:    st,
		notifier: notifier,
		audit:    auditor,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an unverified user and sends the verification email.
func (s *Service) Register(ctx context.Context, name, email, password string) (*store.User, error) {
	name = strings.TrimSpace(name)
	email = user.NormalizeEmail(email)
	password = strings.TrimSpace(password)

	if err := user.ValidateName(name); err != nil {
		return nil, err
	}
	if err := user.ValidateEmail(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	uid, err := s.store.Increment(ctx, store.CounterUser)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate user id: %w", err)
	}

	now := s.now()
	u := &store.User{
		UID:               uid,
		Name:              name,
		Email:             email,
		Password:          passwordHash,
		Code:              newCode(),
		Process:           store.ProcessRegister,
		RegistrationDate:  now,
		CodeGeneratedDate: &now,
	}

	if err := s.store.AddUser(ctx, u); err != nil {
		if store.IsUniqueViolation(err, "email") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.notifier.SendVerification(ctx, u)
	s.notifier.NotifyAdminsNewUser(ctx, u)
	s.audit.Record(ctx, store.AuditRegister, map[string]any{"uid": u.UID, "email": u.Email})

	return u, nil
}

// VerifyEmail consumes a register code and marks the user verified.
// The caller starts the session.
func (s *Service) VerifyEmail(ctx context.Context, uid int64, code string) (*store.User, error) {
	u, err := s.getUserByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !codeMatches(u, store.ProcessRegister, code) {
		return nil, ErrInvalidCode
	}

	u, err = s.consume(ctx, uid, store.ProcessRegister, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.store.MarkVerified(ctx, uid, now); err != nil {
		return nil, fmt.Errorf("failed to mark user verified: %w", err)
	}
	u.Verified = true
	u.VerificationDate = &now

	s.notifier.NotifyAdminsUserVerified(ctx, u)
	s.audit.Record(ctx, store.AuditVerifyEmail, map[string]any{"uid": u.UID})

	return u, nil
}

// ResendVerification issues a fresh register code to an unverified user.
func (s *Service) ResendVerification(ctx context.Context, email string) (*store.User, error) {
	u, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Verified {
		return nil, ErrAlreadyVerified
	}

	if err := s.issueCode(ctx, u, store.ProcessRegister); err != nil {
		return nil, err
	}

	s.notifier.SendVerification(ctx, u)
	return u, nil
}

// Login checks the credentials of a verified user. The caller starts the
// session.
func (s *Service) Login(ctx context.Context, email, password string) (*store.User, error) {
	email = user.NormalizeEmail(email)
	if err := user.ValidateEmail(email); err != nil {
		return nil, ErrInvalidEmail
	}

	u, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !u.Verified {
		return nil, ErrUnverified
	}
	if !verifyPassword(u.Password, strings.TrimSpace(password)) {
		return nil, ErrBadPassword
	}

	return u, nil
}

// RequestPasswordReset issues a reset-password code and emails the link.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*store.User, error) {
	u, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.issueCode(ctx, u, store.ProcessResetPassword); err != nil {
		return nil, err
	}

	s.notifier.SendPasswordReset(ctx, u)
	return u, nil
}

// CheckResetCode validates a reset link without consuming it.
func (s *Service) CheckResetCode(ctx context.Context, uid int64, code string) (*store.User, error) {
	u, err := s.getUserByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !codeMatches(u, store.ProcessResetPassword, code) {
		return nil, ErrInvalidCode
	}
	return u, nil
}

// SaveNewPassword replaces the password and consumes the reset code. A too
// short password leaves the code usable for another attempt.
func (s *Service) SaveNewPassword(ctx context.Context, uid int64, code, password string) (*store.User, error) {
	if _, err := s.CheckResetCode(ctx, uid, code); err != nil {
		return nil, err
	}

	password = strings.TrimSpace(password)
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := s.consume(ctx, uid, store.ProcessResetPassword, code)
	if err != nil {
		return nil, err
	}

	if err := s.store.SavePassword(ctx, uid, passwordHash); err != nil {
		return nil, fmt.Errorf("failed to save password: %w", err)
	}
	u.Password = passwordHash

	s.notifier.SendPasswordChanged(ctx, u)
	s.audit.Record(ctx, store.AuditResetPassword, map[string]any{"uid": u.UID})

	return u, nil
}

func (s *Service) issueCode(ctx context.Context, u *store.User, process string) error {
	code := newCode()
	if err := s.store.SetUserCode(ctx, u.Email, process, code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownUser
		}
		return fmt.Errorf("failed to store code: %w", err)
	}
	u.Code = code
	u.Process = process
	return nil
}

func (s *Service) consume(ctx context.Context, uid int64, process, code string) (*store.User, error) {
	u, err := s.store.ConsumeCode(ctx, uid, process, code)
	if err != nil {
		// Someone else used the code between our read and the update
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to consume code: %w", err)
	}
	return u, nil
}

func (s *Service) getUserByID(ctx context.Context, uid int64) (*store.User, error) {
	u, err := s.store.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *Service) getUserByEmail(ctx context.Context, email string) (*store.User, error) {
	u, err := s.store.GetUserByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// codeMatches compares byte for byte; an empty code never matches.
func codeMatches(u *store.User, process, code string) bool {
	return code != "" && u.Code != "" && u.Process == process && u.Code == code
}

func newCode() string {
	return uuid.NewString()
}
