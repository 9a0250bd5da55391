package students

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"log/slog"

	"campuscore/internal/auth"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrEmailInUse         = errors.New("email already in use")
	ErrIncorrectPassword  = errors.New("incorrect old password")
	ErrMissingOldPassword = errors.New("old password is required to set a new one")
	ErrNotFound           = errors.New("not found")
)

type AccountStore interface {
	GetByID(ctx context.Context, id string) (*auth.Account, error)
	GetByEmail(ctx context.Context, email string) (*auth.Account, error)
	Create(ctx context.Context, a *auth.Account) error
	Save(ctx context.Context, a *auth.Account) error
	Delete(ctx context.Context, id string) error
}

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByAccountID(ctx context.Context, accountID string) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	Save(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Profile, error)
}

// Service orchestrates every operation that touches both an account and its
// student profile. The two stores share no transaction, so each multi-record
// operation validates all preconditions first, then writes account before
// profile. A failure between the two writes leaves the pair divergent until
// the caller retries (the operations are idempotent) or the sweeper runs.
type Service struct {
	accounts AccountStore
	profiles ProfileStore
	creds    *auth.Credentials
	logger   *slog.Logger
}

func NewService(accounts AccountStore, profiles ProfileStore, creds *auth.Credentials, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		profiles: profiles,
		creds:    creds,
		logger:   logger,
	}
}

// Register creates an account and its student profile. The role is always
// student; admin accounts only enter through the seed file.
func (s *Service) Register(ctx context.Context, name, email, password, course string) (*Profile, error) {
	if name == "" || password == "" || course == "" {
		return nil, fmt.Errorf("%w: name, email, password and course are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, auth.ErrAccountNotFound) {
		return nil, fmt.Errorf("check existing account: %w", err)
	}

	hash, err := s.creds.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &auth.Account{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         auth.RoleStudent,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			// Lost the race to a concurrent registration; the unique
			// index caught what the read-then-write check missed.
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	profile := &Profile{
		AccountID:  account.ID,
		Name:       name,
		Email:      email,
		Course:     course,
		EnrolledAt: time.Now().UTC(),
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		// No rollback: the account stays behind as an orphan until the
		// reconciliation sweep picks it up.
		s.logger.Error("profile create failed after account create",
			"account_id", account.ID, "err", err)
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

// Update carries the optional fields of a profile change. Empty strings
// mean "leave unchanged".
type Update struct {
	Name        string
	Email       string
	Course      string
	OldPassword string
	NewPassword string
}

// UpdateOwnProfile applies a self-service update for the owning account.
// All preconditions are checked before the first write.
func (s *Service) UpdateOwnProfile(ctx context.Context, accountID string, upd Update) (*Profile, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	profile, err := s.profiles.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	emailChanged := upd.Email != "" && !strings.EqualFold(upd.Email, account.Email)
	if emailChanged {
		if _, err := mail.ParseAddress(upd.Email); err != nil {
			return nil, fmt.Errorf("%w: invalid email", ErrValidation)
		}
		if err := s.checkEmailFree(ctx, upd.Email, account.ID); err != nil {
			return nil, err
		}
	}

	newHash := ""
	if upd.NewPassword != "" {
		if upd.OldPassword == "" {
			return nil, ErrMissingOldPassword
		}
		if !s.creds.Verify(upd.OldPassword, account.PasswordHash) {
			return nil, ErrIncorrectPassword
		}
		newHash, err = s.creds.Hash(upd.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	if emailChanged {
		account.Email = upd.Email
	}
	if upd.Name != "" {
		account.Name = upd.Name
	}
	if newHash != "" {
		account.PasswordHash = newHash
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("save account: %w", err)
	}

	// Sync from the account unconditionally so a retry after a partial
	// failure converges the pair even when no field looks changed.
	profile.Name = account.Name
	profile.Email = account.Email
	if upd.Course != "" {
		profile.Course = upd.Course
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		// Account already written; records diverge until a retry
		// re-applies the same target values.
		s.logger.Error("profile save failed after account save",
			"account_id", account.ID, "err", err)
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}

// AdminUpdateStudent applies an update to a profile and its linked account,
// resolved through the back-reference. Passwords are not settable here.
func (s *Service) AdminUpdateStudent(ctx context.Context, studentID string, name, email, course string) (*Profile, error) {
	profile, err := s.profiles.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	account, err := s.accounts.GetByID(ctx, profile.AccountID)
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			// Orphaned profile; leave it to the sweeper.
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	emailChanged := email != "" && !strings.EqualFold(email, account.Email)
	if emailChanged {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: invalid email", ErrValidation)
		}
		if err := s.checkEmailFree(ctx, email, account.ID); err != nil {
			return nil, err
		}
		account.Email = email
	}
	if name != "" {
		account.Name = name
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("save account: %w", err)
	}

	profile.Name = account.Name
	profile.Email = account.Email
	if course != "" {
		profile.Course = course
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		s.logger.Error("profile save failed after account save",
			"account_id", account.ID, "err", err)
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}

// DeleteStudent removes the account first, then the profile. If the second
// delete fails the leftover profile is unreachable through authenticated
// flows (its account is gone) and is removed by the reconciliation sweep.
func (s *Service) DeleteStudent(ctx context.Context, studentID string) error {
	profile, err := s.profiles.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load profile: %w", err)
	}

	if err := s.accounts.Delete(ctx, profile.AccountID); err != nil && !errors.Is(err, auth.ErrAccountNotFound) {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := s.profiles.Delete(ctx, profile.ID); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil
		}
		s.logger.Error("profile delete failed after account delete",
			"account_id", profile.AccountID, "profile_id", profile.ID, "err", err)
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *Service) OwnProfile(ctx context.Context, accountID string) (*Profile, error) {
	profile, err := s.profiles.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (s *Service) ListStudents(ctx context.Context) ([]Profile, error) {
	return s.profiles.List(ctx)
}

func (s *Service) checkEmailFree(ctx context.Context, email, selfID string) error {
	other, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			return nil
		}
		return fmt.Errorf("check email: %w", err)
	}
	if other.ID != selfID {
		return ErrEmailInUse
	}
	return nil
}
