package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gopkg.in/yaml.v3"
)

var (
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmailTaken is returned when a write loses the uniqueness race on
	// the accounts email index, independent of the application-level check.
	ErrEmailTaken = errors.New("email already taken")
)

// AccountReader is the part of the store needed to resolve identities.
type AccountReader interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const accountColumns = "id, email, name, password_hash, role, created_at"

func (s *Store) GetByID(ctx context.Context, id string) (*Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`
	return s.scanOne(s.db.QueryRowContext(ctx, q, email))
}

func (s *Store) scanOne(row *sql.Row) (*Account, error) {
	a := &Account{}
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.Role, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	const q = `
		INSERT INTO accounts (id, email, name, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, q, a.ID, a.Email, a.Name, a.PasswordHash, a.Role, a.CreatedAt)
	return translateUnique(err)
}

func (s *Store) Save(ctx context.Context, a *Account) error {
	const q = `
		UPDATE accounts SET email = $2, name = $3, password_hash = $4 WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q, a.ID, a.Email, a.Name, a.PasswordHash)
	if err != nil {
		return translateUnique(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func translateUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

type adminsFile struct {
	Admins []struct {
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"admins"`
}

// SeedAdmins bootstraps admin accounts from a YAML file. Admins cannot be
// created through registration, so this is their only entry path.
func (s *Store) SeedAdmins(ctx context.Context, creds *Credentials, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var af adminsFile
	if err := yaml.Unmarshal(data, &af); err != nil {
		return err
	}
	for _, adm := range af.Admins {
		if adm.Email == "" || adm.Password == "" {
			continue
		}
		if _, err := s.GetByEmail(ctx, adm.Email); err == nil {
			continue
		} else if !errors.Is(err, ErrAccountNotFound) {
			return err
		}
		hash, err := creds.Hash(adm.Password)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		a := &Account{Email: adm.Email, Name: adm.Name, PasswordHash: hash, Role: RoleAdmin}
		if err := s.Create(ctx, a); err != nil && !errors.Is(err, ErrEmailTaken) {
			return err
		}
	}
	return nil
}
