package students

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrProfileNotFound = errors.New("student profile not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const profileColumns = "id, account_id, name, email, course, enrolled_at, created_at, updated_at"

func (s *Store) GetByID(ctx context.Context, id string) (*Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM student_profiles WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) GetByAccountID(ctx context.Context, accountID string) (*Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM student_profiles WHERE account_id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, q, accountID))
}

func (s *Store) scanOne(row *sql.Row) (*Profile, error) {
	p := &Profile{}
	if err := row.Scan(&p.ID, &p.AccountID, &p.Name, &p.Email, &p.Course,
		&p.EnrolledAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) Create(ctx context.Context, p *Profile) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.EnrolledAt.IsZero() {
		p.EnrolledAt = now
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	const q = `
		INSERT INTO student_profiles (id, account_id, name, email, course, enrolled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, q,
		p.ID, p.AccountID, p.Name, p.Email, p.Course, p.EnrolledAt, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *Store) Save(ctx context.Context, p *Profile) error {
	p.UpdatedAt = time.Now().UTC()
	const q = `
		UPDATE student_profiles SET name = $2, email = $3, course = $4, updated_at = $5 WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q, p.ID, p.Name, p.Email, p.Course, p.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM student_profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM student_profiles ORDER BY enrolled_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Name, &p.Email, &p.Course,
			&p.EnrolledAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
