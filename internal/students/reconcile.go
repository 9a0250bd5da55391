package students

import (
	"context"
	"database/sql"
	"time"

	"log/slog"
)

// DBTX is the slice of database/sql the sweeper needs; *sql.DB satisfies it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Sweeper cleans up the leftovers of partial multi-record operations:
// student accounts that never got a profile, and profiles whose account
// is gone. The grace period keeps it from racing an in-flight registration.
type Sweeper struct {
	db     DBTX
	logger *slog.Logger
	grace  time.Duration
}

func NewSweeper(db DBTX, logger *slog.Logger, grace time.Duration) *Sweeper {
	return &Sweeper{db: db, logger: logger, grace: grace}
}

func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("reconcile sweep", "err", err)
			}
		}
	}
}

func (s *Sweeper) RunOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.grace)

	const orphanAccounts = `
		DELETE FROM accounts a
		WHERE a.role = 'student'
		  AND a.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM student_profiles p WHERE p.account_id = a.id)
	`
	res, err := s.db.ExecContext(ctx, orphanAccounts, cutoff)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info("removed orphan accounts", "count", n)
	}

	const orphanProfiles = `
		DELETE FROM student_profiles p
		WHERE p.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM accounts a WHERE a.id = p.account_id)
	`
	res, err = s.db.ExecContext(ctx, orphanProfiles, cutoff)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info("removed orphan profiles", "count", n)
	}
	return nil
}
