package database

import (
	"context"
	"database/sql"
	"fmt"

	"household_schedule_bot/internal/domain/store"

	"github.com/sirupsen/logrus"
)

// Store hands out repositories bound either to the pool or to a transaction.
type Store struct {
	db  *sql.DB
	log *logrus.Entry
}

func NewStore(db *sql.DB, log *logrus.Entry) *Store {
	return &Store{db: db, log: log}
}

// Repositories returns repositories that run each statement on the pool.
func (s *Store) Repositories() store.Repositories {
	return repositoriesFor(s.db)
}

// WithinTransaction implements store.Transactor. The transaction is rolled
// back when fn returns an error or panics.
func (s *Store) WithinTransaction(ctx context.Context, fn store.TxFn) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.WithError(rbErr).Error("Failed to roll back transaction after panic")
			}
			panic(p)
		}
	}()

	if err = fn(ctx, repositoriesFor(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.WithError(rbErr).WithField("original_error", err.Error()).Error("Failed to roll back transaction")
			return fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func repositoriesFor(db DBTX) store.Repositories {
	return store.Repositories{
		Members:     NewPostgresMemberRepository(db),
		Schedules:   NewPostgresScheduleRepository(db),
		Occurrences: NewPostgresOccurrenceRepository(db),
	}
}
