// Package store defines the transaction boundary the application runs
// schedule processing in.
package store

import (
	"context"

	"household_schedule_bot/internal/domain/member"
	"household_schedule_bot/internal/domain/occurrence"
	"household_schedule_bot/internal/domain/schedule"
)

// Repositories groups repositories bound to the same connection or transaction.
type Repositories struct {
	Members     member.Repository
	Schedules   schedule.Repository
	Occurrences occurrence.Repository
}

// TxFn is executed inside a transaction. Returning an error rolls it back.
type TxFn func(ctx context.Context, repos Repositories) error

// Transactor runs fn with repositories bound to a single transaction,
// committing when fn returns nil.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn TxFn) error
}
