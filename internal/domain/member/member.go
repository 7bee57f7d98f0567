// Package member holds household members: the people obligations are assigned to.
package member

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("member not found")
	ErrDuplicateTelegramID = errors.New("member with this Telegram ID already exists")
)

// Member represents a person in the household.
type Member struct {
	ID         uuid.UUID
	TelegramID int64
	FirstName  string
	LastName   sql.NullString // To handle optional last name
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName is the first name plus the last name when known.
func (m *Member) DisplayName() string {
	if m.LastName.Valid && m.LastName.String != "" {
		return m.FirstName + " " + m.LastName.String
	}
	return m.FirstName
}
