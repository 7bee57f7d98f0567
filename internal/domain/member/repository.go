package member

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the operations for persisting and retrieving Member entities.
type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Member, error)
	Update(ctx context.Context, m *Member) error // FirstName, LastName, IsActive
	ListActive(ctx context.Context) ([]*Member, error)
	ListAll(ctx context.Context) ([]*Member, error) // For admin purposes
}
