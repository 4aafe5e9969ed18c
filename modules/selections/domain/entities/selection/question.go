package selection

import (
	"time"

	"github.com/google/uuid"

	"github.com/structura-io/structura/pkg/ordering"
)

type Question struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	TenantID   uuid.UUID
	Prompt     string
	Position   ordering.Position
	IsDeleted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
