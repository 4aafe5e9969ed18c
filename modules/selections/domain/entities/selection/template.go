// Package selection models selection templates: per-tenant catalogs of
// choices a buyer makes about a home. Categories under a template are ordered
// twice, once for the initial selection walkthrough and once for the paint
// walkthrough, and questions are ordered under each category.
package selection

import (
	"time"

	"github.com/google/uuid"
)

type Template struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
