package estimate

import (
	"time"

	"github.com/google/uuid"

	"github.com/structura-io/structura/modules/estimation/domain/pricing"
)

// SheetKind separates reusable project templates from job-scoped estimates.
// Both carry the same header/line-item hierarchy and profit policy.
type SheetKind string

const (
	KindTemplate SheetKind = "template"
	KindJob      SheetKind = "job"
)

// Sheet is the scope boundary for a profit policy: every line item under it
// has its contract price derived under the sheet's policy.
type Sheet struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Kind         SheetKind
	JobID        *uuid.UUID // set only for KindJob
	Name         string
	ProfitPolicy pricing.ProfitPolicy
	IsDeleted    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
