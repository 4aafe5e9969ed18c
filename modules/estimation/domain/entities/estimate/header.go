package estimate

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/structura-io/structura/pkg/ordering"
)

// Header groups line items under a sheet and owns one ordering dimension.
type Header struct {
	ID        uuid.UUID
	SheetID   uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Position  ordering.Position
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reserved header names hold accounting and change-order adjustments that the
// rest of the system writes into. They can exist at most once per sheet and
// cannot be deleted.
var reservedHeaderNames = map[string]struct{}{
	"changeorders": {},
	"accounting":   {},
}

// NormalizeName lowercases and strips all whitespace, the comparison form for
// reserved-name checks.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func IsReservedHeaderName(name string) bool {
	_, ok := reservedHeaderNames[NormalizeName(name)]
	return ok
}

// SameName reports whether two header names collide under the normalized
// comparison form.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
