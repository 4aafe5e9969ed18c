// Package mapping holds small conversion helpers shared by repositories,
// DTOs, and tests.
package mapping

// Pointer returns a pointer to the given value. Handy for optional fields.
func Pointer[T any](value T) *T {
	return &value
}
