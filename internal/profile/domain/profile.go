package domain

import (
	accessdomain "opsdesk/backend/internal/access/domain"
)

// Profile is the merged, in-memory view of an authenticated person that the
// rest of the dashboard consumes. It is recomputed per session and cached by
// AuthID, never persisted. ID is the linked employee id, or a generated
// placeholder when the resolver had to synthesize the profile without the
// backing store.
type Profile struct {
	ID         string
	AuthID     string
	Email      string
	Role       accessdomain.Role
	Status     accessdomain.AccessStatus
	FullName   string
	Department string
	Position   string
	// Synthesized is true for fallback profiles that were never written to the
	// backing store; their ID is not a real employee id.
	Synthesized bool
}
