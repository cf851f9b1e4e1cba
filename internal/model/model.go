// Package model defines domain entities used by services and repositories.
package model

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
)

// User represents an account stored on the server. The password hash never
// leaves the repository/service layers.
type User struct {
	ID        uuid.UUID // PK
	Email     string    // unique
	Name      string    // display name
	PwdHash   []byte    // Argon2id(password, SaltAuth)
	SaltAuth  []byte    // per-user auth salt
	CreatedAt time.Time
}

// Token is an issued access token with its expiry (for diagnostics).
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Entry is one user's journal document for one calendar day.
// Date carries no time component; the canonical wire form is YYYY-MM-DD.
type Entry struct {
	UserID    uuid.UUID       // part of composite PK
	Date      time.Time       // part of composite PK, midnight UTC
	Text      json.RawMessage // opaque rich-text document tree
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DateLayout is the canonical calendar-day format for entry keys.
const DateLayout = "2006-01-02"

// DateString renders the entry key date in canonical form.
func (e *Entry) DateString() string { return e.Date.Format(DateLayout) }
