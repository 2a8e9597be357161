package storage

import (
	"time"

	"github.com/garyellow/admission-lists/internal/audit"
	apperrors "github.com/garyellow/admission-lists/internal/errors"
)

// ErrNotFound is returned when a run or report is not in the database
var ErrNotFound = apperrors.ErrNotFound

// Run is one stored mapping build
type Run struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
	Processed      int       `json:"processed"`
	Unique         int       `json:"unique"`
	Duplicates     int       `json:"duplicates"`
	CaseCollisions int       `json:"case_collisions"`
}

// AuditRecord is one stored audit report
type AuditRecord struct {
	ID             string       `json:"id"`
	RunID          string       `json:"run_id,omitempty"` // empty when the audited mapping was not a stored run
	RegistrySource string       `json:"registry_source"`
	CreatedAt      time.Time    `json:"created_at"`
	Report         audit.Report `json:"report"`
}
