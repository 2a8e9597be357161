// Package catalog decodes the upstream program catalogue into program records.
//
// The catalogue is a JSON array of program objects, optionally wrapped in
// {"programs": [...]}. Only the name and the four quota URL fields are read;
// everything else upstream attaches (profiles, faculty, exams) is ignored.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/garyellow/admission-lists/internal/competition"
	apperrors "github.com/garyellow/admission-lists/internal/errors"
)

// Source loads raw bytes by location. *fetch.Loader satisfies it.
type Source interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// rawRecord keeps Name as a pointer so a missing key is told apart from "".
type rawRecord struct {
	Name              *string `json:"name"`
	RegularBVIURL     *string `json:"regular_bvi_url"`
	DedicatedQuotaURL *string `json:"dedicated_quota_url"`
	SpecialQuotaURL   *string `json:"special_quota_url"`
	TargetQuotaURL    *string `json:"target_quota_url"`
}

type wrapped struct {
	Programs []rawRecord `json:"programs"`
}

// Decode parses a catalogue document. A record without a name key fails the
// whole document with a *errors.ValidationError naming its index. Null URLs
// decode as empty strings.
func Decode(data []byte) ([]competition.ProgramRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, apperrors.NewValidationError("catalog", "document is empty")
	}

	var raw []rawRecord
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: decode catalog: %w", apperrors.ErrInvalidInput, err)
		}
	case '{':
		var w wrapped
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return nil, fmt.Errorf("%w: decode catalog: %w", apperrors.ErrInvalidInput, err)
		}
		if w.Programs == nil {
			return nil, apperrors.NewValidationError("programs", "catalog object has no programs array")
		}
		raw = w.Programs
	default:
		return nil, fmt.Errorf("%w: catalog must be a JSON array or object", apperrors.ErrUnsupportedFormat)
	}

	records := make([]competition.ProgramRecord, 0, len(raw))
	for i, r := range raw {
		if r.Name == nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("records[%d].name", i), "program name is missing")
		}
		records = append(records, competition.ProgramRecord{
			Name:              *r.Name,
			RegularBVIURL:     deref(r.RegularBVIURL),
			DedicatedQuotaURL: deref(r.DedicatedQuotaURL),
			SpecialQuotaURL:   deref(r.SpecialQuotaURL),
			TargetQuotaURL:    deref(r.TargetQuotaURL),
		})
	}
	return records, nil
}

// Load reads and decodes the catalogue at location.
func Load(ctx context.Context, src Source, location string) ([]competition.ProgramRecord, error) {
	wrap := apperrors.NewWrapper("catalog", "load_catalog")
	data, err := src.Load(ctx, location)
	if err != nil {
		return nil, wrap.Wrapf(err, "catalogue %s is unavailable", location)
	}
	records, err := Decode(data)
	if err != nil {
		return nil, wrap.Wrapf(err, "catalogue %s is not a valid program list", location)
	}
	return records, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
