// Package competition turns admission program records into an immutable
// lookup of per-quota competition list identifiers.
//
// Identifiers are the trailing digits of admission portal URLs of the form
// ".../applicants/<digits>". Records are deduplicated by exact (case-sensitive)
// program name with the first occurrence winning. Lookups fall back to a
// case-insensitive match when no exact key exists.
package competition

import (
	"fmt"
	"regexp"
	"strings"
)

// applicantsPattern matches the identifier segment at the very end of a URL.
var applicantsPattern = regexp.MustCompile(`/applicants/([0-9]+)$`)

// ProgramRecord is one admission program as delivered by the upstream catalogue.
// Several records may share a Name (different profiles of the same program).
type ProgramRecord struct {
	Name              string `json:"name"`
	RegularBVIURL     string `json:"regular_bvi_url,omitempty"`
	DedicatedQuotaURL string `json:"dedicated_quota_url,omitempty"`
	SpecialQuotaURL   string `json:"special_quota_url,omitempty"`
	TargetQuotaURL    string `json:"target_quota_url,omitempty"`
}

// CompetitionIDs holds the competition list identifiers of one program.
// An empty string means the program has no list for that quota.
type CompetitionIDs struct {
	RegularBVI     string `json:"regular_bvi"`     // general competition, BVI applicants included
	DedicatedQuota string `json:"dedicated_quota"` // отдельная квота
	SpecialQuota   string `json:"special_quota"`   // особая квота
	TargetQuota    string `json:"target_quota"`    // целевая квота
}

// Quota identifies one of the four competition tracks.
type Quota string

// Supported quota types.
const (
	QuotaRegularBVI     Quota = "regular_bvi"
	QuotaDedicatedQuota Quota = "dedicated_quota"
	QuotaSpecialQuota   Quota = "special_quota"
	QuotaTargetQuota    Quota = "target_quota"
)

// AllQuotas lists quota types in their canonical order.
var AllQuotas = []Quota{QuotaRegularBVI, QuotaDedicatedQuota, QuotaSpecialQuota, QuotaTargetQuota}

// ParseQuota converts a user supplied quota name into a Quota.
// Hyphens are accepted in place of underscores.
func ParseQuota(s string) (Quota, error) {
	q := Quota(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range AllQuotas {
		if q == known {
			return q, nil
		}
	}
	return "", fmt.Errorf("unknown quota %q", s)
}

// ExtractID returns the digits following the final "/applicants/" segment of url.
// It returns "" when url is empty or does not end in "/applicants/<digits>".
func ExtractID(url string) string {
	if url == "" {
		return ""
	}
	m := applicantsPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// IDsFromRecord derives the identifiers of all four quotas of r.
func IDsFromRecord(r ProgramRecord) CompetitionIDs {
	return CompetitionIDs{
		RegularBVI:     ExtractID(r.RegularBVIURL),
		DedicatedQuota: ExtractID(r.DedicatedQuotaURL),
		SpecialQuota:   ExtractID(r.SpecialQuotaURL),
		TargetQuota:    ExtractID(r.TargetQuotaURL),
	}
}

// ByQuota returns the identifier stored for q.
func (c CompetitionIDs) ByQuota(q Quota) string {
	switch q {
	case QuotaRegularBVI:
		return c.RegularBVI
	case QuotaDedicatedQuota:
		return c.DedicatedQuota
	case QuotaSpecialQuota:
		return c.SpecialQuota
	case QuotaTargetQuota:
		return c.TargetQuota
	default:
		return ""
	}
}

// IsEmpty reports whether no quota has an identifier.
func (c CompetitionIDs) IsEmpty() bool {
	return c == CompetitionIDs{}
}
