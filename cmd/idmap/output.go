package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/garyellow/admission-lists/internal/audit"
	"github.com/garyellow/admission-lists/internal/competition"
	apperrors "github.com/garyellow/admission-lists/internal/errors"
)

func reportWriter(format string) (func(io.Writer, audit.Report) error, error) {
	switch format {
	case "", "text":
		return audit.WriteText, nil
	case "json":
		return audit.WriteJSON, nil
	default:
		return nil, fmt.Errorf("%w: output %q (want text or json)", apperrors.ErrUnsupportedFormat, format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeLookupText(w io.Writer, res lookupResult, quota competition.Quota) {
	if !res.Found {
		_, _ = fmt.Fprintf(w, "❌ %s: not found\n", res.Query)
		return
	}
	label := res.Name
	if res.Name != res.Query {
		label = fmt.Sprintf("%s (matched %q)", res.Query, res.Name)
	}
	if quota != "" {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", label, orDash(res.CompetitionIDs.ByQuota(quota)))
		return
	}
	_, _ = fmt.Fprintf(w, "✅ %s\n", label)
	for _, q := range competition.AllQuotas {
		_, _ = fmt.Fprintf(w, "   %-16s %s\n", q, orDash(res.CompetitionIDs.ByQuota(q)))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
