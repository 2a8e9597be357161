package audit

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteText renders r as a human readable report.
func WriteText(w io.Writer, r Report) error {
	p := &printer{w: w}

	p.printf("📊 Registry names: %d, mapping keys: %d\n", r.RegistrySize, r.MappingSize)

	if len(r.MissingInMapping) == 0 {
		p.printf("\n✅ All registry names are present in the mapping\n")
	} else {
		p.printf("\n❌ Registry names NOT found in the mapping (%d):\n", len(r.MissingInMapping))
		for _, name := range r.MissingInMapping {
			p.printf("  - %s\n", name)
		}
	}

	if len(r.MissingInRegistry) == 0 {
		p.printf("\n✅ All mapping keys are present in the registry\n")
	} else {
		p.printf("\n⚠️  Mapping keys NOT found in the registry (%d):\n", len(r.MissingInRegistry))
		for _, name := range r.MissingInRegistry {
			p.printf("  - %s\n", name)
		}
	}

	if len(r.CaseMismatches) == 0 {
		p.printf("\n✅ No case mismatches found\n")
	} else {
		p.printf("\n⚠️  Found %d case mismatches:\n", len(r.CaseMismatches))
		for _, pair := range r.CaseMismatches {
			p.printf("  Registry: '%s' vs Mapping: '%s'\n", pair.Registry, pair.Mapping)
		}
	}

	return p.err
}

// WriteJSON renders r as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// printer remembers the first write error so callers check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
