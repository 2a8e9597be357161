package artifact

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"text/template"

	"github.com/garyellow/admission-lists/internal/competition"
	apperrors "github.com/garyellow/admission-lists/internal/errors"
	"github.com/garyellow/admission-lists/internal/stringutil"
)

// GoOptions names the package and identifiers of a generated source file.
type GoOptions struct {
	Package    string // default "resolver"
	MapFunc    string // unexported constructor of the map, default "getCompetitionIDs"
	LookupFunc string // exported lookup, default "GetCompetitionIDsForProgram"
}

func (o GoOptions) withDefaults() GoOptions {
	if o.Package == "" {
		o.Package = "resolver"
	}
	if o.MapFunc == "" {
		o.MapFunc = "getCompetitionIDs"
	}
	if o.LookupFunc == "" {
		o.LookupFunc = "GetCompetitionIDsForProgram"
	}
	return o
}

type goEntry struct {
	Name  string
	Upper string
	IDs   competition.CompetitionIDs
}

type goData struct {
	GoOptions
	Entries []goEntry
}

var goTemplate = template.Must(template.New("gosource").Parse(`// Code generated by idmap; DO NOT EDIT.

package {{.Package}}

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CompetitionIDs holds the competition list IDs of a program per quota type.
type CompetitionIDs struct {
	RegularBVI     string ` + "`json:\"regular_bvi\"`" + `
	DedicatedQuota string ` + "`json:\"dedicated_quota\"`" + `
	SpecialQuota   string ` + "`json:\"special_quota\"`" + `
	TargetQuota    string ` + "`json:\"target_quota\"`" + `
}

// programNames lists the map keys in ascending order with their upper-cased forms.
var programNames = []struct{ name, upper string }{
{{- range .Entries}}
	{ {{- printf "%q" .Name}}, {{printf "%q" .Upper -}} },
{{- end}}
}

// {{.MapFunc}} returns program names mapped to their competition list IDs.
func {{.MapFunc}}() map[string]CompetitionIDs {
	return map[string]CompetitionIDs{
{{- range .Entries}}
		{{printf "%q" .Name}}: {
			RegularBVI:     {{printf "%q" .IDs.RegularBVI}},
			DedicatedQuota: {{printf "%q" .IDs.DedicatedQuota}},
			SpecialQuota:   {{printf "%q" .IDs.SpecialQuota}},
			TargetQuota:    {{printf "%q" .IDs.TargetQuota}},
		},
{{- end}}
	}
}

// {{.LookupFunc}} returns the competition IDs of programName, trying an exact
// match first and then the first name in ascending order that matches
// ignoring case. Case is folded with full Unicode upper-casing, so "STRASSE"
// matches "Straße".
func {{.LookupFunc}}(programName string) (CompetitionIDs, bool) {
	competitionMap := {{.MapFunc}}()

	if ids, ok := competitionMap[programName]; ok {
		return ids, true
	}

	upper := cases.Upper(language.Und).String(programName)
	for _, p := range programNames {
		if p.upper == upper {
			return competitionMap[p.name], true
		}
	}
	return CompetitionIDs{}, false
}
`))

// RenderGo generates a gofmt-formatted Go source file embedding m.
func RenderGo(m *competition.Mapping, opts GoOptions) ([]byte, error) {
	opts = opts.withDefaults()
	for field, ident := range map[string]string{
		"package":     opts.Package,
		"map_func":    opts.MapFunc,
		"lookup_func": opts.LookupFunc,
	} {
		if !token.IsIdentifier(ident) {
			return nil, apperrors.NewValidationError(field, fmt.Sprintf("%q is not a Go identifier", ident))
		}
	}

	entries := m.Entries()
	data := goData{GoOptions: opts}
	for _, name := range m.Names() {
		data.Entries = append(data.Entries, goEntry{Name: name, Upper: stringutil.UpperKey(name), IDs: entries[name]})
	}

	var buf bytes.Buffer
	if err := goTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render go source: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("render go source: format: %w", err)
	}
	return src, nil
}
