// Package registry extracts program display names from the sources that
// maintain them: Go registry files, generated mapping sources, YAML lists
// and plain text.
package registry

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/garyellow/admission-lists/internal/errors"
	"github.com/garyellow/admission-lists/internal/sliceutil"
	"github.com/garyellow/admission-lists/internal/stringutil"
)

// Format identifies a registry source format.
type Format string

// Supported formats.
const (
	FormatAuto      Format = ""
	FormatGoSource  Format = "go"    // PrettyName: "..." fields of composite literals
	FormatGoMapping Format = "gomap" // string keys of map literals whose values are composite literals
	FormatYAML      Format = "yaml"  // names: [...] or a top-level sequence
	FormatText      Format = "text"  // one name per line, # comments
)

// PrettyNameField is the struct field holding a program's display name.
const PrettyNameField = "PrettyName"

// Source loads raw bytes by location. *fetch.Loader satisfies it.
type Source interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatGoSource, FormatGoMapping, FormatYAML, FormatText:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: registry format %q", apperrors.ErrUnsupportedFormat, s)
	}
}

// DetectFormat picks a format from the location's extension. Go files are
// treated as registries; generated mappings must be requested explicitly.
func DetectFormat(location string) Format {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	switch strings.ToLower(path.Ext(location)) {
	case ".go":
		return FormatGoSource
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatText
	}
}

// Extract returns the names found in data, in source order with exact
// duplicates removed.
func Extract(data []byte, format Format) ([]string, error) {
	var (
		names []string
		err   error
	)
	switch format {
	case FormatGoSource:
		names, err = extractGo(data, prettyNames)
	case FormatGoMapping:
		names, err = extractGo(data, mappingKeys)
	case FormatYAML:
		names, err = extractYAML(data)
	case FormatText, FormatAuto:
		names, err = extractText(data)
	default:
		return nil, fmt.Errorf("%w: registry format %q", apperrors.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return sliceutil.Deduplicate(names, func(n string) string { return n }), nil
}

// Load reads location and extracts its names. FormatAuto detects the format
// from the location.
func Load(ctx context.Context, src Source, location string, format Format) ([]string, error) {
	if format == FormatAuto {
		format = DetectFormat(location)
	}
	wrap := apperrors.NewWrapper("registry", "load_registry")
	data, err := src.Load(ctx, location)
	if err != nil {
		return nil, wrap.Wrapf(err, "registry %s is unavailable", location)
	}
	names, err := Extract(data, format)
	if err != nil {
		return nil, wrap.Wrapf(err, "registry %s could not be read as %s", location, format)
	}
	return names, nil
}

type collector func(n ast.Node, names *[]string)

func extractGo(data []byte, collect collector) ([]string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "registry.go", data, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: parse go source: %w", apperrors.ErrInvalidInput, err)
	}

	var names []string
	ast.Inspect(file, func(n ast.Node) bool {
		collect(n, &names)
		return true
	})
	return names, nil
}

func prettyNames(n ast.Node, names *[]string) {
	kv, ok := n.(*ast.KeyValueExpr)
	if !ok {
		return
	}
	key, ok := kv.Key.(*ast.Ident)
	if !ok || key.Name != PrettyNameField {
		return
	}
	if s, ok := stringLit(kv.Value); ok {
		*names = append(*names, s)
	}
}

func mappingKeys(n ast.Node, names *[]string) {
	kv, ok := n.(*ast.KeyValueExpr)
	if !ok {
		return
	}
	if _, ok := kv.Value.(*ast.CompositeLit); !ok {
		return
	}
	if s, ok := stringLit(kv.Key); ok {
		*names = append(*names, s)
	}
}

// stringLit returns the value of a non-empty string literal.
func stringLit(e ast.Expr) (string, bool) {
	lit, ok := e.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	s, err := strconv.Unquote(lit.Value)
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}

type yamlRegistry struct {
	Names []string `yaml:"names"`
}

func extractYAML(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %w", apperrors.ErrInvalidInput, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	doc := node.Content[0]
	var names []string
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&names); err != nil {
			return nil, fmt.Errorf("%w: decode yaml names: %w", apperrors.ErrInvalidInput, err)
		}
	case yaml.MappingNode:
		var reg yamlRegistry
		if err := doc.Decode(&reg); err != nil {
			return nil, fmt.Errorf("%w: decode yaml names: %w", apperrors.ErrInvalidInput, err)
		}
		names = reg.Names
	default:
		return nil, apperrors.NewValidationError("names", "yaml registry must be a sequence or contain a names list")
	}

	return slices.DeleteFunc(names, stringutil.IsBlank), nil
}

// maxTextLine bounds a single line of a text registry.
const maxTextLine = 1 << 20

func extractText(data []byte) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxTextLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read text registry: %w", apperrors.ErrInvalidInput, err)
	}
	return names, nil
}
