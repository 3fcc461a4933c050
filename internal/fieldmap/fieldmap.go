package fieldmap

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package fieldmap loads the versioned lookup tables that connect logical
// declaration data keys (nom, annee, resultatFiscal, ...) to a template's
// native field identifiers: cell addresses for the spreadsheet, AcroForm
// field names for the CERFA PDF. The tables are configuration, not code;
// they live in YAML files so a template revision never requires a rebuild.

// ValueType tells a filler how to write a mapped value.
type ValueType string

const (
	// Text values are written as strings; absent keys default to "".
	Text ValueType = "text"
	// Number values are written as numeric cells where the target format
	// supports them; absent keys default to 0.
	Number ValueType = "number"
)

// Cell maps one data key to a spreadsheet cell.
type Cell struct {
	Key   string    `yaml:"key"`
	Sheet string    `yaml:"sheet"`
	Cell  string    `yaml:"cell"`
	Type  ValueType `yaml:"type"`
}

// ExcelMap is the spreadsheet template's field table.
type ExcelMap struct {
	Version int    `yaml:"version"`
	Cells   []Cell `yaml:"cells"`
}

// Field maps one value to a PDF form field. Exactly one of Key or Compose
// is set: Compose is a template like "{adresseBien} {codePostal} {ville}"
// rendered from the data record. Fallback, if set, is rendered when the
// primary value comes out empty.
type Field struct {
	Key      string    `yaml:"key,omitempty"`
	Compose  string    `yaml:"compose,omitempty"`
	Fallback string    `yaml:"fallback,omitempty"`
	Field    string    `yaml:"field"`
	Type     ValueType `yaml:"type"`
}

// PDFMap is the PDF form template's field table.
type PDFMap struct {
	Version int     `yaml:"version"`
	Fields  []Field `yaml:"fields"`
}

// LoadExcel reads and validates a spreadsheet field map.
func LoadExcel(path string) (*ExcelMap, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read excel field map: %w", err)
	}
	var m ExcelMap
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse excel field map: %w", err)
	}
	if m.Version < 1 {
		return nil, fmt.Errorf("excel field map %s: missing version", path)
	}
	seen := make(map[string]string, len(m.Cells))
	for i, c := range m.Cells {
		if c.Key == "" || c.Sheet == "" || c.Cell == "" {
			return nil, fmt.Errorf("excel field map %s: entry %d incomplete", path, i)
		}
		if err := validType(c.Type); err != nil {
			return nil, fmt.Errorf("excel field map %s: key %s: %w", path, c.Key, err)
		}
		addr := c.Sheet + "!" + c.Cell
		if prev, dup := seen[addr]; dup {
			return nil, fmt.Errorf("excel field map %s: cell %s mapped by both %s and %s", path, addr, prev, c.Key)
		}
		seen[addr] = c.Key
	}
	return &m, nil
}

// LoadPDF reads and validates a PDF form field map.
func LoadPDF(path string) (*PDFMap, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf field map: %w", err)
	}
	var m PDFMap
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse pdf field map: %w", err)
	}
	if m.Version < 1 {
		return nil, fmt.Errorf("pdf field map %s: missing version", path)
	}
	for i, f := range m.Fields {
		if f.Field == "" {
			return nil, fmt.Errorf("pdf field map %s: entry %d has no field name", path, i)
		}
		if f.Key == "" && f.Compose == "" {
			return nil, fmt.Errorf("pdf field map %s: field %s has neither key nor compose", path, f.Field)
		}
		if f.Key != "" && f.Compose != "" {
			return nil, fmt.Errorf("pdf field map %s: field %s sets both key and compose", path, f.Field)
		}
		if err := validType(f.Type); err != nil {
			return nil, fmt.Errorf("pdf field map %s: field %s: %w", path, f.Field, err)
		}
	}
	return &m, nil
}

// MissingFrom returns the mapped PDF field names that do not appear in the
// template's actual field set. Used by the dump/diagnostic mode.
func (m *PDFMap) MissingFrom(available []string) []string {
	set := make(map[string]struct{}, len(available))
	for _, n := range available {
		set[n] = struct{}{}
	}
	var missing []string
	for _, f := range m.Fields {
		if _, ok := set[f.Field]; !ok {
			missing = append(missing, f.Field)
		}
	}
	return missing
}

// Value renders the field's value from the data record. The second return
// is false when the primary lookup found nothing and a fallback (or the
// type's zero value) was used instead.
func (f Field) Value(data map[string]any) (string, bool) {
	var v string
	switch {
	case f.Compose != "":
		v = strings.TrimSpace(Render(f.Compose, data))
	default:
		v = TextValue(data[f.Key])
	}
	if v != "" {
		return v, true
	}
	if f.Fallback != "" {
		return strings.TrimSpace(Render(f.Fallback, data)), false
	}
	if f.Type == Number {
		return "0", false
	}
	return "", false
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Render substitutes {key} placeholders in tmpl with textual values from
// data. Unknown keys render as empty strings.
func Render(tmpl string, data map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(ph string) string {
		key := ph[1 : len(ph)-1]
		return TextValue(data[key])
	})
}

// TextValue coerces an arbitrary JSON-decoded value to its textual form.
// nil becomes the empty string.
func TextValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// NumberValue coerces a JSON-decoded value to a float64. The second return
// is false when the value is absent or not numeric, in which case callers
// default to zero.
func NumberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func validType(t ValueType) error {
	switch t {
	case Text, Number:
		return nil
	}
	return fmt.Errorf("invalid value type %q", t)
}
