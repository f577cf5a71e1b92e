package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EncodeJSON writes a as JSON, indented when pretty is set.
func EncodeJSON(w io.Writer, a *Archive, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("could not encode JSON archive: %w", err)
	}
	return nil
}

// EncodeYAML writes a as YAML.
func EncodeYAML(w io.Writer, a *Archive) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("could not encode YAML archive: %w", err)
	}
	return enc.Close()
}

// EncodeTOML writes a as TOML.
func EncodeTOML(w io.Writer, a *Archive) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("could not encode TOML archive: %w", err)
	}
	return nil
}

// DecodeJSON reads an archive written by EncodeJSON.
func DecodeJSON(r io.Reader) (*Archive, error) {
	var a Archive
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("could not decode JSON archive: %w", err)
	}
	return &a, nil
}

// DecodeYAML reads an archive written by EncodeYAML.
func DecodeYAML(r io.Reader) (*Archive, error) {
	var a Archive
	if err := yaml.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("could not decode YAML archive: %w", err)
	}
	return &a, nil
}

// DecodeTOML reads an archive written by EncodeTOML.
func DecodeTOML(r io.Reader) (*Archive, error) {
	var a Archive
	if err := toml.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("could not decode TOML archive: %w", err)
	}
	return &a, nil
}

// CellValues flattens the archive to sheet -> cell -> normalised value so
// archives decoded from different syntaxes can be compared. Each syntax
// brings values back with its own Go types (JSON has only float64 numbers
// and string times, YAML returns times as strings), so every value is reduced
// to a kind-prefixed string: numbers as "n:", times as UTC "t:", booleans as
// "b:" and other text as "s:".
func CellValues(a *Archive) map[string]map[string]string {
	out := make(map[string]map[string]string, len(a.Sheets))
	for _, rec := range a.Sheets {
		cells := make(map[string]string, len(rec.Cells))
		for ref, c := range rec.Cells {
			if c.Value == nil {
				continue
			}
			cells[ref] = normalize(c.Value)
		}
		out[rec.Name] = cells
	}
	return out
}

func normalize(v any) string {
	switch x := v.(type) {
	case bool:
		return "b:" + strconv.FormatBool(x)
	case int:
		return number(float64(x))
	case int64:
		return number(float64(x))
	case uint64:
		return number(float64(x))
	case float64:
		return number(x)
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return "t:" + t.UTC().Format(time.RFC3339Nano)
		}
		return "s:" + x
	default:
		return "s:" + fmt.Sprint(v)
	}
}

func number(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "s:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}
