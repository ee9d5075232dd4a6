package persist

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"

	"github.com/dshills/hintprefs/internal/setdiff"
)

// Document is the on-disk layout of a file backend.
type Document struct {
	Languages map[string]Record `toml:"languages" yaml:"languages"`
	Options   map[string]bool   `toml:"options,omitempty" yaml:"options,omitempty"`
}

// Codec encodes a whole document of diffs.
type Codec interface {
	Name() string
	Marshal(doc Document) ([]byte, error)
	Unmarshal(data []byte, doc *Document) error
}

// TOML encodes documents as TOML tables keyed by classifier.
type TOML struct{}

// Name implements Codec.
func (TOML) Name() string { return "toml" }

// Marshal implements Codec.
func (TOML) Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal implements Codec.
func (TOML) Unmarshal(data []byte, doc *Document) error {
	return toml.Unmarshal(data, doc)
}

// YAML encodes documents as YAML mappings keyed by classifier.
type YAML struct{}

// Name implements Codec.
func (YAML) Name() string { return "yaml" }

// Marshal implements Codec.
func (YAML) Marshal(doc Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

// Unmarshal implements Codec.
func (YAML) Unmarshal(data []byte, doc *Document) error {
	return yaml.Unmarshal(data, doc)
}

// CodecFor picks a codec from a file extension.
func CodecFor(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML{}, nil
	case ".yaml", ".yml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("no codec for %q", path)
	}
}

// encodeJSON renders one diff as a small JSON object for the database and
// object-store backends.
func encodeJSON(d setdiff.Diff[string]) ([]byte, error) {
	rec := RecordOf(d)
	doc, err := sjson.SetBytes([]byte(`{"version":1}`), "added", rec.Added)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(doc, "removed", rec.Removed)
}

// decodeJSON parses the output of encodeJSON. Missing lists read as empty.
func decodeJSON(data []byte) (setdiff.Diff[string], error) {
	if !gjson.ValidBytes(data) {
		return setdiff.Diff[string]{}, fmt.Errorf("malformed diff payload")
	}
	fields := gjson.GetManyBytes(data, "added", "removed")
	var rec Record
	for _, v := range fields[0].Array() {
		rec.Added = append(rec.Added, v.String())
	}
	for _, v := range fields[1].Array() {
		rec.Removed = append(rec.Removed, v.String())
	}
	return rec.Diff(), nil
}

// encodeOptions renders option values as {"options":[{"id":..,"value":..}]}.
// IDs contain dots, so they are stored as values rather than JSON paths.
func encodeOptions(values map[string]bool) ([]byte, error) {
	doc := []byte(`{"version":1,"options":[]}`)
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		var err error
		doc, err = sjson.SetBytes(doc, "options.-1", map[string]any{"id": id, "value": values[id]})
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// decodeOptions parses the output of encodeOptions.
func decodeOptions(data []byte) (map[string]bool, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("malformed options payload")
	}
	out := make(map[string]bool)
	gjson.GetBytes(data, "options").ForEach(func(_, v gjson.Result) bool {
		if id := v.Get("id").String(); id != "" {
			out[id] = v.Get("value").Bool()
		}
		return true
	})
	return out, nil
}
