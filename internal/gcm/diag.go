package gcm

import (
	"encoding/json"

	"github.com/san-kum/gcmi/internal/value"
)

const (
	MetaKey         = "gcmi_mw"
	TimingsKey      = "timings"
	StepSecKey      = "step_sec"
	RequirementsKey = "gcmi_requirements"
)

type Diag map[string]any

// MetaEntry records one executed middleware layer and its configuration.
type MetaEntry struct {
	Name   string
	Fields map[string]any
}

func (m MetaEntry) Get(key string) (any, bool) {
	v, ok := m.Fields[key]
	return v, ok
}

func (m MetaEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Fields)+1)
	for k, v := range m.Fields {
		out[k] = v
	}
	out["name"] = m.Name
	return json.Marshal(out)
}

func Normalize(d Diag) Diag {
	if d == nil {
		return Diag{}
	}
	return d
}

// AppendMeta appends a middleware record, preserving earlier entries.
func (d Diag) AppendMeta(name string, fields map[string]any) {
	entries, _ := d[MetaKey].([]MetaEntry)
	d[MetaKey] = append(entries, MetaEntry{Name: name, Fields: fields})
}

func (d Diag) MetaEntries() []MetaEntry {
	entries, _ := d[MetaKey].([]MetaEntry)
	return entries
}

// LastMeta returns the most recent entry recorded under name.
func (d Diag) LastMeta(name string) (MetaEntry, bool) {
	entries := d.MetaEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Name == name {
			return entries[i], true
		}
	}
	return MetaEntry{}, false
}

// SetStepSeconds records timings.step_sec, keeping any other timing keys.
// Typed string-keyed maps are copied into a map[string]any; any other
// value under timings is replaced.
func (d Diag) SetStepSeconds(sec float64) {
	switch t := d[TimingsKey].(type) {
	case map[string]any:
		t[StepSecKey] = sec
	case value.Map:
		t[StepSecKey] = sec
	default:
		timings := map[string]any{}
		if m, ok := value.AsMap(t); ok {
			for k, v := range m {
				timings[k] = v
			}
		}
		timings[StepSecKey] = sec
		d[TimingsKey] = timings
	}
}

func (d Diag) StepSeconds() (float64, bool) {
	var t map[string]any
	switch v := d[TimingsKey].(type) {
	case map[string]any:
		t = v
	case value.Map:
		t = v
	default:
		return 0, false
	}
	sec, ok := t[StepSecKey].(float64)
	return sec, ok
}
