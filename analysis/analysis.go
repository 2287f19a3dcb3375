// Package analysis defines the contract shared by every analyzer: the
// embeddable Base, the Result container, and the Chart capability the
// analyzers attach artifacts through.
package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sartorproj/goanalyze/dataset"
)

// ErrNoDataset is returned by ValidateDataset when no usable dataset
// has been attached.
var ErrNoDataset = errors.New("no dataset set")

// Chart is the narrow capability the engine requires of a chart
// artifact. Rendering lives outside the module; analyzers only attach
// and count charts.
type Chart interface {
	Title() string
	Plot() error
}

// Result packages the output of a single analyzer invocation. It is
// immutable once returned except for AddChart.
type Result struct {
	ID        string
	Timestamp time.Time
	Data      any
	Metadata  map[string]any

	charts []Chart
}

// NewResult creates a result with a fresh ID and timestamp. The
// metadata envelope always carries analysis_type, timestamp, and id.
func NewResult(data any, metadata map[string]any, charts ...Chart) *Result {
	r := &Result{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Data:      data,
		Metadata:  make(map[string]any, len(metadata)+3),
	}
	for k, v := range metadata {
		r.Metadata[k] = v
	}
	if _, ok := r.Metadata["analysis_type"]; !ok {
		r.Metadata["analysis_type"] = "unknown"
	}
	r.Metadata["timestamp"] = r.Timestamp.Format(time.RFC3339)
	r.Metadata["id"] = r.ID
	r.charts = append(r.charts, charts...)
	return r
}

// AddChart appends a chart artifact and returns the result for
// chaining.
func (r *Result) AddChart(c Chart) *Result {
	r.charts = append(r.charts, c)
	return r
}

// Charts returns a copy of the attached charts in attachment order.
func (r *Result) Charts() []Chart {
	out := make([]Chart, len(r.charts))
	copy(out, r.charts)
	return out
}

// ChartCount returns the number of attached charts.
func (r *Result) ChartCount() int {
	return len(r.charts)
}

// ToMap returns a JSON-serializable view of the result. Datasets are
// serialized as row mappings; any leaf that cannot be marshaled is
// stringified in place.
func (r *Result) ToMap() map[string]any {
	return map[string]any{
		"id":           r.ID,
		"timestamp":    r.Timestamp.Format(time.RFC3339),
		"metadata":     r.Metadata,
		"charts_count": len(r.charts),
		"data":         normalizeData(r.Data),
	}
}

func normalizeData(data any) any {
	switch v := data.(type) {
	case nil:
		return nil
	case *dataset.Dataset:
		return v.Records()
	case dataset.Dataset:
		return v.Records()
	}
	if _, err := json.Marshal(data); err != nil {
		return sanitize(reflect.ValueOf(data))
	}
	return data
}

// sanitize rebuilds a value that failed to marshal as a JSON-safe
// tree, stringifying only the offending leaves (NaN, infinities,
// unsupported types). Subtrees that marshal cleanly pass through
// untouched.
func sanitize(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if v.CanInterface() {
		if _, err := json.Marshal(v.Interface()); err == nil {
			return v.Interface()
		}
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return sanitize(v.Elem())
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprintf("%v", iter.Key().Interface())] = sanitize(iter.Value())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = sanitize(v.Index(i))
		}
		return out
	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag, ok := f.Tag.Lookup("json"); ok {
				parts := strings.Split(tag, ",")
				if parts[0] == "-" && len(parts) == 1 {
					continue
				}
				if parts[0] != "" {
					name = parts[0]
				}
				omit := false
				for _, opt := range parts[1:] {
					if opt == "omitempty" {
						omit = true
					}
				}
				if omit && v.Field(i).IsZero() {
					continue
				}
			}
			out[name] = sanitize(v.Field(i))
		}
		return out
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// ToJSON serializes the result through ToMap.
func (r *Result) ToJSON() ([]byte, error) {
	return json.Marshal(r.ToMap())
}

// ToJSONIndent serializes the result with indentation for display.
func (r *Result) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(r.ToMap(), "", "  ")
}

// Base is the embeddable analyzer core: dataset handle, parameter bag,
// result history, and the diagnostic warnings channel.
type Base struct {
	name       string
	ds         *dataset.Dataset
	parameters map[string]any
	results    []*Result
	warnings   []string
}

// NewBase creates an analyzer core with the given name and dataset.
func NewBase(name string, ds *dataset.Dataset) *Base {
	return &Base{
		name:       name,
		ds:         ds,
		parameters: make(map[string]any),
	}
}

// Name returns the analyzer name used as the default analysis_type.
func (b *Base) Name() string {
	return b.name
}

// SetDataset attaches a dataset and returns the base for chaining.
func (b *Base) SetDataset(ds *dataset.Dataset) *Base {
	b.ds = ds
	return b
}

// Dataset returns the attached dataset.
func (b *Base) Dataset() *dataset.Dataset {
	return b.ds
}

// SetParameters merges the given parameters into the analyzer's bag
// and returns the base for chaining.
func (b *Base) SetParameters(params map[string]any) *Base {
	for k, v := range params {
		b.parameters[k] = v
	}
	return b
}

// SetParameter sets a single parameter and returns the base for
// chaining.
func (b *Base) SetParameter(key string, value any) *Base {
	b.parameters[key] = value
	return b
}

// Parameters returns a copy of the parameter bag.
func (b *Base) Parameters() map[string]any {
	out := make(map[string]any, len(b.parameters))
	for k, v := range b.parameters {
		out[k] = v
	}
	return out
}

// ValidateDataset fails when no dataset is attached or the attached
// dataset carries no table.
func (b *Base) ValidateDataset() error {
	if b.ds == nil {
		return ErrNoDataset
	}
	if b.ds.NumCols() == 0 {
		return fmt.Errorf("%w: dataset has no columns", ErrNoDataset)
	}
	if b.ds.NumRows() == 0 {
		return fmt.Errorf("%w: dataset has no rows", ErrNoDataset)
	}
	return nil
}

// CreateResult builds a Result with the analyzer's metadata envelope
// (analysis_type and a parameter snapshot; caller keys win on
// conflict), appends it to the history, and returns it.
func (b *Base) CreateResult(data any, metadata map[string]any, charts ...Chart) *Result {
	merged := map[string]any{
		"analysis_type": b.name,
		"parameters":    b.Parameters(),
	}
	for k, v := range metadata {
		merged[k] = v
	}
	r := NewResult(data, merged, charts...)
	b.results = append(b.results, r)
	return r
}

// Results returns the result history in call order.
func (b *Base) Results() []*Result {
	out := make([]*Result, len(b.results))
	copy(out, b.results)
	return out
}

// LastResult returns the most recent result, or nil when none exist.
func (b *Base) LastResult() *Result {
	if len(b.results) == 0 {
		return nil
	}
	return b.results[len(b.results)-1]
}

// ClearResults empties the result history.
func (b *Base) ClearResults() {
	b.results = nil
}

// Warn records a diagnostic note. The engine never logs; silently
// narrowed or skipped inputs surface here instead.
func (b *Base) Warn(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// Warnings returns the recorded diagnostic notes in order.
func (b *Base) Warnings() []string {
	out := make([]string, len(b.warnings))
	copy(out, b.warnings)
	return out
}
