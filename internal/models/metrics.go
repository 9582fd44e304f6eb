package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// MetricType is an informal display hint; the store never validates it.
type MetricType = string

const (
	Text       MetricType = "text"
	Number     MetricType = "number"
	Percentage MetricType = "percentage"
	Currency   MetricType = "currency"
)

const (
	DefaultMetricType = Text
	DefaultColor      = "blue"
)

// Metric is a single dashboard statistic.
type Metric struct {
	ID         *int64  `json:"id" db:"id"`
	Name       string  `json:"name" db:"name"`
	Value      string  `json:"value" db:"value"`
	MetricType string  `json:"metric_type" db:"metric_type"`
	Color      string  `json:"color" db:"color"`
	Icon       *string `json:"icon" db:"icon"`
}

// NewMetric returns a metric with the schema defaults applied.
func NewMetric(name, value string) Metric {
	return Metric{
		Name:       name,
		Value:      value,
		MetricType: DefaultMetricType,
		Color:      DefaultColor,
	}
}

// HasID reports whether the metric carries an explicit identifier.
func (m Metric) HasID() bool {
	return m.ID != nil
}

// ValidationError describes a payload field that could not be coerced.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// DecodeMetric coerces a JSON object into a Metric, applying defaults for the
// optional fields. Unknown keys are ignored.
func DecodeMetric(data []byte) (Metric, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return Metric{}, err
	}

	m := NewMetric("", "")

	if raw, ok := fields["id"]; ok && !isNull(raw) {
		var id int64
		if err := json.Unmarshal(raw, &id); err != nil {
			return Metric{}, &ValidationError{Field: "id", Reason: "must be an integer"}
		}
		m.ID = &id
	}

	name, err := requiredString(fields, "name")
	if err != nil {
		return Metric{}, err
	}
	m.Name = name

	value, err := requiredValue(fields)
	if err != nil {
		return Metric{}, err
	}
	m.Value = value

	if s, err := optionalString(fields, "metric_type"); err != nil {
		return Metric{}, err
	} else if s != nil {
		m.MetricType = *s
	}

	if s, err := optionalString(fields, "color"); err != nil {
		return Metric{}, err
	} else if s != nil {
		m.Color = *s
	}

	icon, err := optionalString(fields, "icon")
	if err != nil {
		return Metric{}, err
	}
	m.Icon = icon

	return m, nil
}

// MetricPatch holds only the fields explicitly present in an update payload.
type MetricPatch struct {
	Name       *string
	Value      *string
	MetricType *string
	Color      *string
	Icon       *string
	SetIcon    bool
}

// DecodePatch builds a MetricPatch from a JSON object. Keys that are absent
// leave the stored value untouched; "id" is ignored.
func DecodePatch(data []byte) (MetricPatch, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return MetricPatch{}, err
	}

	var p MetricPatch
	if _, ok := fields["name"]; ok {
		s, err := requiredString(fields, "name")
		if err != nil {
			return MetricPatch{}, err
		}
		p.Name = &s
	}
	if _, ok := fields["value"]; ok {
		s, err := requiredValue(fields)
		if err != nil {
			return MetricPatch{}, err
		}
		p.Value = &s
	}
	if _, ok := fields["metric_type"]; ok {
		s, err := requiredString(fields, "metric_type")
		if err != nil {
			return MetricPatch{}, err
		}
		p.MetricType = &s
	}
	if _, ok := fields["color"]; ok {
		s, err := requiredString(fields, "color")
		if err != nil {
			return MetricPatch{}, err
		}
		p.Color = &s
	}
	if _, ok := fields["icon"]; ok {
		s, err := optionalString(fields, "icon")
		if err != nil {
			return MetricPatch{}, err
		}
		p.Icon = s
		p.SetIcon = true
	}
	return p, nil
}

// Apply returns a copy of m with the patched fields overwritten.
func (p MetricPatch) Apply(m Metric) Metric {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Value != nil {
		m.Value = *p.Value
	}
	if p.MetricType != nil {
		m.MetricType = *p.MetricType
	}
	if p.Color != nil {
		m.Color = *p.Color
	}
	if p.SetIcon {
		if p.Icon == nil {
			m.Icon = nil
		} else {
			icon := *p.Icon
			m.Icon = &icon
		}
	}
	return m
}

// Fields lists the JSON keys carried by the patch, sorted.
func (p MetricPatch) Fields() []string {
	var keys []string
	if p.Name != nil {
		keys = append(keys, "name")
	}
	if p.Value != nil {
		keys = append(keys, "value")
	}
	if p.MetricType != nil {
		keys = append(keys, "metric_type")
	}
	if p.Color != nil {
		keys = append(keys, "color")
	}
	if p.SetIcon {
		keys = append(keys, "icon")
	}
	sort.Strings(keys)
	return keys
}

// Empty reports whether the patch changes nothing.
func (p MetricPatch) Empty() bool {
	return len(p.Fields()) == 0
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &ValidationError{Reason: "body must be a JSON object"}
	}
	if fields == nil {
		return nil, &ValidationError{Reason: "body must be a JSON object"}
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", &ValidationError{Field: key, Reason: "field required"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &ValidationError{Field: key, Reason: "must be a string"}
	}
	return s, nil
}

func optionalString(fields map[string]json.RawMessage, key string) (*string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &ValidationError{Field: key, Reason: "must be a string"}
	}
	return &s, nil
}

// requiredValue accepts a string or a JSON number, keeping the number's literal text.
func requiredValue(fields map[string]json.RawMessage) (string, error) {
	raw, ok := fields["value"]
	if !ok || isNull(raw) {
		return "", &ValidationError{Field: "value", Reason: "field required"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", &ValidationError{Field: "value", Reason: "must be a string or a number"}
	}
	return n.String(), nil
}
