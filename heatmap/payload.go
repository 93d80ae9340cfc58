package heatmap

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is what the backend sent for a heatmap request: exactly one of
// NumericRows, CategoricalLabels or Opaque.
type Payload interface {
	shape() Shape
}

// Shape names the variant a Heatmap was built from.
type Shape string

const (
	ShapeNumeric     Shape = "numeric"
	ShapeCategorical Shape = "categorical"
	ShapeOpaque      Shape = "opaque"
)

// wireRow accepts fractional or missing scores; Build rounds and clamps them.
type wireRow struct {
	ContentType     string   `json:"promptType"`
	YourScore       *float64 `json:"yourBrandScore"`
	CompetitorScore *float64 `json:"competitorScore"`
}

// NumericRows is the explicit heatmap shape: a "data" array of scored rows.
type NumericRows struct {
	Brand           string          `json:"brand"`
	Competitor      *string         `json:"competitor"`
	Data            []wireRow       `json:"data"`
	Recommendations json.RawMessage `json:"recommendations,omitempty"`
	TokensUsed      int             `json:"tokens_used,omitempty"`
	UsingOpenAI     bool            `json:"using_openai,omitempty"`
	IsMock          bool            `json:"is_mock,omitempty"`

	raw json.RawMessage
}

func (NumericRows) shape() Shape { return ShapeNumeric }

// CategoricalLabels is the brand-missing shape: which content types were
// analysed and which of them are missing or strong for the brand.
type CategoricalLabels struct {
	Brand       string   `json:"brand"`
	Analyzed    []string `json:"prompt_types_analyzed"`
	Missing     []string `json:"missing_prompt_types"`
	Strong      []string `json:"strong_prompt_types"`
	TokensUsed  int      `json:"tokens_used,omitempty"`
	UsingOpenAI bool     `json:"using_openai,omitempty"`
	IsMock      bool     `json:"is_mock,omitempty"`

	raw json.RawMessage
}

func (CategoricalLabels) shape() Shape { return ShapeCategorical }

// Opaque is any other JSON the backend chose to return. It is carried through
// untouched.
type Opaque struct {
	Raw json.RawMessage
}

func (Opaque) shape() Shape { return ShapeOpaque }

// Decode inspects raw and picks the variant by which fields are present:
// a "data" array means NumericRows, a "prompt_types_analyzed" key means
// CategoricalLabels, anything else is Opaque.
func Decode(raw []byte) (Payload, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		// valid JSON that is not an object (array, string, ...)
		if json.Valid(raw) {
			return Opaque{Raw: clone(raw)}, nil
		}
		return nil, fmt.Errorf("decode heatmap payload: %w", err)
	}

	if data, ok := probe["data"]; ok && isArray(data) {
		var n NumericRows
		if err := json.Unmarshal(raw, &n); err != nil {
			// array of something other than rows: keep it opaque
			return Opaque{Raw: clone(raw)}, nil
		}
		n.raw = clone(raw)
		return n, nil
	}

	if _, ok := probe["prompt_types_analyzed"]; ok {
		var c CategoricalLabels
		if err := json.Unmarshal(raw, &c); err != nil {
			return Opaque{Raw: clone(raw)}, nil
		}
		c.raw = clone(raw)
		return c, nil
	}

	return Opaque{Raw: clone(raw)}, nil
}

func isArray(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}

func clone(b []byte) json.RawMessage {
	return append(json.RawMessage(nil), b...)
}
