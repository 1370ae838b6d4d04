// Package category holds the fixed taxonomy of problems a report can be filed under,
// together with the keywords and confidence thresholds used to recognise them in
// image classifier output.
package category

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Category IDs shipped with the service.
const (
	Alagamento     = "alagamento"
	Lixo           = "lixo"
	ArvoreCaida    = "arvore_caida"
	BueiroEntupido = "bueiro_entupido"
	Buraco         = "buraco"
)

const (
	// DefaultThreshold is the fallback confidence threshold for every shipped category.
	DefaultThreshold = 0.1

	// UnknownThreshold is returned by ThresholdFor when the category is not registered.
	UnknownThreshold = 0.5
)

// Category is one of the fixed civic problem types.
type Category struct {
	ID             string   `json:"id"`
	Label          string   `json:"label"`
	Keywords       []string `json:"-"`
	Threshold      float64  `json:"threshold"`
	FailureMessage string   `json:"-"`
}

// MatchesLabel reports whether any keyword occurs in the already lower-cased label.
// Containment is substring based: "tree" matches "palm tree" and "treehouse" alike.
func (c Category) MatchesLabel(lowerLabel string) bool {
	if lowerLabel == "" {
		return false
	}
	for _, kw := range c.Keywords {
		if strings.Contains(lowerLabel, kw) {
			return true
		}
	}
	return false
}

// definitions is the shipped taxonomy in display order.
// Keyword lists are matched as substrings of lower-cased classifier labels.
var definitions = []Category{
	{
		ID:    Alagamento,
		Label: "Alagamento",
		Keywords: []string{
			"flood", "water", "rain", "puddle", "river", "lake", "lakeside",
			"inundation", "stream", "wet", "canoe", "boat",
		},
		FailureMessage: "A imagem não parece mostrar um alagamento. Envie uma foto que mostre a área alagada.",
	},
	{
		ID:    Lixo,
		Label: "Lixo acumulado",
		Keywords: []string{
			"garbage", "trash", "waste", "litter", "rubbish", "dump", "landfill",
			"plastic bag", "ashcan", "trash can", "bottle", "carton", "packet",
		},
		FailureMessage: "A imagem não parece mostrar lixo acumulado. Envie uma foto em que o lixo esteja visível.",
	},
	{
		ID:    ArvoreCaida,
		Label: "Árvore caída",
		Keywords: []string{
			"tree", "branch", "trunk", "log", "wood", "timber", "lumber",
			"fallen", "palm", "oak", "chain saw",
		},
		FailureMessage: "A imagem não parece mostrar uma árvore caída. Envie uma foto que mostre a árvore ou os galhos.",
	},
	{
		ID:    BueiroEntupido,
		Label: "Bueiro entupido",
		Keywords: []string{
			"drain", "sewer", "manhole", "manhole cover", "gutter", "grate",
			"grating", "culvert", "storm drain", "pipe",
		},
		FailureMessage: "A imagem não parece mostrar um bueiro entupido. Envie uma foto que mostre o bueiro.",
	},
	{
		ID:    Buraco,
		Label: "Buraco na via",
		Keywords: []string{
			"pothole", "hole", "crack", "asphalt", "road", "street", "pavement",
			"crater", "tarmac", "sidewalk",
		},
		FailureMessage: "A imagem não parece mostrar um buraco na via. Envie uma foto que mostre o buraco.",
	},
}

// IDs returns the shipped category IDs in display order.
func IDs() []string {
	ids := make([]string, len(definitions))
	for i, d := range definitions {
		ids[i] = d.ID
	}
	return ids
}

// LabelFor returns the display label of a shipped category, or id itself.
func LabelFor(id string) string {
	for _, d := range definitions {
		if d.ID == id {
			return d.Label
		}
	}
	return id
}

// Thresholds carries the threshold overrides resolved from configuration.
// Zero values mean "not set".
type Thresholds struct {
	PerCategory map[string]float64
	Shared      float64
	Default     float64
}

// Resolve returns the effective threshold for a category ID: the per-category
// override, then the shared override, then Default, then DefaultThreshold.
func (t Thresholds) Resolve(id string) float64 {
	if v := t.PerCategory[id]; v > 0 {
		return v
	}
	if t.Shared > 0 {
		return t.Shared
	}
	if t.Default > 0 {
		return t.Default
	}
	return DefaultThreshold
}

// ParseThreshold parses a raw override value. Only finite positive numbers are accepted.
func ParseThreshold(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// ResolveThreshold applies the override chain to raw configuration values:
// category value, then shared value, then fallback.
func ResolveThreshold(categoryValue, sharedValue string, fallback float64) float64 {
	if v, ok := ParseThreshold(categoryValue); ok {
		return v
	}
	if v, ok := ParseThreshold(sharedValue); ok {
		return v
	}
	return fallback
}

// Registry is the immutable, ordered set of categories. Safe for concurrent use.
type Registry struct {
	categories []Category
	byID       map[string]int
}

// NewRegistry builds the shipped registry with thresholds resolved from t.
func NewRegistry(t Thresholds) *Registry {
	r, err := newRegistry(definitions, t)
	if err != nil {
		panic(err)
	}
	return r
}

func newRegistry(defs []Category, t Thresholds) (*Registry, error) {
	r := &Registry{
		categories: make([]Category, 0, len(defs)),
		byID:       make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", d.ID)
		}
		c := d
		c.Keywords = append([]string(nil), d.Keywords...)
		c.Threshold = t.Resolve(d.ID)
		r.byID[c.ID] = len(r.categories)
		r.categories = append(r.categories, c)
	}
	return r, nil
}

// FindByID returns the category with the given ID.
func (r *Registry) FindByID(id string) (Category, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Category{}, false
	}
	return r.categories[i], true
}

// All returns the categories in display order. The slice is a copy.
func (r *Registry) All() []Category {
	out := make([]Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// ThresholdFor returns the effective threshold for id, or UnknownThreshold.
func (r *Registry) ThresholdFor(id string) float64 {
	if c, ok := r.FindByID(id); ok {
		return c.Threshold
	}
	return UnknownThreshold
}
