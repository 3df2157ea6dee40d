// Package category holds the ordered set of usage categories shown by wwdash.
package category

import (
	"strings"

	"github.com/waterwallet/wwdash/internal/model"
)

// Category is a usage category key with its display label.
type Category struct {
	Key   model.CategoryKey
	Label string
}

// Registry is an ordered, immutable list of categories.
type Registry struct {
	cats  []Category
	index map[model.CategoryKey]int
}

// Canonical category keys.
const (
	Kitchen  model.CategoryKey = "kitchen"
	Bathroom model.CategoryKey = "bathroom"
	Garden   model.CategoryKey = "garden"
	Outdoor  model.CategoryKey = "outdoor"
)

var defaultCategories = []Category{
	{Key: Kitchen, Label: "Kitchen"},
	{Key: Bathroom, Label: "Bathroom"},
	{Key: Garden, Label: "Garden"},
	{Key: Outdoor, Label: "Outdoor"},
}

// Default returns the canonical registry: kitchen, bathroom, garden, outdoor.
func Default() Registry {
	return build(defaultCategories)
}

// New builds a registry from configured keys and optional labels.
// Keys are lower-cased and trimmed; blanks and duplicates are dropped.
// A missing label falls back to the title-cased key. An empty key list
// yields Default().
func New(keys []string, labels map[string]string) Registry {
	var cats []Category
	seen := make(map[model.CategoryKey]struct{}, len(keys))
	for _, raw := range keys {
		k := model.CategoryKey(strings.ToLower(strings.TrimSpace(raw)))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		label := strings.TrimSpace(labels[string(k)])
		if label == "" {
			label = titleCase(string(k))
		}
		cats = append(cats, Category{Key: k, Label: label})
	}
	if len(cats) == 0 {
		return Default()
	}
	return build(cats)
}

func build(cats []Category) Registry {
	r := Registry{
		cats:  make([]Category, len(cats)),
		index: make(map[model.CategoryKey]int, len(cats)),
	}
	copy(r.cats, cats)
	for i, c := range r.cats {
		r.index[c.Key] = i
	}
	return r
}

// Categories returns a copy of the ordered categories.
func (r Registry) Categories() []Category {
	out := make([]Category, len(r.cats))
	copy(out, r.cats)
	return out
}

// Keys returns the ordered category keys.
func (r Registry) Keys() []model.CategoryKey {
	out := make([]model.CategoryKey, len(r.cats))
	for i, c := range r.cats {
		out[i] = c.Key
	}
	return out
}

// Labels returns the ordered display labels.
func (r Registry) Labels() []string {
	out := make([]string, len(r.cats))
	for i, c := range r.cats {
		out[i] = c.Label
	}
	return out
}

// Len returns the number of categories.
func (r Registry) Len() int {
	return len(r.cats)
}

// Index returns the position of key, used for stable colour assignment.
func (r Registry) Index(key model.CategoryKey) (int, bool) {
	i, ok := r.index[key]
	return i, ok
}

// Has reports whether key is a registered category.
func (r Registry) Has(key model.CategoryKey) bool {
	_, ok := r.index[key]
	return ok
}

// Label returns the display label for key, or the raw key if unknown.
func (r Registry) Label(key model.CategoryKey) string {
	if i, ok := r.index[key]; ok {
		return r.cats[i].Label
	}
	return string(key)
}

func titleCase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
