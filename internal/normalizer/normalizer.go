// Package normalizer extracts the item list out of heterogeneous vendor
// response documents and reduces each item to a dotted-path FlatItem.
package normalizer

import (
	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/flatten"
	"inventory-connector-service/internal/models"
)

// flattenDepth bounds how deep item fields are merged into dotted keys;
// anything deeper stays nested under the deepest flattened key.
const flattenDepth = 4

// Normalizer turns decoded response documents into FlatItems.
type Normalizer struct {
	log *logrus.Logger
}

// New creates a Normalizer.
func New(log *logrus.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Normalize resolves dataListPath against each response document and
// flattens the addressed items. singleItem marks Jobs that requested exactly
// one code, whose responses carry the item directly rather than in a list.
// A document the path cannot address contributes nothing; siblings are still
// processed.
func (n *Normalizer) Normalize(docs []interface{}, dataListPath string, singleItem bool) []models.FlatItem {
	path := flatten.ParsePath(dataListPath)

	var rawItems []interface{}
	for _, doc := range docs {
		rawItems = append(rawItems, n.extract(doc, path, singleItem)...)
	}

	items := make([]models.FlatItem, 0, len(rawItems))
	for _, it := range rawItems {
		switch v := it.(type) {
		case map[string]interface{}:
			items = append(items, models.FlatItem(flatten.Flatten(v, flattenDepth)))
		case nil:
			// path missed in this document
		default:
			n.log.WithField("item", it).Warn("Skipping non-object response item")
		}
	}
	return items
}

func (n *Normalizer) extract(doc interface{}, path flatten.Path, singleItem bool) []interface{} {
	switch v := doc.(type) {
	case map[string]interface{}:
		if len(path) == 0 {
			return []interface{}{v}
		}
		target := path.Get(v)
		if target == nil {
			n.log.WithField("path", path.String()).Warn("Data list path not found in response document")
			return nil
		}
		if singleItem {
			// The addressed value is the singular item itself.
			if list, ok := target.([]interface{}); ok {
				return list
			}
			return []interface{}{target}
		}
		switch tv := target.(type) {
		case []interface{}:
			return tv
		default:
			// A single-element response serves its item unwrapped.
			return []interface{}{tv}
		}
	case []interface{}:
		if len(path) == 0 {
			return v
		}
		var out []interface{}
		for _, el := range v {
			out = append(out, n.extract(el, path, singleItem)...)
		}
		return out
	default:
		return nil
	}
}
