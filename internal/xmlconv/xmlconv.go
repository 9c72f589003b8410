// Package xmlconv converts XML documents into the generic
// map[string]interface{} shape the rest of the pipeline consumes.
package xmlconv

import (
	"fmt"

	"github.com/clbanning/mxj/v2"
)

func init() {
	// Element text values stay strings; downstream mapping rules do their
	// own numeric conversion.
	mxj.CastNanInf(false)
}

// Parse decodes an XML document into a nested map keyed by element name.
// Repeated sibling elements become []interface{} values.
func Parse(data []byte) (map[string]interface{}, error) {
	m, err := mxj.NewMapXml(data)
	if err != nil {
		return nil, fmt.Errorf("parsing xml document: %w", err)
	}
	return map[string]interface{}(m), nil
}
