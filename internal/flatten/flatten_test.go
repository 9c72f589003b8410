package flatten

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenNestedKeys(t *testing.T) {
	doc := map[string]interface{}{
		"vendor": map[string]interface{}{
			"item": map[string]interface{}{
				"code":  "A1",
				"price": 10.5,
			},
			"name": "acme",
		},
		"count": 3,
	}

	flat := Flatten(doc, 0)
	assert.Equal(t, "A1", flat["vendor.item.code"])
	assert.Equal(t, 10.5, flat["vendor.item.price"])
	assert.Equal(t, "acme", flat["vendor.name"])
	assert.Equal(t, 3, flat["count"])
}

func TestFlattenMaxDepth(t *testing.T) {
	doc := map[string]interface{}{
		"a": map[string]interface{}{
			"b": map[string]interface{}{
				"c": map[string]interface{}{
					"d": map[string]interface{}{
						"e": 1,
					},
				},
			},
		},
	}

	flat := Flatten(doc, 4)
	v, ok := flat["a.b.c.d"]
	require.True(t, ok, "levels beyond maxDepth stay nested")
	nested, ok := v.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, nested["e"])
}

func TestFlattenSliceIsLeaf(t *testing.T) {
	doc := map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"code": "A1"},
		},
	}
	flat := Flatten(doc, 0)
	assert.Len(t, flat, 1)
	assert.IsType(t, []interface{}{}, flat["items"])
}

func TestSafeGetMissingIntermediate(t *testing.T) {
	doc := map[string]interface{}{
		"a": map[string]interface{}{"b": 1},
	}
	assert.Nil(t, SafeGet(doc, "a.x.c"))
	assert.Nil(t, SafeGet(doc, "missing"))
	assert.Equal(t, 1, SafeGet(doc, "a.b"))
	assert.Nil(t, SafeGet(doc, "a.b.c"), "cannot descend into a scalar")
}

func TestSafeGetSliceIndex(t *testing.T) {
	doc := map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"code": "A1"},
			map[string]interface{}{"code": "B2"},
		},
	}
	assert.Equal(t, "B2", SafeGet(doc, "items.1.code"))
	assert.Nil(t, SafeGet(doc, "items.9.code"))
}

func TestSet(t *testing.T) {
	doc := map[string]interface{}{}
	Set(doc, "data.items", []interface{}{"x"})
	assert.Equal(t, []interface{}{"x"}, SafeGet(doc, "data.items"))
}
