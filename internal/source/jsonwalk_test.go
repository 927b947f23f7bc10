package source

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestWalk_DocumentOrder(t *testing.T) {
	root := gjson.Parse(`{"a":[1,{"b":2}],"c":3}`)
	var raws []string
	for v := range Walk(root) {
		raws = append(raws, v.Raw)
	}
	assert.Equal(t, []string{`{"a":[1,{"b":2}],"c":3}`, `[1,{"b":2}]`, `1`, `{"b":2}`, `2`, `3`}, raws)
}

func TestWalk_StopsEarly(t *testing.T) {
	n := 0
	for range Walk(gjson.Parse(`[1,2,3,4]`)) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestWalk_Missing(t *testing.T) {
	assert.Empty(t, slices.Collect(Walk(gjson.Result{})))
}

func TestWalk_DeepNesting(t *testing.T) {
	depth := 2000
	doc := strings.Repeat(`{"k":`, depth) + `"leaf"` + strings.Repeat(`}`, depth)
	var leaf string
	for v := range FindKey(gjson.Parse(doc), "k") {
		if v.Type == gjson.String {
			leaf = v.String()
		}
	}
	assert.Equal(t, "leaf", leaf)
}

func TestFindKey(t *testing.T) {
	root := gjson.Parse(`{"x":{"id":1},"list":[{"id":2},{"other":{"id":3}}],"id":0}`)
	var ids []int64
	for v := range FindKey(root, "id") {
		ids = append(ids, v.Int())
	}
	assert.Equal(t, []int64{0, 1, 2, 3}, ids)
}
