package source

import (
	"iter"
	"slices"

	"github.com/tidwall/gjson"
)

// Walk yields every value in the tree rooted at root in document order,
// root first. It keeps its own stack so deeply nested payloads cannot
// exhaust the goroutine stack.
func Walk(root gjson.Result) iter.Seq[gjson.Result] {
	return func(yield func(gjson.Result) bool) {
		if !root.Exists() {
			return
		}
		stack := []gjson.Result{root}
		var children []gjson.Result
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(node) {
				return
			}
			if !node.IsObject() && !node.IsArray() {
				continue
			}
			children = children[:0]
			node.ForEach(func(_, v gjson.Result) bool {
				children = append(children, v)
				return true
			})
			slices.Reverse(children)
			stack = append(stack, children...)
		}
	}
}

// FindKey yields, in document order, the value of every object member named
// key anywhere under root.
func FindKey(root gjson.Result, key string) iter.Seq[gjson.Result] {
	return func(yield func(gjson.Result) bool) {
		for node := range Walk(root) {
			if !node.IsObject() {
				continue
			}
			var found gjson.Result
			node.ForEach(func(k, v gjson.Result) bool {
				if k.String() == key {
					found = v
					return false
				}
				return true
			})
			if found.Exists() && !yield(found) {
				return
			}
		}
	}
}
