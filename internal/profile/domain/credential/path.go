package credential

import (
	"strconv"
	"strings"

	"beneficiary/pkg/jsonvalue"
)

// Resolve walks a dot-separated path through doc. Numeric segments index into
// arrays. It returns nil for an empty path, any missing segment, a step into a
// scalar, or an explicit JSON null.
func Resolve(doc jsonvalue.Value, path string) jsonvalue.Value {
	if path == "" || doc == nil {
		return nil
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return nil
		}
		switch node := cur.(type) {
		case *jsonvalue.Object:
			next, ok := node.Get(seg)
			if !ok {
				return nil
			}
			cur = next
		case jsonvalue.Array:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}
