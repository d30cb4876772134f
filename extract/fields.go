package extract

import (
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// truncMarker is appended to free-text fields cut at the configured maximum
// length. The transform is lossy and one-way.
const truncMarker = "..."

// truncate cuts s to at most max runes, appending the marker if anything was
// cut. A max of 0 or less disables truncation.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + truncMarker
}

// joinField serializes a multi-valued field. Lists are joined by ";"; list
// items which are key-value groups are serialized as ","-joined key:value
// pairs first. A bare key-value group becomes ";"-joined pairs. Keys are
// sorted so the output is reproducible regardless of map iteration order.
func joinField(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []interface{}:
		items := make([]string, 0, len(val))
		for _, item := range val {
			if kv, ok := item.(map[string]interface{}); ok {
				items = append(items, kvJoin(kv, ","))
			} else {
				items = append(items, cast.ToString(item))
			}
		}
		return strings.Join(items, ";")
	case map[string]interface{}:
		return kvJoin(val, ";")
	default:
		return cast.ToString(v)
	}
}

func kvJoin(kv map[string]interface{}, sep string) string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+":"+cast.ToString(kv[k]))
	}
	return strings.Join(pairs, sep)
}

// authorsSummary serializes a book's contributor list as ";"-joined
// "author_id:name" pairs. The book dump rarely carries names, so the name is
// often empty - the pair shape is kept anyway for a stable column format.
func authorsSummary(v interface{}) string {
	list, ok := v.([]interface{})
	if !ok {
		return joinField(v)
	}
	items := make([]string, 0, len(list))
	for _, item := range list {
		kv, ok := item.(map[string]interface{})
		if !ok {
			items = append(items, cast.ToString(item))
			continue
		}
		items = append(items, cast.ToString(kv["author_id"])+":"+cast.ToString(kv["name"]))
	}
	return strings.Join(items, ";")
}
