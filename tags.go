package skyline

import (
	"sort"
	"strings"
)

// TagKeyName is the reserved tag holding the metric identifier.
const TagKeyName = "name"

// copyTags creates a deep copy of a tag map.
func copyTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

// formatTagsString formats tags as "k1=v1,k2=v2" sorted by key.
func formatTagsString(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tags))
	for k, v := range tags {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// groupLabel formats a group-by result label as "k1=v1,k2=v2" in group-by key
// order (not sorted: the key order is the order the caller grouped by).
func groupLabel(tags map[string]string, keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v, ok := tags[k]; ok {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, ",")
}

// groupKey builds the sort/partition key for a group-by tuple: the tag values
// over keys joined in key order. Series missing any key are excluded from the
// grouping, so the caller never sees a partial tuple.
func groupKey(tags map[string]string, keys []string) (string, bool) {
	vals := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := tags[k]
		if !ok {
			return "", false
		}
		vals = append(vals, v)
	}
	return strings.Join(vals, "\x00"), true
}

// selectTags returns the subset of tags named by keys.
func selectTags(tags map[string]string, keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := tags[k]; ok {
			out[k] = v
		}
	}
	return out
}
