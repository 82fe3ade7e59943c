package metadata

// MergeMetadata deep-merges patch into base and returns the result without
// mutating either input. Nested maps recurse; every other value, arrays
// included, replaces wholesale.
func MergeMetadata(base, patch map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		if patchMap, ok := v.(map[string]interface{}); ok {
			// Recursing with a missing or non-map base value degenerates to a
			// deep copy of the patch map, so merged never aliases the inputs.
			baseMap, _ := merged[k].(map[string]interface{})
			merged[k] = MergeMetadata(baseMap, patchMap)
			continue
		}
		merged[k] = v
	}
	return merged
}

// CopyMetadata returns a deep copy of nested map values so callers can hold a
// snapshot that later merges will not alias.
func CopyMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	return MergeMetadata(nil, m)
}
