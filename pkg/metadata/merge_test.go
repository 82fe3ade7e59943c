package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMergeMetadataScalarsReplace(t *testing.T) {
	base := map[string]interface{}{"a": 1.0, "b": "x"}
	out := MergeMetadata(base, map[string]interface{}{"b": "y", "c": true})
	assert.Equal(t, map[string]interface{}{"a": 1.0, "b": "y", "c": true}, out)
}

func TestMergeMetadataNestedMapsRecurse(t *testing.T) {
	base := map[string]interface{}{
		"_params": map[string]interface{}{"lr": 0.1, "epochs": 3.0},
	}
	out := MergeMetadata(base, map[string]interface{}{
		"_params": map[string]interface{}{"lr": 0.2},
	})
	assert.Equal(t, map[string]interface{}{
		"_params": map[string]interface{}{"lr": 0.2, "epochs": 3.0},
	}, out)
}

func TestMergeMetadataArraysReplace(t *testing.T) {
	base := map[string]interface{}{"tags": []interface{}{"a", "b"}}
	out := MergeMetadata(base, map[string]interface{}{"tags": []interface{}{"c"}})
	assert.Equal(t, []interface{}{"c"}, out["tags"])
}

func TestMergeMetadataDoesNotAliasInputs(t *testing.T) {
	base := map[string]interface{}{"nested": map[string]interface{}{"k": "v"}}
	patch := map[string]interface{}{"nested": map[string]interface{}{"k2": "v2"}}
	out := MergeMetadata(base, patch)
	out["nested"].(map[string]interface{})["k"] = "mutated"
	assert.Equal(t, "v", base["nested"].(map[string]interface{})["k"])
	_, patched := patch["nested"].(map[string]interface{})["k"]
	assert.False(t, patched)
}

func TestCopyMetadataDeep(t *testing.T) {
	base := map[string]interface{}{"nested": map[string]interface{}{"k": "v"}}
	copied := CopyMetadata(base)
	copied["nested"].(map[string]interface{})["k"] = "mutated"
	assert.Equal(t, "v", base["nested"].(map[string]interface{})["k"])
}

func metadataGen() *rapid.Generator[map[string]interface{}] {
	key := rapid.StringMatching(`[a-z]{1,4}`)
	scalar := rapid.OneOf(
		rapid.Float64Range(-1e6, 1e6).AsAny(),
		rapid.StringMatching(`[a-z]{0,6}`).AsAny(),
		rapid.Bool().AsAny(),
	)
	leaf := rapid.MapOfN(key, scalar, 0, 4)
	return rapid.Custom(func(t *rapid.T) map[string]interface{} {
		out := map[string]interface{}{}
		for k, v := range leaf.Draw(t, "scalars") {
			out[k] = v
		}
		for k, v := range rapid.MapOfN(key, leaf, 0, 3).Draw(t, "nested") {
			nested := map[string]interface{}{}
			for nk, nv := range v {
				nested[nk] = nv
			}
			out[k] = nested
		}
		return out
	})
}

// Post-state equals the deep merge: nested maps recurse, everything else is
// replaced by the patch.
func TestMergeMetadataProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := metadataGen().Draw(t, "base")
		patch := metadataGen().Draw(t, "patch")
		out := MergeMetadata(base, patch)

		for key, want := range patch {
			patchMap, patchIsMap := want.(map[string]interface{})
			baseMap, baseIsMap := base[key].(map[string]interface{})
			if patchIsMap && baseIsMap {
				got := out[key].(map[string]interface{})
				for nk, nv := range patchMap {
					if got[nk] != nv {
						t.Fatalf("nested key %s.%s = %v, want %v", key, nk, got[nk], nv)
					}
				}
				for nk, nv := range baseMap {
					if _, overridden := patchMap[nk]; !overridden && got[nk] != nv {
						t.Fatalf("nested key %s.%s lost base value", key, nk)
					}
				}
				continue
			}
			if !assert.ObjectsAreEqual(want, out[key]) {
				t.Fatalf("key %s = %v, want %v", key, out[key], want)
			}
		}
		for key, want := range base {
			if _, overridden := patch[key]; !overridden && !assert.ObjectsAreEqual(want, out[key]) {
				t.Fatalf("key %s lost base value", key)
			}
		}
	})
}
