// Package tagging computes tag set changes between two resource states.
package tagging

import (
	"maps"
	"slices"
)

// Diff returns the keys to remove and the pairs to add so that applying
// both to previous yields desired. A changed value on a kept key shows up
// only in add; the provider's add call overwrites by key.
func Diff(previous, desired map[string]string) (remove []string, add map[string]string) {
	add = map[string]string{}

	if len(previous) == 0 {
		maps.Copy(add, desired)
		return nil, add
	}
	if len(desired) == 0 {
		return slices.Sorted(maps.Keys(previous)), add
	}

	for k := range previous {
		if _, ok := desired[k]; !ok {
			remove = append(remove, k)
		}
	}
	slices.Sort(remove)

	for k, v := range desired {
		if old, ok := previous[k]; !ok || old != v {
			add[k] = v
		}
	}
	return remove, add
}

// Merge combines tag sets; later sets win on key conflicts.
func Merge(sets ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, s := range sets {
		maps.Copy(merged, s)
	}
	return merged
}

// Apply returns a copy of tags with remove deleted and add written.
func Apply(tags map[string]string, remove []string, add map[string]string) map[string]string {
	out := maps.Clone(tags)
	if out == nil {
		out = map[string]string{}
	}
	for _, k := range remove {
		delete(out, k)
	}
	maps.Copy(out, add)
	return out
}
