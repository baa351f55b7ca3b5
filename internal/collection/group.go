// Package collection holds helpers for assembling entity graphs from
// fanned-out join rows.
package collection

// GroupUnique groups items by the key returned from parentKey and drops
// items whose identity was already seen under the same parent. Group order
// and item order follow first appearance.
func GroupUnique[T any, P comparable, I comparable](items []T, parentKey func(T) P, identity func(T) I) map[P][]T {
	groups := make(map[P][]T)
	seen := make(map[P]map[I]struct{})

	for _, item := range items {
		parent := parentKey(item)
		id := identity(item)

		ids, ok := seen[parent]
		if !ok {
			ids = make(map[I]struct{})
			seen[parent] = ids
		}
		if _, dup := ids[id]; dup {
			continue
		}
		ids[id] = struct{}{}
		groups[parent] = append(groups[parent], item)
	}

	return groups
}

// Unique returns items with duplicate identities removed, keeping the first occurrence
func Unique[T any, I comparable](items []T, identity func(T) I) []T {
	seen := make(map[I]struct{}, len(items))
	result := make([]T, 0, len(items))
	for _, item := range items {
		id := identity(item)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, item)
	}
	return result
}
