package domain

// MembershipDelta is the added/removed user sets computed from a before/after
// comparison of a member list. It is transient, computed per request and never
// persisted.
type MembershipDelta struct {
	Added   []UserID
	Removed []UserID
}

// IsEmpty reports whether the delta carries no changes.
func (d MembershipDelta) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// ComputeMembershipDelta diffs two member lists. Input order is not
// significant; duplicates within an input count once.
func ComputeMembershipDelta(before, after []UserID) MembershipDelta {
	was := make(map[UserID]bool, len(before))
	for _, id := range before {
		was[id] = true
	}
	is := make(map[UserID]bool, len(after))
	for _, id := range after {
		is[id] = true
	}

	var delta MembershipDelta
	seenAdded := make(map[UserID]bool)
	for _, id := range after {
		if !was[id] && !seenAdded[id] {
			seenAdded[id] = true
			delta.Added = append(delta.Added, id)
		}
	}
	seenRemoved := make(map[UserID]bool)
	for _, id := range before {
		if !is[id] && !seenRemoved[id] {
			seenRemoved[id] = true
			delta.Removed = append(delta.Removed, id)
		}
	}
	return delta
}
