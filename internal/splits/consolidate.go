package splits

import "sort"

// MergePlan is the change-set produced by duplicate consolidation. Nothing
// is written while planning, which is what makes dry-run mode cheap.
type MergePlan struct {
	Updates []*Split
	Deletes []*Split
}

// IsEmpty reports whether the plan would change anything.
func (p MergePlan) IsEmpty() bool {
	return len(p.Updates) == 0 && len(p.Deletes) == 0
}

// SongIDs returns the distinct songs the plan touches, ordered ascending.
// Applying the plan runs one transaction per song.
func (p MergePlan) SongIDs() []int64 {
	seen := make(map[int64]struct{})
	for _, split := range p.Updates {
		seen[split.SongID] = struct{}{}
	}
	for _, split := range p.Deletes {
		seen[split.SongID] = struct{}{}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MergeDuplicates plans the consolidation of splits that share a
// (song, revision, account) key. The earliest split of each duplicate set
// survives with the summed rate and a recomputed owner flag; the rest are
// deleted. Splits with no resolved account never merge, since distinct
// invitees are indistinguishable until they accept. owners maps song ids to
// the derived owner account, nil when unresolvable.
func MergeDuplicates(all []*Split, owners map[int64]*int64) MergePlan {
	type key struct {
		songID   int64
		revision int
		userID   int64
	}
	groups := make(map[key][]*Split)
	var order []key
	for _, split := range all {
		if !split.HasUser() {
			continue
		}
		k := key{songID: split.SongID, revision: split.Revision, userID: *split.UserID}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], split)
	}

	var plan MergePlan
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })

		survivor := group[0].Clone()
		for _, dup := range group[1:] {
			survivor.Rate = survivor.Rate.Add(dup.Rate)
			plan.Deletes = append(plan.Deletes, dup)
		}
		survivor.IsOwner = ownerFlag(survivor, owners[survivor.SongID])
		plan.Updates = append(plan.Updates, survivor)
	}
	return plan
}

// ownerFlag recomputes whether the split's account owns the song's release
// main primary artist.
func ownerFlag(split *Split, ownerID *int64) bool {
	return split.HasUser() && ownerID != nil && *split.UserID == *ownerID
}
