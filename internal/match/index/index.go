// Package index groups donors by blood group for matching.
package index

import (
	donormodels "bloodlink/internal/donor/models"
)

// Index maps each canonical blood group to its donors in input order.
// It references the donors it was built from and never copies them.
type Index struct {
	groups map[donormodels.BloodGroup][]*donormodels.Donor
	size   int
}

// Build indexes donors. Donors with a non-canonical blood group are left out.
func Build(donors []*donormodels.Donor) *Index {
	idx := &Index{groups: make(map[donormodels.BloodGroup][]*donormodels.Donor, len(donormodels.BloodGroups))}
	for _, d := range donors {
		if d == nil || !d.BloodGroup.IsValid() {
			continue
		}
		idx.groups[d.BloodGroup] = append(idx.groups[d.BloodGroup], d)
		idx.size++
	}
	return idx
}

// Lookup returns the donors whose blood group is exactly group. The result is
// empty for unknown groups.
func (x *Index) Lookup(group donormodels.BloodGroup) []*donormodels.Donor {
	if x == nil {
		return nil
	}
	return x.groups[group]
}

// Groups lists the groups that have at least one donor, in canonical order.
func (x *Index) Groups() []donormodels.BloodGroup {
	if x == nil {
		return nil
	}
	var out []donormodels.BloodGroup
	for _, g := range donormodels.BloodGroups {
		if len(x.groups[g]) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// Len is the number of donors held across all groups.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return x.size
}
