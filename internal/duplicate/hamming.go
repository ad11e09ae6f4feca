package duplicate

import (
	"fmt"
	"math/bits"
)

// HammingDistance returns the number of differing bits between two
// equal-length perceptual hashes (§4.5 "near_duplicate ... Hamming
// distance <= k").
func HammingDistance(a, b []byte) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("hamming distance: mismatched hash lengths %d and %d", len(a), len(b))
	}
	dist := 0
	for i := range a {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}
	return dist, nil
}

// PerceptualCandidate is one photo with its perceptual hash, the unit
// NearDuplicateGroups clusters over.
type PerceptualCandidate struct {
	PhotoID int64
	Hash    []byte
}

// NearDuplicateGroups greedily clusters candidates whose perceptual hashes
// are within maxDistance bits of each other's group representative. This is
// a single pass, not exhaustive pairwise clustering: each candidate is
// compared only with the first member of each existing group, and joins the
// first group close enough.
func NearDuplicateGroups(candidates []PerceptualCandidate, maxDistance int) [][]int64 {
	type group struct {
		rep     []byte
		members []int64
	}
	var groups []group

	for _, c := range candidates {
		placed := false
		for i := range groups {
			d, err := HammingDistance(groups[i].rep, c.Hash)
			if err != nil {
				continue // different hash length (e.g. different hasher version); skip this group
			}
			if d <= maxDistance {
				groups[i].members = append(groups[i].members, c.PhotoID)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, group{rep: c.Hash, members: []int64{c.PhotoID}})
		}
	}

	var out [][]int64
	for _, g := range groups {
		if len(g.members) > 1 {
			out = append(out, g.members)
		}
	}
	return out
}
