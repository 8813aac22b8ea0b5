package ranges

import (
	"fmt"
	"sort"

	"github.com/dgallion1/docsplit/internal/docerr"
)

// ValidateNoOverlapSorted gives the same verdict as ValidateNoOverlap in
// O(n log n) by sorting on start page and comparing neighbours. The reported
// pair may differ from the pairwise check when several pairs overlap.
func ValidateNoOverlapSorted(set Set) error {
	sorted := sortedByStart(set)
	for i := 1; i < len(sorted); i++ {
		if sorted[i].StartPage <= sorted[i-1].EndPage {
			return overlapError(sorted[i-1], sorted[i])
		}
	}
	return nil
}

// ValidateCoverage checks that the set covers pages 1..totalPages exactly,
// with no gaps. It assumes the set already passed Validate.
func ValidateCoverage(set Set, totalPages int) error {
	next := 1
	for _, d := range sortedByStart(set) {
		if d.StartPage > next {
			return gapError(next, d.StartPage-1, totalPages)
		}
		if d.EndPage+1 > next {
			next = d.EndPage + 1
		}
	}
	if next <= totalPages {
		return gapError(next, totalPages, totalPages)
	}
	return nil
}

func gapError(from, to, total int) error {
	return &docerr.Error{
		Kind:  docerr.KindCoverageGap,
		Op:    "validate",
		Msg:   fmt.Sprintf("pages %d-%d are not covered by any declaration", from, to),
		Limit: total,
	}
}

func sortedByStart(set Set) Set {
	out := make(Set, len(set))
	copy(out, set)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartPage < out[j].StartPage })
	return out
}
