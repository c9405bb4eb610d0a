// Package analysis provides range-set utilities shared by the renamer's
// filename-segment construction and the matcher's consolidation step:
// formatting a RangeSet as a prefixed, zero-padded human string, finding
// the gaps in a numbered sequence (against a caller-supplied total when
// one is known), merging adjacent/overlapping ranges, and classifying a
// whole parsed record's volume/chapter shape.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/vibemanga/vibemanga/parser"
)

// FormatRanges renders ranges the way a human would write a volume or
// chapter listing: a singleton as "prefix{N:0pad}" (e.g. "v01"), a true
// range as "prefix{LOW}-{HIGH}" (e.g. "v01-05"), lists comma-separated.
// Ranges are merged first, so callers never need to call MergeRanges
// themselves. pad is the minimum digit width of a whole-number low/high;
// a decimal value is never zero-padded.
func FormatRanges(ranges parser.RangeSet, prefix string, pad int) string {
	merged := MergeRanges(ranges)
	parts := make([]string, 0, len(merged))
	for _, r := range merged {
		parts = append(parts, prefix+formatRange(r, pad))
	}
	return strings.Join(parts, ", ")
}

func formatRange(r parser.Range, pad int) string {
	if r.Low == r.High {
		return formatNumber(r.Low, pad)
	}
	return formatNumber(r.Low, pad) + "-" + formatNumber(r.High, pad)
}

func formatNumber(n float64, pad int) string {
	if n == math.Trunc(n) {
		return fmt.Sprintf("%0*d", pad, int64(n))
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// MergeRanges sorts and coalesces overlapping or contiguous integer ranges
// (a high of N followed by a low of N+1 merges into one range). Ranges
// carrying a decimal tail are never merged into a neighboring integer
// range, since a half-chapter is a distinct unit from the whole chapters
// around it.
func MergeRanges(ranges parser.RangeSet) parser.RangeSet {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make(parser.RangeSet, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Low != sorted[j].Low {
			return sorted[i].Low < sorted[j].Low
		}
		return sorted[i].High < sorted[j].High
	})

	merged := parser.RangeSet{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if isWholeNumber(last.Low) && isWholeNumber(last.High) && isWholeNumber(r.Low) && isWholeNumber(r.High) && r.Low <= last.High+1 {
			if r.High > last.High {
				last.High = r.High
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

func isWholeNumber(n float64) bool {
	return n == math.Trunc(n)
}

// FindGaps returns the missing single values or sub-ranges in
// [1, expectedTotal], in ascending order. expectedTotal nil means the
// total count isn't known; in that case only the internal gaps between
// known ranges are reported — never a trailing gap up to some assumed
// ceiling. Decimal-tailed ranges are ignored, since gap analysis only
// makes sense for whole-numbered sequences.
func FindGaps(ranges parser.RangeSet, expectedTotal *int) parser.RangeSet {
	var whole parser.RangeSet
	for _, r := range ranges {
		if isWholeNumber(r.Low) && isWholeNumber(r.High) {
			whole = append(whole, r)
		}
	}
	merged := MergeRanges(whole)

	var gaps parser.RangeSet
	for i := 1; i < len(merged); i++ {
		prevHigh := merged[i-1].High
		nextLow := merged[i].Low
		if !isWholeNumber(prevHigh) || !isWholeNumber(nextLow) {
			continue
		}
		if nextLow > prevHigh+1 {
			gaps = append(gaps, parser.Range{Low: prevHigh + 1, High: nextLow - 1})
		}
	}

	if expectedTotal == nil {
		return gaps
	}
	total := float64(*expectedTotal)

	if len(merged) == 0 {
		if total >= 1 {
			gaps = append(gaps, parser.Range{Low: 1, High: total})
		}
		return gaps
	}

	first := merged[0]
	if isWholeNumber(first.Low) && first.Low > 1 {
		gaps = append(parser.RangeSet{{Low: 1, High: first.Low - 1}}, gaps...)
	}

	last := merged[len(merged)-1]
	if isWholeNumber(last.High) && last.High < total {
		gaps = append(gaps, parser.Range{Low: last.High + 1, High: total})
	}

	return gaps
}

// UnitClassification describes the shape of the numbered ranges a parsed
// record carries.
type UnitClassification string

const (
	ClassVolumesOnly  UnitClassification = "volumes_only"
	ClassChaptersOnly UnitClassification = "chapters_only"
	ClassMixed        UnitClassification = "mixed"
	ClassEmpty        UnitClassification = "empty"
)

// ClassifyUnit reports which kind(s) of range a Parsed record carries.
func ClassifyUnit(p parser.Parsed) UnitClassification {
	switch {
	case p.HasVolumes() && p.HasChapters():
		return ClassMixed
	case p.HasVolumes():
		return ClassVolumesOnly
	case p.HasChapters():
		return ClassChaptersOnly
	default:
		return ClassEmpty
	}
}
