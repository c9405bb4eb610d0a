package parser

import "sort"

// EntryType classifies a parsed filename or torrent title.
type EntryType string

const (
	TypeManga       EntryType = "manga"
	TypeLightNovel  EntryType = "light_novel"
	TypeVisualNovel EntryType = "visual_novel"
	TypeAudiobook   EntryType = "audiobook"
	TypeAnthology   EntryType = "anthology"
	TypePeriodical  EntryType = "periodical"
	TypeUndersized  EntryType = "undersized"
)

// Range is an inclusive [Low, High] span with an optional decimal tail,
// used for both volume and chapter ranges. A singleton has Low == High.
type Range struct {
	Low  float64
	High float64
}

func (r Range) valid(maxSpan float64, yearLow, yearHigh float64) bool {
	if r.Low < 0 || r.Low > r.High {
		return false
	}
	if r.High-r.Low > maxSpan {
		return false
	}
	if inWindow(r.Low, yearLow, yearHigh) || inWindow(r.High, yearLow, yearHigh) {
		return false
	}
	return true
}

func inWindow(v, low, high float64) bool {
	return v >= low && v <= high
}

// RangeSet is an ordered, deduplicated collection of Range values.
type RangeSet []Range

func (rs RangeSet) has(r Range) bool {
	for _, existing := range rs {
		if existing == r {
			return true
		}
	}
	return false
}

func (rs RangeSet) add(r Range) RangeSet {
	if rs.has(r) {
		return rs
	}
	out := append(rs, r)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Low != out[j].Low {
			return out[i].Low < out[j].Low
		}
		return out[i].High < out[j].High
	})
	return out
}

// Parsed is the structured output of Parser.Parse.
type Parsed struct {
	Source        string
	CleanedTitle  string
	Type          EntryType
	VolumeRanges  RangeSet
	ChapterRanges RangeSet
	Notes         []string
	SizeBytes     int64
}

// HasVolumes reports whether at least one volume range was detected.
func (p Parsed) HasVolumes() bool {
	return len(p.VolumeRanges) > 0
}

// HasChapters reports whether at least one chapter range was detected.
func (p Parsed) HasChapters() bool {
	return len(p.ChapterRanges) > 0
}
