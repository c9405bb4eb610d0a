package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// stepTagExtraction (2) strips every bracketed group — [...], (...), {...}
// — out of residual, moving each group's inner text to notes. Groups are
// removed innermost-first so nested brackets don't leave stray delimiters
// behind.
func (p *Parser) stepTagExtraction(s *pipelineState) {
	pattern := regexp.MustCompile(`\[[^\[\]]*\]|\([^()]*\)|\{[^{}]*\}`)
	for {
		loc := pattern.FindStringIndex(s.residual)
		if loc == nil {
			break
		}
		inner := strings.TrimFunc(s.residual[loc[0]+1:loc[1]-1], func(r rune) bool {
			return r == ' '
		})
		s.addNote(inner)
		s.residual = s.residual[:loc[0]] + " " + s.residual[loc[1]:]
	}
}

// stepNoiseStripping (3) removes release-noise vocabulary from residual.
func (p *Parser) stepNoiseStripping(s *pipelineState) {
	if p.noise == nil {
		return
	}
	s.residual = p.noise.ReplaceAllString(s.residual, " ")
}

// stepYearElision (4) removes standalone four-digit numbers that fall
// inside the configured year window, so a release year never gets read as
// a volume or chapter number downstream. A four-digit number joined to a
// neighboring digit by a hyphen (e.g. the "2021" in "1-2021") is left
// alone: it is part of a numeric range, not a lone year, and the range
// validity check downstream is what discards it.
func (p *Parser) stepYearElision(s *pipelineState) {
	matches := p.yearLoose.FindAllStringIndex(s.residual, -1)
	if len(matches) == 0 {
		return
	}
	var b strings.Builder
	last := 0
	for _, loc := range matches {
		start, end := loc[0], loc[1]
		if rangeAdjacent(s.residual, start, end) {
			continue
		}
		n, err := strconv.Atoi(s.residual[start:end])
		if err != nil || n < p.cfg.YearWindowLow || n > p.cfg.YearWindowHigh {
			continue
		}
		b.WriteString(s.residual[last:start])
		b.WriteString(" ")
		last = end
	}
	b.WriteString(s.residual[last:])
	s.residual = b.String()
}

// rangeAdjacent reports whether the digit run at [start,end) is joined to
// an adjacent digit by a hyphen, meaning it is one endpoint of a numeric
// range rather than a standalone year.
func rangeAdjacent(s string, start, end int) bool {
	if start > 0 && s[start-1] == '-' && start > 1 && isDigitByte(s[start-2]) {
		return true
	}
	if end < len(s) && s[end] == '-' && end+1 < len(s) && isDigitByte(s[end+1]) {
		return true
	}
	return false
}

func isDigitByte(b byte) bool {
	return b >= '0' && b <= '9'
}

// stepTokenMasking (5) replaces every configured protected substring with
// an opaque placeholder so its embedded numerals are invisible to the
// numeric-extraction steps that follow. The original text is restored into
// residual by stepRestoreProtected once those steps are done, and is also
// recorded in notes so the masking is auditable.
func (p *Parser) stepTokenMasking(s *pipelineState) {
	for _, pattern := range p.protected {
		loc := pattern.re.FindStringIndex(s.residual)
		if loc == nil {
			continue
		}
		original := s.residual[loc[0]:loc[1]]
		s.restores = append(s.restores, protectedRestore{placeholder: pattern.placeholder, original: original})
		s.residual = s.residual[:loc[0]] + pattern.placeholder + s.residual[loc[1]:]
	}
}

// stepRestoreProtected reverses stepTokenMasking once numeric extraction
// has finished, putting the original protected text back into the cleaned
// title and logging it to notes.
func (p *Parser) stepRestoreProtected(s *pipelineState) {
	for _, r := range s.restores {
		s.residual = strings.ReplaceAll(s.residual, r.placeholder, r.original)
		s.addNote("protected: " + r.original)
	}
}

// stepDualLanguageSplit (6) handles a residual containing two title
// candidates separated by a pipe or bullet — e.g. a romanized title
// followed by its native-script counterpart. The longer segment (by rune
// count, ties broken by ASCII-letter count) is kept as the title; the
// other is recorded as a note.
func (p *Parser) stepDualLanguageSplit(s *pipelineState) {
	parts := p.dualSplit.Split(s.residual, 2)
	if len(parts) != 2 {
		return
	}
	a, b := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if a == "" || b == "" {
		return
	}
	keep, drop := a, b
	if runeCount(b) > runeCount(a) || (runeCount(b) == runeCount(a) && asciiLetterCount(b) > asciiLetterCount(a)) {
		keep, drop = b, a
	}
	s.residual = keep
	s.addNote(drop)
}

func runeCount(s string) int {
	return len([]rune(s))
}

func asciiLetterCount(s string) int {
	n := 0
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			n++
		}
	}
	return n
}

var reVolToChapMapping = regexp.MustCompile(`(?i)chapters?\s*(\d+(?:\.\d+)?)(?:\s*-\s*(\d+(?:\.\d+)?))?\s*as\s*(?:vol(?:ume)?\.?|v)\s*(\d+(?:\.\d+)?)`)

// stepVolumeToChapterMapping (7) recognizes the explicit "chapters N-M as
// volume K" idiom used by omnibus releases, harvesting a chapter range and
// a singleton volume from one match.
func (p *Parser) stepVolumeToChapterMapping(s *pipelineState) {
	loc := reVolToChapMapping.FindStringSubmatchIndex(s.residual)
	if loc == nil {
		return
	}
	m := reVolToChapMapping.FindStringSubmatch(s.residual)
	low := parseFloat(m[1])
	high := low
	if m[2] != "" {
		high = parseFloat(m[2])
	}
	vol := parseFloat(m[3])

	p.addChapterRange(s, Range{Low: low, High: high})
	p.addVolumeRange(s, Range{Low: vol, High: vol})

	s.residual = s.residual[:loc[0]] + " " + s.residual[loc[1]:]
}

var reMessyVolume = regexp.MustCompile(`(?i)v(\d+)(?:[vV_-](\d+))+`)
var reDigitGroup = regexp.MustCompile(`\d+`)

// stepMessyVolume (8) recognizes a run-together volume token like
// "v01v02v05" or "v01-05v10" and takes the widest range spanning every
// embedded digit group, rather than trying to parse it as a normal
// hyphenated range.
func (p *Parser) stepMessyVolume(s *pipelineState) {
	loc := reMessyVolume.FindStringIndex(s.residual)
	if loc == nil {
		return
	}
	match := s.residual[loc[0]:loc[1]]
	digits := reDigitGroup.FindAllString(match, -1)
	if len(digits) == 0 {
		return
	}
	low, high := parseFloat(digits[0]), parseFloat(digits[0])
	for _, d := range digits[1:] {
		v := parseFloat(d)
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	p.addVolumeRange(s, Range{Low: low, High: high})
	s.residual = s.residual[:loc[0]] + " " + s.residual[loc[1]:]
}

var reStandardVolume = regexp.MustCompile(`(?i)\b(?:v|vol(?:ume)?\.?|parts?)\s*(\d+)(?:\s*-\s*(\d+))?\b`)

// stepStandardVolume (9) recognizes "v01", "vol. 3", "volume 4-6", "part 2".
func (p *Parser) stepStandardVolume(s *pipelineState) {
	for {
		loc := reStandardVolume.FindStringSubmatchIndex(s.residual)
		if loc == nil {
			break
		}
		m := reStandardVolume.FindStringSubmatch(s.residual)
		low := parseFloat(m[1])
		high := low
		if m[2] != "" {
			high = parseFloat(m[2])
		}
		p.addVolumeRange(s, Range{Low: low, High: high})
		s.residual = s.residual[:loc[0]] + " " + s.residual[loc[1]:]
	}
}

var reStandardChapter = regexp.MustCompile(`(?i)\b(?:c|ch(?:apter)?\.?|#)\s*(\d+(?:\.\d+)?)(?:\s*-\s*(\d+(?:\.\d+)?))?\b`)

// stepStandardChapter (10) recognizes "c10", "ch. 5", "chapter 12-14",
// "#3", including an optional decimal tail for half-chapters.
func (p *Parser) stepStandardChapter(s *pipelineState) {
	for {
		loc := reStandardChapter.FindStringSubmatchIndex(s.residual)
		if loc == nil {
			break
		}
		m := reStandardChapter.FindStringSubmatch(s.residual)
		low := parseFloat(m[1])
		high := low
		if m[2] != "" {
			high = parseFloat(m[2])
		}
		p.addChapterRange(s, Range{Low: low, High: high})
		s.residual = s.residual[:loc[0]] + " " + s.residual[loc[1]:]
	}
}

var reNakedNumberTrailing = regexp.MustCompile(`(?:^|[\s,+]+)(\d+(?:\.\d+)?)(?:\s*-\s*(\d+(?:\.\d+)?))?$`)

// stepNakedNumbers (11) is the fallback for a trailing bare number or
// comma/plus-separated list of numbers/ranges with no unit prefix at all,
// e.g. "Series 12" or "Series 3, 4, 5" (three separate volume ranges,
// peeled one at a time from the right). Bare numbers are assumed to be
// volumes, matching the most common naming convention in the corpus.
// Peeling stops as soon as either no trailing numeric token is left, or
// the next token leftward is non-numeric, or taking one more token would
// erase the residual entirely — a title with no unit-prefixed range left
// after steps 7-10 and no bare trailing numbers either stays entirely as
// title text.
func (p *Parser) stepNakedNumbers(s *pipelineState) {
	if s.HasAnyRange() {
		return
	}
	for {
		trimmed := strings.TrimRight(s.residual, " \t")
		loc := reNakedNumberTrailing.FindStringSubmatchIndex(trimmed)
		if loc == nil {
			return
		}
		rest := trimmed[:loc[0]]
		if rest == "" {
			return
		}
		low := parseFloat(trimmed[loc[2]:loc[3]])
		high := low
		if loc[4] != -1 {
			high = parseFloat(trimmed[loc[4]:loc[5]])
		}
		p.addVolumeRange(s, Range{Low: low, High: high})
		s.residual = rest
	}
}

func (s *pipelineState) HasAnyRange() bool {
	return len(s.volumes) > 0 || len(s.chapters) > 0
}

func (p *Parser) addVolumeRange(s *pipelineState, r Range) {
	if !r.valid(float64(p.cfg.MaxRangeSpan), float64(p.cfg.YearWindowLow), float64(p.cfg.YearWindowHigh)) {
		return
	}
	s.volumes = s.volumes.add(r)
}

func (p *Parser) addChapterRange(s *pipelineState, r Range) {
	if !r.valid(float64(p.cfg.MaxRangeSpan), float64(p.cfg.YearWindowLow), float64(p.cfg.YearWindowHigh)) {
		return
	}
	s.chapters = s.chapters.add(r)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
