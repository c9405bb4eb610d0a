// Package parser implements the ordered, order-sensitive extraction
// pipeline that turns a raw volume/chapter filename or release title into a
// Parsed record: an entry type, a cleaned title, and the volume/chapter
// ranges it names. Each pipeline step is a method that updates a shared
// *pipelineState in place, and Parse calls the steps in a fixed order
// because later steps assume earlier ones have already removed the text
// they would otherwise also match (a bracketed release tag containing a
// number must not be read as a volume number, for instance).
//
// The approach is the concrete answer to the "string-regex pipelines with
// order-sensitive mutation" note: rather than one monolithic regex, Parse
// threads one mutable state through a sequence of named step methods, each
// of which documents the slice of input it consumes. The steps are not held
// in a list, and they do not return new states.
package parser

import (
	"regexp"
	"strings"

	"github.com/vibemanga/vibemanga/config"
)

// Input is a single item to parse: a filename or title plus the byte size
// of the file it names (size is irrelevant to Type classification but
// drives the Undersized reclassification).
type Input struct {
	Source    string
	SizeBytes int64
}

// Parser holds the compiled regexes derived from a Config. Build one with
// New and reuse it across a batch; it is safe for concurrent use since it
// never mutates its own fields after construction.
type Parser struct {
	cfg config.Config

	noise       *regexp.Regexp
	protected   []protectedPattern
	yearLoose   *regexp.Regexp
	dualSplit   *regexp.Regexp
	typeMatches []typeRule
}

type protectedPattern struct {
	re          *regexp.Regexp
	placeholder string
}

type typeRule struct {
	re  *regexp.Regexp
	typ EntryType
}

// DefaultConfig returns the parser-relevant defaults, for callers that
// don't need the rest of config.Config.
func DefaultConfig() config.Config {
	return config.Default()
}

// New builds a Parser from cfg, compiling the noise-phrase and
// protected-token patterns once.
func New(cfg config.Config) *Parser {
	p := &Parser{cfg: cfg}

	var noiseParts []string
	for _, phrase := range cfg.NoisePhrases {
		// A noise phrase may be immediately followed by a release-version
		// tag ("Complete Edition v2"); that v\d+ names a scan revision,
		// not a volume, so it is swallowed along with the phrase rather
		// than surviving to the standard-volume step.
		noiseParts = append(noiseParts, regexp.QuoteMeta(phrase)+`(?:\s*v\d+)?`)
	}
	noiseParts = append(noiseParts, cfg.NoiseRegexPatterns...)
	if len(noiseParts) > 0 {
		p.noise = regexp.MustCompile(`(?i)\b(?:` + strings.Join(noiseParts, "|") + `)\b`)
	}

	for i, token := range cfg.ProtectedTokens {
		p.protected = append(p.protected, protectedPattern{
			re:          regexp.MustCompile(`(?i)` + regexp.QuoteMeta(token)),
			placeholder: placeholderFor(i),
		})
	}

	p.yearLoose = regexp.MustCompile(`\b(\d{4})\b`)
	p.dualSplit = regexp.MustCompile(`\s*[|•]\s*`)

	// First hit wins, in this order.
	p.typeMatches = []typeRule{
		{regexp.MustCompile(`(?i)light\s*novel|\bln\b|j-novel|web\s*novel`), TypeLightNovel},
		{regexp.MustCompile(`(?i)visual\s*novel|\bvn\b`), TypeVisualNovel},
		{regexp.MustCompile(`(?i)audiobook`), TypeAudiobook},
		{regexp.MustCompile(`(?i)archives\s*[a-z]-[a-z]`), TypeAnthology},
		{regexp.MustCompile(`(?i)weekly|alpha manga`), TypePeriodical},
	}

	return p
}

func placeholderFor(i int) string {
	return "\x00PROT" + string(rune('A'+i)) + "\x00"
}

// pipelineState is threaded through the ordered steps. residual is the
// text still being stripped down toward the cleaned title; everything
// else accumulates as the steps consume residual.
type pipelineState struct {
	original string
	residual string
	notes    []string
	volumes  RangeSet
	chapters RangeSet
	typ      EntryType
	restores []protectedRestore
}

type protectedRestore struct {
	placeholder string
	original    string
}

func (s *pipelineState) addNote(note string) {
	if note == "" {
		return
	}
	s.notes = append(s.notes, note)
}

// knownExtensions lists the archive/document/audio extensions stripped
// from the source before classification, so a unit suffix like ".cbr"
// never reaches the numeric-extraction steps.
var knownExtensions = []string{
	".cbz", ".cbr", ".cb7", ".cbt",
	".zip", ".rar", ".7z", ".tar",
	".pdf", ".epub", ".mobi", ".azw3",
	".mp3", ".m4b", ".m4a", ".flac",
}

func stripKnownExtension(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range knownExtensions {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// Parse runs the full pipeline over a single input.
func (p *Parser) Parse(in Input) Parsed {
	stripped := stripKnownExtension(in.Source)
	s := &pipelineState{
		original: stripped,
		residual: stripped,
		typ:      TypeManga,
	}

	p.stepTypeDiscrimination(s)
	p.stepTagExtraction(s)
	p.stepNoiseStripping(s)
	p.stepYearElision(s)
	p.stepTokenMasking(s)
	p.stepDualLanguageSplit(s)
	p.stepVolumeToChapterMapping(s)
	p.stepMessyVolume(s)
	p.stepStandardVolume(s)
	p.stepStandardChapter(s)
	p.stepNakedNumbers(s)
	p.stepRestoreProtected(s)

	cleaned := collapseSpaces(strings.Trim(s.residual, " -_.,:"))

	parsed := Parsed{
		Source:        in.Source,
		CleanedTitle:  cleaned,
		Type:          s.typ,
		VolumeRanges:  s.volumes,
		ChapterRanges: s.chapters,
		Notes:         s.notes,
		SizeBytes:     in.SizeBytes,
	}

	p.reclassifyUndersized(&parsed)

	return parsed
}

// ParseBatch parses every input independently; order of the result matches
// order of inputs.
func (p *Parser) ParseBatch(inputs []Input) []Parsed {
	out := make([]Parsed, len(inputs))
	for i, in := range inputs {
		out[i] = p.Parse(in)
	}
	return out
}

// reclassifyUndersized applies the Undersized override: a Manga-typed entry
// whose file size falls below the relevant threshold for the kind of range
// it carries is reclassified. Only entries step 1 left as Manga are
// considered, and a SizeBytes of 0 (unknown) never triggers it.
func (p *Parser) reclassifyUndersized(parsed *Parsed) {
	if parsed.Type != TypeManga {
		return
	}
	switch {
	case parsed.HasVolumes():
		if parsed.SizeBytes > 0 && parsed.SizeBytes < p.cfg.UndersizedVolumeBytes {
			parsed.Type = TypeUndersized
		}
	case parsed.HasChapters():
		if parsed.SizeBytes > 0 && parsed.SizeBytes < p.cfg.UndersizedChapterBytes {
			parsed.Type = TypeUndersized
		}
	}
}

// stepTypeDiscrimination (1) classifies the whole original string before
// any stripping happens, since the discriminating keywords ("Light Novel",
// "Audiobook", ...) often live inside bracketed tags that step 2 removes.
func (p *Parser) stepTypeDiscrimination(s *pipelineState) {
	for _, rule := range p.typeMatches {
		if rule.re.MatchString(s.original) {
			s.typ = rule.typ
			return
		}
	}
}

func collapseSpaces(in string) string {
	return strings.Join(strings.Fields(in), " ")
}
