// Package matcher implements the deterministic ID → synonym → fuzzy
// cascade that binds a Parsed record to a library Series. Every step is
// pure given the Index's state; the only mutable piece is an optional
// memoization cache for the expensive fuzzy-scoring step.
package matcher

import (
	"sort"
	"strings"

	"github.com/philippgille/gokv"
	"github.com/philippgille/gokv/syncmap"

	"github.com/vibemanga/vibemanga/analysis"
	"github.com/vibemanga/vibemanga/config"
	"github.com/vibemanga/vibemanga/index"
	"github.com/vibemanga/vibemanga/mangadata"
	"github.com/vibemanga/vibemanga/normalize"
	"github.com/vibemanga/vibemanga/parser"
)

// Reason names which cascade step produced a Result.
type Reason string

const (
	ReasonID      Reason = "id"
	ReasonSynonym Reason = "synonym"
	ReasonFuzzy   Reason = "fuzzy"
	ReasonNone    Reason = "none"
)

// Hint carries external context about a Parsed record — typically an ID
// extracted from a surrounding directory or release description — that
// lets the cascade skip straight to an exact match.
type Hint struct {
	ID *int
}

// Result is the outcome of a single Match call.
type Result struct {
	Series     *mangadata.Series
	Confidence float64
	Reason     Reason
}

// NoMatch is the zero Result: no Series, confidence 0, reason none.
var NoMatch = Result{Reason: ReasonNone}

// Scorer computes the memoized Jaccard/LCS fuzzy similarity between two
// normalized strings. It is the machinery both the fuzzy cascade step
// here and the deduper's fuzzy-name-collision detector share, so the
// Jaccard/LCS pair is implemented exactly once.
type Scorer struct {
	refineThreshold float64
	cache           gokv.Store
}

// NewScorer builds a Scorer with a fresh in-memory score cache. The cache
// holds pairwise fuzzy scores only; it carries no pointer identity, so a
// gokv store (rather than a plain map, as the Index itself requires) is a
// safe pure look-aside layer.
func NewScorer(cfg config.Config) *Scorer {
	return &Scorer{
		refineThreshold: cfg.FuzzyRefineThreshold,
		cache:           syncmap.NewStore(syncmap.DefaultOptions),
	}
}

// Close releases the Scorer's score cache.
func (s *Scorer) Close() error {
	return s.cache.Close()
}

// Score computes the token-set Jaccard score between a and b, then
// refines it with a character-level LCS ratio: word-level Jaccard
// under-counts titles that differ only by a decorative connector token
// (e.g. "Spy x Family" vs "Spy Family"), so the LCS ratio — which sees
// through a single dropped token — replaces the raw score whenever it
// clears refineThreshold. Results are memoized since the same
// (query, identity) pair recurs across a batch match or an all-pairs scan.
func (s *Scorer) Score(a, b string) float64 {
	key := cacheKey(a, b)
	var cached float64
	if found, err := s.cache.Get(key, &cached); err == nil && found {
		return cached
	}

	score := jaccard(a, b)
	if refined := lcsRatio(a, b); refined >= s.refineThreshold {
		score = refined
	}

	_ = s.cache.Set(key, score)
	return score
}

// Matcher runs the cascade against one Index.
type Matcher struct {
	idx            *index.Index
	fuzzyThreshold float64
	scorer         *Scorer
}

// New builds a Matcher backed by idx, using cfg's fuzzy thresholds and a
// fresh Scorer.
func New(idx *index.Index, cfg config.Config) *Matcher {
	return &Matcher{
		idx:            idx,
		fuzzyThreshold: cfg.FuzzyThreshold,
		scorer:         NewScorer(cfg),
	}
}

// Close releases the Matcher's score cache.
func (m *Matcher) Close() error {
	return m.scorer.Close()
}

// Match runs the full cascade for one Parsed record.
func (m *Matcher) Match(p parser.Parsed, hint Hint) Result {
	if hint.ID != nil {
		if s, ok := m.idx.GetByID(*hint.ID); ok {
			return Result{Series: s, Confidence: 1.0, Reason: ReasonID}
		}
	}

	if r, ok := m.matchSynonym(p); ok {
		return r
	}

	return m.matchFuzzy(p)
}

// MatchBatch runs Match over every entry independently and returns results
// in the same order.
func (m *Matcher) MatchBatch(entries []parser.Parsed, hints []Hint) []Result {
	out := make([]Result, len(entries))
	for i, p := range entries {
		var h Hint
		if i < len(hints) {
			h = hints[i]
		}
		out[i] = m.Match(p, h)
	}
	return out
}

func (m *Matcher) matchSynonym(p parser.Parsed) (Result, bool) {
	candidates := m.idx.Search(p.CleanedTitle)
	switch len(candidates) {
	case 0:
		return Result{}, false
	case 1:
		return Result{Series: candidates[0], Confidence: 0.95, Reason: ReasonSynonym}, true
	default:
		winner := breakSynonymTie(candidates, p.CleanedTitle)
		return Result{Series: winner, Confidence: 0.85, Reason: ReasonSynonym}, true
	}
}

// breakSynonymTie implements spec's ordered tie-break: prefer the
// candidate whose folder name itself normalizes to the query, then the
// one with the longest normalized identity, then lexicographically first
// by path (a stable, deterministic final tiebreaker).
func breakSynonymTie(candidates []*mangadata.Series, query string) *mangadata.Series {
	key := normalize.Normalize(query)

	var folderMatches []*mangadata.Series
	for _, c := range candidates {
		if normalize.Normalize(c.FolderName) == key {
			folderMatches = append(folderMatches, c)
		}
	}
	pool := candidates
	if len(folderMatches) > 0 {
		pool = folderMatches
	}
	if len(pool) == 1 {
		return pool[0]
	}

	sort.SliceStable(pool, func(i, j int) bool {
		li, lj := longestIdentityLen(pool[i]), longestIdentityLen(pool[j])
		if li != lj {
			return li > lj
		}
		return pool[i].Path < pool[j].Path
	})
	return pool[0]
}

func longestIdentityLen(s *mangadata.Series) int {
	longest := 0
	for _, id := range s.Identities() {
		n := len([]rune(normalize.Normalize(id)))
		if n > longest {
			longest = n
		}
	}
	return longest
}

func (m *Matcher) matchFuzzy(p parser.Parsed) Result {
	query := normalize.Normalize(p.CleanedTitle)
	if query == "" {
		return NoMatch
	}

	var best *mangadata.Series
	bestScore := -1.0

	for _, series := range m.idx.All() {
		for _, identity := range series.Identities() {
			candidate := normalize.Normalize(identity)
			if candidate == "" {
				continue
			}
			score := m.scorer.Score(query, candidate)
			if score > bestScore || (score == bestScore && best != nil && series.Path < best.Path) {
				bestScore = score
				best = series
			}
		}
	}

	if best == nil || bestScore < m.fuzzyThreshold {
		return NoMatch
	}
	return Result{Series: best, Confidence: bestScore, Reason: ReasonFuzzy}
}

func cacheKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x1f" + b
}

func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	tokens := strings.Fields(s)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// lcsRatio is the classic similarity ratio: twice the longest common
// subsequence length over the sum of the two strings' lengths.
func lcsRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	lcsLen := longestCommonSubsequence(ra, rb)
	return 2 * float64(lcsLen) / float64(len(ra)+len(rb))
}

func longestCommonSubsequence(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Consolidate groups results that matched the same Series (by Path) and
// merges the volume/chapter ranges of their originating Parsed records via
// analysis.MergeRanges, per spec's consolidation post-step.
func Consolidate(results []Result, parsed []parser.Parsed) []ConsolidatedMatch {
	bySeries := make(map[string]*ConsolidatedMatch)
	var order []string

	for i, r := range results {
		if r.Series == nil {
			continue
		}
		path := r.Series.Path
		cm, ok := bySeries[path]
		if !ok {
			cm = &ConsolidatedMatch{Series: r.Series}
			bySeries[path] = cm
			order = append(order, path)
		}
		if i < len(parsed) {
			cm.VolumeRanges = append(cm.VolumeRanges, parsed[i].VolumeRanges...)
			cm.ChapterRanges = append(cm.ChapterRanges, parsed[i].ChapterRanges...)
		}
		if r.Confidence > cm.BestConfidence {
			cm.BestConfidence = r.Confidence
			cm.BestReason = r.Reason
		}
	}

	out := make([]ConsolidatedMatch, 0, len(order))
	for _, path := range order {
		cm := bySeries[path]
		cm.VolumeRanges = analysis.MergeRanges(cm.VolumeRanges)
		cm.ChapterRanges = analysis.MergeRanges(cm.ChapterRanges)
		out = append(out, *cm)
	}
	return out
}

// ConsolidatedMatch is the result of merging every Parsed record that
// resolved to the same Series.
type ConsolidatedMatch struct {
	Series         *mangadata.Series
	VolumeRanges   parser.RangeSet
	ChapterRanges  parser.RangeSet
	BestConfidence float64
	BestReason     Reason
}
