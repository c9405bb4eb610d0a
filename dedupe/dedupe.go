// Package dedupe implements the three duplicate detectors of spec §4.9:
// ID collisions, content collisions, and fuzzy name collisions. All three
// run concurrently; the fuzzy detector additionally spreads its pairs over
// a fixed worker pool, the same shape the scanner uses for its own series
// fan-out.
package dedupe

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/vibemanga/vibemanga/config"
	"github.com/vibemanga/vibemanga/diagnostics"
	"github.com/vibemanga/vibemanga/logger"
	"github.com/vibemanga/vibemanga/mangadata"
	"github.com/vibemanga/vibemanga/matcher"
	"github.com/vibemanga/vibemanga/normalize"
	"github.com/vibemanga/vibemanga/progress"
)

// IDGroup is a set of Series sharing the same external (MAL) ID.
type IDGroup struct {
	MALID      int
	Series     []*mangadata.Series
	Confidence float64
}

// ContentGroup is a set of Volumes sharing the same (size, page count) —
// or just size, when page count is unknown for any member.
type ContentGroup struct {
	Size       int64
	PageCount  *int
	Volumes    []*mangadata.Volume
	Confidence float64
	SizeOnly   bool
}

// FuzzyPair is one Series pair whose identity similarity cleared the
// fuzzy-name-collision threshold.
type FuzzyPair struct {
	A, B       *mangadata.Series
	Confidence float64
}

// Report aggregates every detector's output from one Detect call.
type Report struct {
	IDCollisions   []IDGroup
	ContentGroups  []ContentGroup
	FuzzyNamePairs []FuzzyPair
}

// fuzzyNameThreshold is spec §4.9's fixed reporting threshold for the
// fuzzy name-collision detector — distinct from the matcher's own
// (configurable) fuzzy-match threshold, since this detector flags
// candidate duplicates for review rather than binding an ID.
const fuzzyNameThreshold = 0.95

// tokenRatioLow/tokenRatioHigh bound the cheap pre-filter that lets the
// all-pairs scan skip a refined score for obviously mismatched lengths
// before paying for the LCS pass.
const (
	tokenRatioLow  = 0.5
	tokenRatioHigh = 2.0
)

// Options configures a Detect call.
type Options struct {
	Concurrency int
	Progress    progress.Sink
	Logger      *logger.Logger
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

// Detect runs all three detectors over lib concurrently. ID and content
// collisions are closed-form grouping passes, each on its own goroutine
// and unaffected by ctx; the fuzzy name scan is the only one that uses the
// worker pool and ctx cancellation, since it is O(n²) in the series count.
// A cancelled scan returns the partial report alongside a
// *diagnostics.CancelledError.
func Detect(ctx context.Context, lib *mangadata.Library, cfg config.Config, opts Options) (Report, error) {
	log := opts.Logger
	if log == nil {
		log = logger.New()
	}
	sink := progress.SinkOrNop(opts.Progress)

	series := lib.AllSeries()

	var report Report
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		report.IDCollisions = detectIDCollisions(series)
	}()
	go func() {
		defer wg.Done()
		report.ContentGroups = detectContentCollisions(series)
	}()

	scorer := matcher.NewScorer(cfg)
	defer scorer.Close()

	pairs, err := detectFuzzyNameCollisions(ctx, series, scorer, opts.concurrency(), sink)
	wg.Wait()
	report.FuzzyNamePairs = pairs
	if err != nil {
		log.Warn("dedupe: fuzzy name scan stopped early: %s", err)
		if ctx.Err() != nil {
			return report, &diagnostics.CancelledError{}
		}
		return report, err
	}
	return report, nil
}

// detectIDCollisions groups Series by non-nil MAL ID; groups of size >= 2
// are reported at confidence 1.0, per spec §4.9.
func detectIDCollisions(series []*mangadata.Series) []IDGroup {
	byID := make(map[int][]*mangadata.Series)
	var order []int
	for _, s := range series {
		id := s.Metadata.MALID
		if id == nil {
			continue
		}
		if _, seen := byID[*id]; !seen {
			order = append(order, *id)
		}
		byID[*id] = append(byID[*id], s)
	}
	sort.Ints(order)

	var groups []IDGroup
	for _, id := range order {
		members := byID[id]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, IDGroup{MALID: id, Series: members, Confidence: 1.0})
	}
	return groups
}

// detectContentCollisions groups every Volume in the library: a volume
// with a known page count is keyed by (size, page_count), one without by
// size alone. The two kinds of key never share a group, so a volume with a
// known page count is not grouped with a same-size volume whose page count
// is unknown.
func detectContentCollisions(series []*mangadata.Series) []ContentGroup {
	type key struct {
		size      int64
		pageCount int
		hasPages  bool
	}
	byKey := make(map[key][]*mangadata.Volume)
	var order []key

	for _, s := range series {
		for _, v := range s.AllVolumes() {
			k := key{size: v.Size}
			if v.PageCount != nil {
				k.pageCount = *v.PageCount
				k.hasPages = true
			}
			if _, seen := byKey[k]; !seen {
				order = append(order, k)
			}
			byKey[k] = append(byKey[k], v)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].size != order[j].size {
			return order[i].size < order[j].size
		}
		return order[i].pageCount < order[j].pageCount
	})

	var groups []ContentGroup
	for _, k := range order {
		members := byKey[k]
		if len(members) < 2 {
			continue
		}
		group := ContentGroup{Size: k.size, Volumes: members}
		if k.hasPages {
			pc := k.pageCount
			group.PageCount = &pc
			group.Confidence = 0.95
		} else {
			group.SizeOnly = true
			group.Confidence = 0.75
		}
		groups = append(groups, group)
	}
	return groups
}

// detectFuzzyNameCollisions runs an all-pairs similarity scan across every
// Series' identities, sharing work across a fixed worker pool. The
// token-length-ratio pre-filter rejects a pair before the expensive
// refined score whenever the shorter identity is less than half or more
// than double the length of the longer one.
func detectFuzzyNameCollisions(ctx context.Context, series []*mangadata.Series, scorer *matcher.Scorer, concurrency int, sink progress.Sink) ([]FuzzyPair, error) {
	type candidate struct {
		series   *mangadata.Series
		identity string
	}
	var candidates []candidate
	for _, s := range series {
		for _, id := range s.Identities() {
			norm := normalize.Normalize(id)
			if norm != "" {
				candidates = append(candidates, candidate{series: s, identity: norm})
			}
		}
	}

	type pairJob struct{ i, j int }
	var jobs []pairJob
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[i].series == candidates[j].series {
				continue
			}
			if !withinTokenRatio(candidates[i].identity, candidates[j].identity) {
				continue
			}
			jobs = append(jobs, pairJob{i, j})
		}
	}

	results := make([]*FuzzyPair, len(jobs))
	total := uint64(len(jobs))
	var done atomic.Uint64
	safe := safeSink(sink)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for idx, job := range jobs {
		idx, job := idx, job
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			a, b := candidates[job.i], candidates[job.j]
			score := scorer.Score(a.identity, b.identity)
			if score >= fuzzyNameThreshold {
				results[idx] = &FuzzyPair{A: a.series, B: b.series, Confidence: score}
			}
			n := done.Add(1)
			safe(progress.Event{Phase: progress.PhaseDeduping, Done: n, Total: progress.Total(total)})
			return nil
		})
	}

	err := g.Wait()

	var pairs []FuzzyPair
	for _, r := range results {
		if r != nil {
			pairs = append(pairs, *r)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A.Path != pairs[j].A.Path {
			return pairs[i].A.Path < pairs[j].A.Path
		}
		return pairs[i].B.Path < pairs[j].B.Path
	})
	return pairs, err
}

// safeSink serializes concurrent calls into sink, since the worker pool
// fans out one goroutine per pair and a caller-supplied Sink is not
// guaranteed to be safe for concurrent use.
func safeSink(sink progress.Sink) progress.Sink {
	var mu sync.Mutex
	return func(e progress.Event) {
		mu.Lock()
		defer mu.Unlock()
		sink(e)
	}
}

// withinTokenRatio is the cheap length-based pre-filter: a and b must be
// within [0.5, 2.0] of each other's rune length before the expensive
// refined score is worth computing at all.
func withinTokenRatio(a, b string) bool {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return false
	}
	short, long := la, lb
	if short > long {
		short, long = long, short
	}
	ratio := float64(short) / float64(long)
	return ratio >= tokenRatioLow && ratio <= tokenRatioHigh
}
