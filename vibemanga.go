// Package vibemanga is the orchestration facade wiring together the
// library core's ten components: scan a root into a Library, build an
// Index over it, match parsed releases against it, plan and apply
// renames, and detect duplicates. It is shaped like the teacher's
// Client/ClientOptions pair — a thin options struct plus synchronous
// methods that delegate to the package beneath them — and is the
// contract boundary a CLI or UI layer builds on.
package vibemanga

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/vibemanga/vibemanga/cache"
	"github.com/vibemanga/vibemanga/config"
	"github.com/vibemanga/vibemanga/dedupe"
	"github.com/vibemanga/vibemanga/diagnostics"
	"github.com/vibemanga/vibemanga/index"
	"github.com/vibemanga/vibemanga/logger"
	"github.com/vibemanga/vibemanga/mangadata"
	"github.com/vibemanga/vibemanga/matcher"
	"github.com/vibemanga/vibemanga/parser"
	"github.com/vibemanga/vibemanga/progress"
	"github.com/vibemanga/vibemanga/renamer"
	"github.com/vibemanga/vibemanga/scanner"
)

// ManagerOptions configures a Manager. See DefaultManagerOptions for
// defaults.
type ManagerOptions struct {
	// Config is the single configuration struct threaded through every
	// component.
	Config config.Config

	// FS is the file system abstraction every component uses.
	FS afero.Fs

	// CacheDir is the directory the cache.Store reads and writes
	// snapshots under. Empty disables caching: every Scan is a full
	// rescan and Library results are never persisted.
	CacheDir string

	// Logger receives debug/warn output; nil constructs a discarding one.
	Logger *logger.Logger

	// Progress receives scan/match/dedupe events; nil is treated as
	// progress.Nop.
	Progress progress.Sink
}

// DefaultManagerOptions constructs default ManagerOptions from
// config.Default() and an OS filesystem. CacheDir is left empty, so
// caching stays disabled until the caller sets one.
func DefaultManagerOptions() ManagerOptions {
	cfg := config.Default()
	return ManagerOptions{
		Config:   cfg,
		FS:       afero.NewOsFs(),
		Logger:   logger.New(),
		Progress: progress.Nop,
	}
}

// Manager is the wrapper around the library core with the combined
// functionality of every component.
//
// It's the core of vibemanga.
type Manager struct {
	options ManagerOptions
	logger  *logger.Logger
	cache   *cache.Store
	library *mangadata.Library
	idx     *index.Index
}

// NewManager creates a new Manager from options. Use DefaultManagerOptions
// for defaults.
func NewManager(options ManagerOptions) *Manager {
	if options.FS == nil {
		options.FS = afero.NewOsFs()
	}
	log := options.Logger
	if log == nil {
		log = logger.New()
	}
	options.Logger = log

	var store *cache.Store
	if options.CacheDir != "" {
		store = cache.New(options.FS, options.CacheDir, options.Config.CacheMaxAge, log)
	}

	return &Manager{
		options: options,
		logger:  log,
		cache:   store,
	}
}

func (m *Manager) Logger() *logger.Logger {
	return m.logger
}

// Library returns the most recently scanned or cached Library, or nil if
// Scan has never succeeded.
func (m *Manager) Library() *mangadata.Library {
	return m.library
}

// Index returns the Index built over the current Library by BuildIndex,
// or nil if it has not been built yet.
func (m *Manager) Index() *index.Index {
	return m.idx
}

// Scan walks root and returns a freshly built Library. When CacheDir is
// configured, any cached snapshot is passed to the scanner as the prior
// Library for its reuse rule; the filesystem is always walked, and the
// snapshot's age is not consulted here. The result
// becomes the Manager's current Library; an Incomplete (cancelled) scan
// is never written to cache.
func (m *Manager) Scan(ctx context.Context, root string) (*mangadata.Library, diagnostics.Diagnostics, error) {
	var prior *mangadata.Library
	if m.cache != nil {
		if snap, _, ok := m.cache.Read(root); ok {
			prior = snap.Library
		}
	}

	lib, diags, err := scanner.Scan(ctx, m.options.FS, root, prior, scanner.Options{
		Concurrency: m.options.Config.WorkerPoolSize,
		Progress:    m.options.Progress,
		Logger:      m.logger,
	})
	if lib != nil {
		m.library = lib
	}
	if err != nil {
		return lib, diags, err
	}

	if m.cache != nil && !lib.Incomplete {
		writeDiags := m.cache.Write(lib)
		diags.Items = append(diags.Items, writeDiags.Items...)
	}
	return lib, diags, nil
}

// BuildIndex builds an Index over the Manager's current Library. Call
// Scan first.
func (m *Manager) BuildIndex() (*index.Index, diagnostics.Diagnostics, error) {
	if m.library == nil {
		return nil, diagnostics.Diagnostics{}, fmt.Errorf("vibemanga: BuildIndex called before a successful Scan")
	}
	idx, diags := index.Build(m.library)
	m.idx = idx
	return idx, diags, nil
}

// Match runs the ID/synonym/fuzzy matching cascade for a single parsed
// release against the Manager's current Index. Call BuildIndex first.
func (m *Manager) Match(p parser.Parsed, hint matcher.Hint) (matcher.Result, error) {
	if m.idx == nil {
		return matcher.NoMatch, fmt.Errorf("vibemanga: Match called before BuildIndex")
	}
	mt := matcher.New(m.idx, m.options.Config)
	defer mt.Close()
	return mt.Match(p, hint), nil
}

// MatchBatch runs Match over every entry, consolidating results that
// resolved to the same Series. It emits a PhaseMatching progress event
// before matching and another once every entry has been matched.
func (m *Manager) MatchBatch(entries []parser.Parsed, hints []matcher.Hint) ([]matcher.ConsolidatedMatch, error) {
	if m.idx == nil {
		return nil, fmt.Errorf("vibemanga: MatchBatch called before BuildIndex")
	}
	sink := progress.SinkOrNop(m.options.Progress)
	total := uint64(len(entries))
	sink(progress.Event{Phase: progress.PhaseMatching, Done: 0, Total: progress.Total(total)})
	mt := matcher.New(m.idx, m.options.Config)
	defer mt.Close()
	results := mt.MatchBatch(entries, hints)
	sink(progress.Event{Phase: progress.PhaseMatching, Done: total, Total: progress.Total(total)})
	return matcher.Consolidate(results, entries), nil
}

// PlanRename computes the rename plan for series under the configured
// title policy, without touching the filesystem.
func (m *Manager) PlanRename(series *mangadata.Series) []renamer.Entry {
	return renamer.Plan(series, m.options.Config.TitlePreference, m.options.Config)
}

// ApplyRename executes plan against the Manager's filesystem.
func (m *Manager) ApplyRename(plan []renamer.Entry) (lastOK int, err error) {
	return renamer.Apply(m.options.FS, plan)
}

// DetectDuplicates runs the ID/content/fuzzy-name duplicate detectors
// over the Manager's current Library.
func (m *Manager) DetectDuplicates(ctx context.Context) (dedupe.Report, error) {
	if m.library == nil {
		return dedupe.Report{}, fmt.Errorf("vibemanga: DetectDuplicates called before a successful Scan")
	}
	return dedupe.Detect(ctx, m.library, m.options.Config, dedupe.Options{
		Concurrency: m.options.Config.WorkerPoolSize,
		Progress:    m.options.Progress,
		Logger:      m.logger,
	})
}

// CancellableContext returns a context and CancelFunc suitable for Scan
// or DetectDuplicates, per spec's cancellation-token rule: cancelling
// stops the operation early and returns its partial result alongside a
// *diagnostics.CancelledError.
func CancellableContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(parent)
}
