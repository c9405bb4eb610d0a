// Package scanner walks the four-level library hierarchy — root, main
// category, sub category, series — and produces a mangadata.Library,
// reusing Volume objects from a prior Library when a file's (size, mtime)
// is unchanged so external collaborators (page counters, corruption
// checkers) never redo work on unchanged archives.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/vibemanga/vibemanga/diagnostics"
	"github.com/vibemanga/vibemanga/logger"
	"github.com/vibemanga/vibemanga/mangadata"
	"github.com/vibemanga/vibemanga/progress"
)

// VolumeExtensions is the default set of archive/document extensions the
// scanner treats as volume-like files, case-folded.
var VolumeExtensions = map[string]bool{
	".cbz":  true,
	".cbr":  true,
	".zip":  true,
	".rar":  true,
	".pdf":  true,
	".epub": true,
}

const seriesMetadataFile = "series.json"

// Options configures a Scan call.
type Options struct {
	// Concurrency bounds the series worker pool. Zero means
	// runtime.GOMAXPROCS(0).
	Concurrency int

	// Extensions overrides VolumeExtensions when non-nil.
	Extensions map[string]bool

	// Progress receives scan events; nil is treated as progress.Nop.
	Progress progress.Sink

	// Logger receives debug/warn output; nil constructs a discarding one.
	Logger *logger.Logger
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) extensions() map[string]bool {
	if o.Extensions != nil {
		return o.Extensions
	}
	return VolumeExtensions
}

// Scan walks fs under root and returns a freshly built Library. prior may
// be nil; when supplied, its Volumes are reused wherever the reuse rule
// applies. ctx cancellation is polled before each series starts; a
// cancelled scan returns a partial Library (Incomplete=true) alongside a
// *diagnostics.CancelledError — the caller must not write this result to
// cache.
func Scan(ctx context.Context, fs afero.Fs, root string, prior *mangadata.Library, opts Options) (*mangadata.Library, diagnostics.Diagnostics, error) {
	log := opts.Logger
	if log == nil {
		log = logger.New()
	}
	sink := safeSink(progress.SinkOrNop(opts.Progress))

	info, err := fs.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, diagnostics.Diagnostics{}, &diagnostics.PreconditionError{Path: root, Reason: "library root is missing or not a directory"}
	}

	lib := mangadata.NewLibrary(root)
	var diags diagnostics.Diagnostics

	mainNames, err := readSortedDirNames(fs, root)
	if err != nil {
		return nil, diags, &diagnostics.PreconditionError{Path: root, Reason: "library root is not readable: " + err.Error()}
	}

	type seriesJob struct {
		path string
		sub  *mangadata.Category
	}
	var jobs []seriesJob

	sink(progress.Event{Phase: progress.PhaseDiscovering, Label: root})

	for _, mainName := range mainNames {
		mainPath := filepath.Join(root, mainName)
		main := mangadata.NewCategory(mainPath)

		subNames, err := readSortedDirNames(fs, mainPath)
		if err != nil {
			diags.Add(diagnostics.KindPerItem, mainPath, err)
			continue
		}
		for _, subName := range subNames {
			subPath := filepath.Join(mainPath, subName)
			sub := mangadata.NewCategory(subPath)

			seriesNames, err := readSortedDirNames(fs, subPath)
			if err != nil {
				diags.Add(diagnostics.KindPerItem, subPath, err)
				main.Children = append(main.Children, sub)
				continue
			}
			for _, seriesName := range seriesNames {
				jobs = append(jobs, seriesJob{path: filepath.Join(subPath, seriesName), sub: sub})
			}
			main.Children = append(main.Children, sub)
		}
		lib.MainCategories = append(lib.MainCategories, main)
	}

	total := uint64(len(jobs))
	var done atomic.Uint64

	results := make([]*mangadata.Series, len(jobs))
	resultDiags := make([]diagnostics.Diagnostics, len(jobs))

	var g errgroup.Group
	g.SetLimit(opts.concurrency())

	cancelled := false
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			series, d := scanSeries(fs, job.path, findPriorSeries(prior, job.path), opts.extensions())
			results[i] = series
			resultDiags[i] = d
			n := done.Add(1)
			sink(progress.Event{Phase: progress.PhaseScanning, Done: n, Total: progress.Total(total), Label: series.FolderName})
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		cancelled = true
	}

	for i, job := range jobs {
		if results[i] == nil {
			continue
		}
		job.sub.Series = append(job.sub.Series, results[i])
		diags.Items = append(diags.Items, resultDiags[i].Items...)
	}

	if cancelled {
		lib.Incomplete = true
		lib.Diagnostics = diags.Strings()
		log.Warn("scan of %s cancelled with %d/%d series processed", root, done.Load(), total)
		return lib, diags, &diagnostics.CancelledError{}
	}

	lib.Diagnostics = diags.Strings()
	return lib, diags, nil
}

// safeSink serializes concurrent calls into sink, since the worker pool
// fans out one goroutine per series and a caller-supplied Sink is not
// guaranteed to be safe for concurrent use.
func safeSink(sink progress.Sink) progress.Sink {
	var mu sync.Mutex
	return func(e progress.Event) {
		mu.Lock()
		defer mu.Unlock()
		sink(e)
	}
}

func findPriorSeries(prior *mangadata.Library, path string) *mangadata.Series {
	if prior == nil {
		return nil
	}
	s, ok := prior.SeriesAt(path)
	if !ok {
		return nil
	}
	return s
}

// scanSeries reads one series directory: its volumes, subgroups, and
// optional series.json metadata. Per-series failures are recorded as
// diagnostics rather than propagated, per the scanner's failure model.
func scanSeries(fs afero.Fs, path string, prior *mangadata.Series, exts map[string]bool) (*mangadata.Series, diagnostics.Diagnostics) {
	var diags diagnostics.Diagnostics
	series := mangadata.NewSeries(path)

	entries, err := afero.ReadDir(fs, path)
	if err != nil {
		diags.Add(diagnostics.KindPerItem, path, err)
		series.Diagnostics = diags.Strings()
		return series, diags
	}

	var subgroupNames []string
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
			subgroupNames = append(subgroupNames, name)
		case name == seriesMetadataFile:
			loadSeriesMetadata(fs, filepath.Join(path, name), series, &diags)
		case exts[strings.ToLower(filepath.Ext(name))]:
			series.Volumes = append(series.Volumes, buildVolume(fs, path, entry, findPriorVolume(prior, name)))
		}
	}
	sort.Slice(series.Volumes, func(i, j int) bool { return series.Volumes[i].Stem < series.Volumes[j].Stem })

	sort.Strings(subgroupNames)
	for _, name := range subgroupNames {
		subPath := filepath.Join(path, name)
		group, groupDiags := scanSubGroup(fs, subPath, name, findPriorSubGroup(prior, name), exts)
		diags.Items = append(diags.Items, groupDiags.Items...)
		if len(group.Volumes) > 0 {
			series.SubGroups = append(series.SubGroups, group)
		}
	}

	series.Diagnostics = diags.Strings()
	return series, diags
}

func scanSubGroup(fs afero.Fs, path, name string, prior *mangadata.SubGroup, exts map[string]bool) (*mangadata.SubGroup, diagnostics.Diagnostics) {
	var diags diagnostics.Diagnostics
	group := &mangadata.SubGroup{Path: path, Name: name}

	entries, err := afero.ReadDir(fs, path)
	if err != nil {
		diags.Add(diagnostics.KindPerItem, path, err)
		return group, diags
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if exts[strings.ToLower(filepath.Ext(entry.Name()))] {
			var priorVolume *mangadata.Volume
			if prior != nil {
				priorVolume, _ = prior.VolumeByStem(stem(entry.Name()))
			}
			group.Volumes = append(group.Volumes, buildVolume(fs, path, entry, priorVolume))
		}
	}
	sort.Slice(group.Volumes, func(i, j int) bool { return group.Volumes[i].Stem < group.Volumes[j].Stem })
	return group, diags
}

func buildVolume(fs afero.Fs, dir string, entry os.FileInfo, prior *mangadata.Volume) *mangadata.Volume {
	name := entry.Name()
	fresh := &mangadata.Volume{
		Path:    filepath.Join(dir, name),
		Stem:    stem(name),
		Size:    entry.Size(),
		ModTime: entry.ModTime(),
	}
	if prior != nil && prior.Unchanged(fresh) {
		return prior
	}
	return fresh
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func findPriorVolume(series *mangadata.Series, name string) *mangadata.Volume {
	if series == nil {
		return nil
	}
	v, ok := series.VolumeByStem(stem(name))
	if !ok {
		return nil
	}
	return v
}

func findPriorSubGroup(series *mangadata.Series, name string) *mangadata.SubGroup {
	if series == nil {
		return nil
	}
	g, ok := series.SubGroupByName(name)
	if !ok {
		return nil
	}
	return g
}

// loadSeriesMetadata reads and parses a series' series.json. A missing or
// malformed file is a per-item scan failure per spec §7, surfaced in the
// result's diagnostic list — not a ParseWarning, which is reserved for the
// parser package's own range-validity rejections and never surfaced.
func loadSeriesMetadata(fs afero.Fs, path string, series *mangadata.Series, diags *diagnostics.Diagnostics) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		diags.Add(diagnostics.KindPerItem, path, err)
		return
	}
	var meta mangadata.Metadata
	if err := meta.UnmarshalJSON(raw); err != nil {
		diags.Add(diagnostics.KindPerItem, path, err)
		return
	}
	series.Metadata = meta
}

func readSortedDirNames(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
