// Package renamer computes a rename plan for a Series — folder name,
// volume extensions, and volume file names — without touching the
// filesystem. A separate Apply function consumes the plan; "simulate" is
// simply never calling Apply, "apply" is calling it against a real
// afero.Fs (or a MemMapFs to dry-run against a snapshot), matching the
// teacher's "compute path, then act on afero.Fs" split in its own rename
// helpers.
package renamer

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/vibemanga/vibemanga/analysis"
	"github.com/vibemanga/vibemanga/config"
	"github.com/vibemanga/vibemanga/mangadata"
	"github.com/vibemanga/vibemanga/normalize"
	"github.com/vibemanga/vibemanga/parser"
)

// Kind names which part of the tree a plan Entry touches.
type Kind string

const (
	KindFolder        Kind = "folder"
	KindFileExtension Kind = "file-extension"
	KindFileName      Kind = "file-name"
)

// Entry is one filesystem move the plan proposes.
type Entry struct {
	Kind      Kind
	OldPath   string
	NewPath   string
	Safety    int
	Uncertain bool
	Collision bool
}

var extensionNormalization = map[string]string{
	".zip": ".cbz",
	".rar": ".cbr",
}

var windowsIllegal = strings.NewReplacer(
	"<", "", ">", "", ":", "", "\"", "", "/", "", "\\", "", "|", "", "?", "", "*", "",
)

// sanitizeName strips characters illegal on the strictest supported
// filesystem, trims trailing dots/spaces, and collapses runs of spaces.
func sanitizeName(name string) string {
	cleaned := windowsIllegal.Replace(name)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.TrimRight(cleaned, ". ")
	return cleaned
}

func sameIgnoringCaseAndSpace(a, b string) bool {
	fold := func(s string) string { return strings.ToLower(strings.Join(strings.Fields(s), "")) }
	return fold(a) == fold(b)
}

// targetSeriesName picks the preferred title per policy, falling back
// through the remaining title fields, and finally to the folder name.
func targetSeriesName(series *mangadata.Series, policy config.TitlePolicy) string {
	m := series.Metadata
	var order []string
	switch policy {
	case config.TitlePolicyRomanized:
		order = []string{m.Title, m.TitleEnglish, m.TitleJapanese}
	case config.TitlePolicyNative:
		order = []string{m.TitleJapanese, m.TitleEnglish, m.Title}
	case config.TitlePolicyFolder:
		order = nil
	default: // english
		order = []string{m.TitleEnglish, m.Title, m.TitleJapanese}
	}
	for _, t := range order {
		if t != "" {
			return t
		}
	}
	return series.FolderName
}

// Plan builds the full rename plan for series: a folder entry (if the
// sanitized target name differs from the current folder name), a
// file-extension entry for every .zip/.rar volume, and a file-name entry
// for every volume whose parsed title segment differs from the target
// name. Entries are ordered by path depth descending, so a plan consumer
// applying them in order always renames leaves before the folder that
// contains them.
func Plan(series *mangadata.Series, policy config.TitlePolicy, cfg config.Config) []Entry {
	p := parser.New(cfg)
	target := sanitizeName(targetSeriesName(series, policy))

	var entries []Entry

	seriesDir := filepath.Dir(series.Path)
	newFolderPath := filepath.Join(seriesDir, target)
	if target != series.FolderName {
		safety := 2
		if sameIgnoringCaseAndSpace(target, series.FolderName) {
			safety = 1
		}
		entries = append(entries, Entry{
			Kind:    KindFolder,
			OldPath: series.Path,
			NewPath: newFolderPath,
			Safety:  safety,
		})
	}

	for _, v := range series.AllVolumes() {
		entries = append(entries, planVolume(p, v, target)...)
	}

	markCollisions(entries)
	sortByDepthDescending(entries)
	return entries
}

func planVolume(p *parser.Parser, v *mangadata.Volume, target string) []Entry {
	var entries []Entry
	currentPath := v.Path
	currentExt := v.Extension()

	if normalized, ok := extensionNormalization[currentExt]; ok {
		newPath := strings.TrimSuffix(currentPath, currentExt) + normalized
		entries = append(entries, Entry{
			Kind:    KindFileExtension,
			OldPath: currentPath,
			NewPath: newPath,
			Safety:  1,
		})
		currentPath = newPath
		currentExt = normalized
	}

	parsed := p.Parse(parser.Input{Source: filepath.Base(v.Path), SizeBytes: v.Size})
	if normalize.Normalize(parsed.CleanedTitle) == normalize.Normalize(target) {
		return entries
	}

	segment, uncertain := volumeSegment(parsed)
	newStem := target
	if segment != "" {
		newStem = target + " " + segment
	}
	newPath := filepath.Join(filepath.Dir(currentPath), newStem+currentExt)
	if newPath == currentPath {
		return entries
	}

	safety := 2
	if uncertain {
		safety = 3
	}
	entries = append(entries, Entry{
		Kind:      KindFileName,
		OldPath:   currentPath,
		NewPath:   newPath,
		Safety:    safety,
		Uncertain: uncertain,
	})
	return entries
}

// volumeSegment renders the "vNN"/"cNNN" filename segment from a parsed
// volume. A parse with no ranges at all returns an empty segment and
// uncertain=true, per spec's edge case for filenames the parser could not
// classify.
func volumeSegment(p parser.Parsed) (segment string, uncertain bool) {
	switch {
	case p.HasVolumes():
		return analysis.FormatRanges(p.VolumeRanges[:1], "v", 2), false
	case p.HasChapters():
		return analysis.FormatRanges(p.ChapterRanges[:1], "c", 3), false
	default:
		return "", true
	}
}

// markCollisions flags every entry sharing a NewPath with another entry.
func markCollisions(entries []Entry) {
	byPath := make(map[string][]int)
	for i, e := range entries {
		byPath[e.NewPath] = append(byPath[e.NewPath], i)
	}
	for _, idxs := range byPath {
		if len(idxs) < 2 {
			continue
		}
		for _, i := range idxs {
			entries[i].Collision = true
		}
	}
}

// kindRank orders entries that share a depth so a chained rename (the
// file-extension entry for a volume, followed by that same volume's
// file-name entry acting on the extension-normalized path) always
// executes in the order Apply needs, before the plain alphabetical
// tie-break spec's ordering rule names applies across unrelated volumes.
func kindRank(k Kind) int {
	switch k {
	case KindFileExtension:
		return 0
	case KindFileName:
		return 1
	default:
		return 2
	}
}

func sortByDepthDescending(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := pathDepth(entries[i].OldPath), pathDepth(entries[j].OldPath)
		if di != dj {
			return di > dj
		}
		ri, rj := kindRank(entries[i].Kind), kindRank(entries[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return entries[i].NewPath < entries[j].NewPath
	})
}

func pathDepth(path string) int {
	return strings.Count(filepath.ToSlash(path), "/")
}

// SuffixCollisions clears the collision mark on every collision-marked
// entry, keeping the first entry's NewPath and rewriting each later one
// with a " (2)", " (3)", ... suffix (before the extension), so the caller
// can opt into applying colliding entries instead of skipping them.
func SuffixCollisions(entries []Entry) []Entry {
	seen := make(map[string]int)
	out := make([]Entry, len(entries))
	copy(out, entries)
	for i, e := range out {
		if !e.Collision {
			continue
		}
		seen[e.NewPath]++
		if seen[e.NewPath] == 1 {
			out[i].Collision = false
			continue
		}
		ext := filepath.Ext(e.NewPath)
		base := strings.TrimSuffix(e.NewPath, ext)
		out[i].NewPath = fmt.Sprintf("%s (%d)%s", base, seen[e.NewPath], ext)
		out[i].Collision = false
	}
	return out
}

// Apply executes plan against fs in order, stopping at the first
// filesystem error. It returns the index of the last successfully
// applied entry, or -1 if none succeeded. Entries still marked Collision
// are skipped, not applied.
func Apply(fs afero.Fs, plan []Entry) (lastOK int, err error) {
	lastOK = -1
	for i, e := range plan {
		if e.Collision {
			continue
		}
		if err := fs.Rename(e.OldPath, e.NewPath); err != nil {
			return lastOK, fmt.Errorf("renamer: apply entry %d (%s -> %s): %w", i, e.OldPath, e.NewPath, err)
		}
		lastOK = i
	}
	return lastOK, nil
}
