package mangadata

import "path/filepath"

// Series is a single manga series folder: an ordered sequence of Volumes
// and SubGroups, plus an always-present (possibly empty) Metadata record.
//
// Invariants (enforced by the scanner, not re-validated here): FolderName
// is the tail of Path; every Volume's path is a descendant of Path; a
// Volume lives either directly under Path or inside exactly one SubGroup.
type Series struct {
	// Path is the absolute path to the series folder.
	Path string `json:"path"`

	// FolderName is the display name: filepath.Base(Path).
	FolderName string `json:"folder_name"`

	// Volumes directly under the series folder (not inside a SubGroup),
	// ordered alphabetically by Stem.
	Volumes []*Volume `json:"volumes"`

	// SubGroups under the series folder, ordered alphabetically by Name.
	SubGroups []*SubGroup `json:"sub_groups"`

	// Metadata is always present; an unmatched series carries Empty().
	Metadata Metadata `json:"metadata"`

	// Diagnostics collected while scanning this series (e.g. a malformed
	// series.json, a permission error on a subdirectory).
	Diagnostics []string `json:"diagnostics,omitempty"`
}

func NewSeries(path string) *Series {
	return &Series{
		Path:       path,
		FolderName: filepath.Base(path),
		Metadata:   Empty(),
	}
}

func (s *Series) String() string {
	return s.FolderName
}

// Identities returns the derived identity set of the series: folder name,
// romanized/english/native titles, and synonyms, with empties removed.
// Order is folder name first, then Metadata.Identities(), matching the
// tie-break preference in the matcher (folder-name identity is checked
// first).
func (s *Series) Identities() []string {
	ids := make([]string, 0, 1+len(s.Metadata.Synonyms)+3)
	if s.FolderName != "" {
		ids = append(ids, s.FolderName)
	}
	ids = append(ids, s.Metadata.Identities()...)
	return ids
}

// AllVolumes returns every volume owned by the series, direct children
// first then each SubGroup's volumes in SubGroup order. This is the flat
// view the deduper and renamer operate over.
func (s *Series) AllVolumes() []*Volume {
	volumes := make([]*Volume, 0, len(s.Volumes))
	volumes = append(volumes, s.Volumes...)
	for _, g := range s.SubGroups {
		volumes = append(volumes, g.Volumes...)
	}
	return volumes
}

// VolumeByStem finds a volume (direct or inside any SubGroup) by its
// filename stem, used by the scanner's reuse rule.
func (s *Series) VolumeByStem(stem string) (*Volume, bool) {
	for _, v := range s.Volumes {
		if v.Stem == stem {
			return v, true
		}
	}
	for _, g := range s.SubGroups {
		if v, ok := g.VolumeByStem(stem); ok {
			return v, true
		}
	}
	return nil, false
}

// SubGroupByName finds a subgroup by its folder name, used by the
// scanner's reuse rule when recursing one level into subgroups.
func (s *Series) SubGroupByName(name string) (*SubGroup, bool) {
	for _, g := range s.SubGroups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}
