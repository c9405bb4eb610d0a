package mangadata

import (
	"strings"
	"time"
)

// Volume is a single archive file discovered by the scanner: a .cbz, .cbr,
// .zip, .rar, .pdf, or .epub living directly under a Series folder or one
// of its SubGroups.
//
// Identity within a Series is the filename stem (Stem), not the full path.
type Volume struct {
	// Path is the absolute path to the archive file.
	Path string `json:"path"`

	// Stem is the filename without its extension, e.g. "One Piece v01" for
	// "One Piece v01.cbz".
	Stem string `json:"stem"`

	// Size is the file size in bytes, as reported by the filesystem at
	// scan time.
	Size int64 `json:"size"`

	// ModTime is the last-modified timestamp, as reported by the
	// filesystem at scan time.
	ModTime time.Time `json:"mod_time"`

	// PageCount is set by an external collaborator that opens the archive
	// to count pages; the core never computes it.
	PageCount *int `json:"page_count"`

	// Corrupted is set by an external collaborator; the core never
	// inspects archive contents to determine it.
	Corrupted bool `json:"corrupted"`
}

func (v *Volume) String() string {
	return v.Stem
}

// Extension returns the volume's file extension, including the leading
// dot, lowercased.
func (v *Volume) Extension() string {
	ext := ""
	if i := strings.LastIndexByte(v.Path, '.'); i >= 0 && !strings.ContainsRune(v.Path[i:], '/') {
		ext = v.Path[i:]
	}
	return strings.ToLower(ext)
}

// Unchanged reports whether other refers to the same on-disk content as v,
// per the scanner's reuse rule: identical size and modification time.
func (v *Volume) Unchanged(other *Volume) bool {
	return other != nil &&
		v.Size == other.Size &&
		v.ModTime.Equal(other.ModTime)
}
