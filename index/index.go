// Package index builds the two lookup maps — by ID and by normalized
// title — that the matcher and renamer consult instead of walking the
// Library tree on every query. A build is pure and always starts from
// scratch; Series pointer identity from the source Library is preserved,
// which is why the maps are plain Go maps rather than a gokv store (a
// codec round-trip would hand back copies, not the original pointers the
// rest of the core expects to share).
package index

import (
	"fmt"
	"sort"

	"github.com/vibemanga/vibemanga/diagnostics"
	"github.com/vibemanga/vibemanga/mangadata"
	"github.com/vibemanga/vibemanga/normalize"
)

// Index is the built lookup structure for one Library snapshot.
type Index struct {
	byID    map[int]*mangadata.Series
	byTitle map[string][]*mangadata.Series
	all     []*mangadata.Series
}

// Build walks lib in stable alphabetic traversal order and populates both
// maps. A later MALID collision keeps the first binding and is recorded as
// an IndexCollision diagnostic rather than overwriting it.
func Build(lib *mangadata.Library) (*Index, diagnostics.Diagnostics) {
	idx := &Index{
		byID:    make(map[int]*mangadata.Series),
		byTitle: make(map[string][]*mangadata.Series),
	}
	var diags diagnostics.Diagnostics

	lib.Walk(func(_, _ *mangadata.Category, series *mangadata.Series) bool {
		idx.all = append(idx.all, series)
		if id := series.Metadata.MALID; id != nil {
			if existing, ok := idx.byID[*id]; ok {
				diags.Add(diagnostics.KindIndexCollision, series.Path,
					fmt.Errorf("mal id %d already bound to %s; keeping it over %s", *id, existing.Path, series.Path))
			} else {
				idx.byID[*id] = series
			}
		}
		for _, identity := range series.Identities() {
			key := normalize.Normalize(identity)
			if key == "" {
				continue
			}
			idx.byTitle[key] = append(idx.byTitle[key], series)
		}
		return true
	})

	return idx, diags
}

// Search normalizes query and returns the Series bound to that title key,
// in insertion order. A miss returns an empty (non-nil) slice.
func (idx *Index) Search(query string) []*mangadata.Series {
	key := normalize.Normalize(query)
	if key == "" {
		return []*mangadata.Series{}
	}
	found := idx.byTitle[key]
	out := make([]*mangadata.Series, len(found))
	copy(out, found)
	return out
}

// All returns every Series the index was built from, in traversal order.
func (idx *Index) All() []*mangadata.Series {
	out := make([]*mangadata.Series, len(idx.all))
	copy(out, idx.all)
	return out
}

// GetByID returns the Series bound to id, if any.
func (idx *Index) GetByID(id int) (*mangadata.Series, bool) {
	s, ok := idx.byID[id]
	return s, ok
}

// Size reports how many distinct title keys and IDs the index holds,
// mostly useful for logging/diagnostics rather than core logic.
func (idx *Index) Size() (ids int, titleKeys int) {
	return len(idx.byID), len(idx.byTitle)
}

// Titles returns every normalized title key currently indexed, sorted —
// used by tooling that wants to enumerate the index rather than query it.
func (idx *Index) Titles() []string {
	keys := make([]string, 0, len(idx.byTitle))
	for k := range idx.byTitle {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
