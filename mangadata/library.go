package mangadata

// Library is the root container: an ordered sequence of Main categories,
// remembering the root path it was scanned from.
//
// Exactly four path levels separate Root from a Volume:
// root/main/sub/series/[subgroup/]volume.
type Library struct {
	// Root is the absolute library root path.
	Root string `json:"root"`

	// MainCategories, ordered alphabetically by Name.
	MainCategories []*Category `json:"main_categories"`

	// Incomplete is true when a scan was cancelled before finishing; such
	// a Library is never written to cache.
	Incomplete bool `json:"incomplete,omitempty"`

	// Diagnostics holds the rendered non-fatal diagnostics of the scan that
	// built this Library. Index-build diagnostics are returned by
	// index.Build and are not stored here.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

func NewLibrary(root string) *Library {
	return &Library{Root: root}
}

// Walk visits every (Category, Series) pair in stable traversal order:
// Main categories, then Sub categories, then Series, each alphabetic by
// folder name. visit returning false stops the walk early.
func (l *Library) Walk(visit func(main, sub *Category, series *Series) bool) {
	for _, main := range l.MainCategories {
		for _, sub := range main.Children {
			for _, series := range sub.Series {
				if !visit(main, sub, series) {
					return
				}
			}
		}
	}
}

// AllSeries returns every series in the library, in traversal order.
func (l *Library) AllSeries() []*Series {
	var all []*Series
	l.Walk(func(_, _ *Category, s *Series) bool {
		all = append(all, s)
		return true
	})
	return all
}

// SeriesAt finds the series whose folder path equals path, used by the
// scanner to locate a prior Library's series for the reuse rule.
func (l *Library) SeriesAt(path string) (*Series, bool) {
	var found *Series
	l.Walk(func(_, _ *Category, s *Series) bool {
		if s.Path == path {
			found = s
			return false
		}
		return true
	})
	return found, found != nil
}
