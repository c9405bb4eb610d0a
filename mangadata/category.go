package mangadata

import "path/filepath"

// Category is one node of the two-level Main/Sub category tree.
//
// At depth 1 (Main), Children holds Sub categories and Series is empty.
// At depth 2 (Sub), Series holds the series folders and Children is empty.
type Category struct {
	// Path is the absolute path to the category directory.
	Path string `json:"path"`

	// Name is the category's folder name.
	Name string `json:"name"`

	// Children holds sub-categories; only populated at depth 1.
	Children []*Category `json:"children,omitempty"`

	// Series holds series folders; only populated at depth 2.
	Series []*Series `json:"series,omitempty"`
}

func NewCategory(path string) *Category {
	return &Category{
		Path: path,
		Name: filepath.Base(path),
	}
}

func (c *Category) String() string {
	return c.Name
}

// IsLeaf reports whether this category holds Series directly (depth 2).
func (c *Category) IsLeaf() bool {
	return len(c.Children) == 0
}
