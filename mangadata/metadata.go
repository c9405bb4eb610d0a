package mangadata

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Status is the publication status of a series.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusHiatus    Status = "hiatus"
	StatusCancelled Status = "cancelled"
	StatusUnknown   Status = "unknown"
)

// Metadata is the source-of-truth metadata record for a Series.
//
// Field order matches the alphabetical order of its JSON tags, so that
// json.MarshalIndent produces the sorted-key output series.json requires
// without a second encoding pass.
//
// Unknown keys are ignored on decode; this is the default behavior of
// encoding/json for struct targets, not something this type implements.
type Metadata struct {
	Authors       []string `json:"authors"`
	Demographic   string   `json:"demographic"`
	Genres        []string `json:"genres"`
	MALID         *int     `json:"mal_id"`
	Status        Status   `json:"status"`
	Synonyms      []string `json:"synonyms"`
	Synopsis      string   `json:"synopsis"`
	Tags          []string `json:"tags"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english"`
	TitleJapanese string   `json:"title_japanese"`
	TotalChapters *int     `json:"total_chapters"`
	TotalVolumes  *int     `json:"total_volumes"`
	Year          *int     `json:"year"`
}

// Empty returns the zero-value Metadata record, as spec'd: no ID, no
// titles, empty lists, unknown status.
func Empty() Metadata {
	return Metadata{
		Authors:  []string{},
		Genres:   []string{},
		Synonyms: []string{},
		Tags:     []string{},
		Status:   StatusUnknown,
	}
}

// IsEmpty reports whether m carries no identifying information at all.
func (m Metadata) IsEmpty() bool {
	return m.MALID == nil &&
		m.Title == "" &&
		m.TitleEnglish == "" &&
		m.TitleJapanese == "" &&
		len(m.Synonyms) == 0
}

// Identities returns the non-empty title-like strings carried by this
// metadata record: romanized, english, native, and every synonym.
//
// The folder name is not part of this set; callers combining it in belong
// to Series, which owns the folder name.
func (m Metadata) Identities() []string {
	var ids []string
	for _, t := range append([]string{m.Title, m.TitleEnglish, m.TitleJapanese}, m.Synonyms...) {
		if t != "" {
			ids = append(ids, t)
		}
	}
	return ids
}

func (m Metadata) String() string {
	title := m.TitleEnglish
	if title == "" {
		title = m.Title
	}
	if title == "" {
		title = m.TitleJapanese
	}
	if m.MALID != nil {
		return fmt.Sprintf("%s [mal-%d]", title, *m.MALID)
	}
	return title
}

// MarshalJSON renders m with sorted keys and two-space indentation, for
// human diffability of series.json.
func (m Metadata) MarshalJSON() ([]byte, error) {
	type alias Metadata
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(alias(m)); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	// json.Encoder appends a trailing newline; trim it so callers control
	// their own file framing.
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out, nil
}

// UnmarshalJSON decodes a series.json payload, defaulting absent list
// fields to empty slices rather than nil so Identities/len checks behave
// the same whether a field was present-but-empty or entirely absent.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type alias Metadata
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Authors == nil {
		a.Authors = []string{}
	}
	if a.Genres == nil {
		a.Genres = []string{}
	}
	if a.Synonyms == nil {
		a.Synonyms = []string{}
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Status == "" {
		a.Status = StatusUnknown
	}
	*m = Metadata(a)
	return nil
}
