// Package sourcemap resolves anchors to rendered locations and back.
//
// A Map is built once per successful compile from the anchor table and the
// compiler's anchor-location report, and is immutable afterwards: concurrent
// readers keep using the previous map until a new one is swapped in whole.
package sourcemap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/firstbrett/tideflow-md-to-pdf/internal/anchor"
)

// Sentinel errors for map construction.
var (
	ErrUnorderedAnchors = errors.New("sourcemap: anchor table not ordered by source offset")
	ErrDuplicateAnchor  = errors.New("sourcemap: duplicate anchor id")
)

// Location is a position in the rendered artifact.
type Location struct {
	Page int     // 1-based page index
	X    float64 // points from the page's left edge
	Y    float64 // points from the page's top edge
}

// Less orders locations page-major, then top to bottom.
func (l Location) Less(other Location) bool {
	if l.Page != other.Page {
		return l.Page < other.Page
	}
	return l.Y < other.Y
}

type renderedEntry struct {
	id  string
	loc Location
}

// Map answers nearest-anchor and anchor-location queries. Construct with New;
// the zero value is not usable.
type Map struct {
	anchors  []anchor.Anchor // ordered by SourceOffset
	index    map[string]int  // id -> position in anchors
	locs     map[string]Location
	rendered []renderedEntry // anchors with known locations, ordered by Location
}

// New builds a Map from an ordered anchor table and the compiler's location
// report. Anchors missing from the report were elided during compilation;
// they stay queryable by offset and resolve through Resolve's fallback.
// A malformed table (out of order, duplicate ids) is an internal bug and is
// rejected.
func New(anchors []anchor.Anchor, locs map[string]Location) (*Map, error) {
	m := &Map{
		anchors: make([]anchor.Anchor, len(anchors)),
		index:   make(map[string]int, len(anchors)),
		locs:    make(map[string]Location, len(locs)),
	}
	copy(m.anchors, anchors)

	prev := -1
	for i, a := range m.anchors {
		if i > 0 && a.SourceOffset <= prev {
			return nil, fmt.Errorf("%w: offset %d after %d", ErrUnorderedAnchors, a.SourceOffset, prev)
		}
		prev = a.SourceOffset
		if _, dup := m.index[a.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAnchor, a.ID)
		}
		m.index[a.ID] = i
		if loc, ok := locs[a.ID]; ok {
			m.locs[a.ID] = loc
			m.rendered = append(m.rendered, renderedEntry{id: a.ID, loc: loc})
		}
	}

	sort.Slice(m.rendered, func(i, j int) bool {
		return m.rendered[i].loc.Less(m.rendered[j].loc)
	})
	return m, nil
}

// Len returns the number of anchors in the table.
func (m *Map) Len() int {
	return len(m.anchors)
}

// Anchors returns the anchor table in source order. The caller must not
// mutate the returned slice.
func (m *Map) Anchors() []anchor.Anchor {
	return m.anchors
}

// AnchorByID returns the anchor with the given id.
func (m *Map) AnchorByID(id string) (anchor.Anchor, bool) {
	i, ok := m.index[id]
	if !ok {
		return anchor.Anchor{}, false
	}
	return m.anchors[i], true
}

// LocationOf returns the rendered location reported for the anchor id.
// The second result is false when the compiler elided the anchor (or the id
// is unknown); callers should then fall back via Resolve.
func (m *Map) LocationOf(id string) (Location, bool) {
	loc, ok := m.locs[id]
	return loc, ok
}

// Resolve returns the rendered location for id, falling back to the nearest
// preceding anchor that has one when id itself was elided.
func (m *Map) Resolve(id string) (Location, bool) {
	i, ok := m.index[id]
	if !ok {
		return Location{}, false
	}
	for ; i >= 0; i-- {
		if loc, ok := m.locs[m.anchors[i].ID]; ok {
			return loc, true
		}
	}
	return Location{}, false
}

// NearestAnchor returns the id of the anchor with the greatest source offset
// not exceeding offset, or the first anchor when none qualifies. Returns ""
// only for an empty table.
func (m *Map) NearestAnchor(offset int) string {
	if len(m.anchors) == 0 {
		return ""
	}
	// First anchor with SourceOffset > offset; the one before it is ours.
	i := sort.Search(len(m.anchors), func(i int) bool {
		return m.anchors[i].SourceOffset > offset
	})
	if i == 0 {
		return m.anchors[0].ID
	}
	return m.anchors[i-1].ID
}

// NearestRendered returns the id of the anchor whose rendered location is the
// greatest not exceeding loc (page-major, then vertical offset), or the first
// located anchor when none qualifies. Returns "" when no anchor has a known
// location.
func (m *Map) NearestRendered(loc Location) string {
	if len(m.rendered) == 0 {
		return ""
	}
	i := sort.Search(len(m.rendered), func(i int) bool {
		return loc.Less(m.rendered[i].loc)
	})
	if i == 0 {
		return m.rendered[0].id
	}
	return m.rendered[i-1].id
}
