package tideflow

import (
	"github.com/firstbrett/tideflow-md-to-pdf/internal/anchor"
	"github.com/firstbrett/tideflow-md-to-pdf/internal/sourcemap"
)

// PositionMap is an immutable two-way mapping between source anchors and
// their rendered locations, published atomically after each successful
// compile. All methods are safe for concurrent use.
type PositionMap struct {
	m *sourcemap.Map
}

func newPositionMap(anchors []anchor.Anchor, locs map[string]sourcemap.Location) (*PositionMap, error) {
	m, err := sourcemap.New(anchors, locs)
	if err != nil {
		return nil, err
	}
	return &PositionMap{m: m}, nil
}

// Anchors returns all anchors in source order.
func (p *PositionMap) Anchors() []Anchor {
	src := p.m.Anchors()
	out := make([]Anchor, len(src))
	for i, a := range src {
		out[i] = publicAnchor(a)
	}
	return out
}

// Len reports the number of anchors in the map.
func (p *PositionMap) Len() int { return p.m.Len() }

// OffsetOf returns the source byte offset of the anchor with the given
// id, or false if the id is unknown.
func (p *PositionMap) OffsetOf(id string) (int, bool) {
	a, ok := p.m.AnchorByID(id)
	if !ok {
		return 0, false
	}
	return a.SourceOffset, true
}

// LocationOf returns the rendered location reported for the anchor with
// the given id. It returns false when the id is unknown or the renderer
// elided the anchor.
func (p *PositionMap) LocationOf(id string) (RenderedLocation, bool) {
	loc, ok := p.m.LocationOf(id)
	if !ok {
		return RenderedLocation{}, false
	}
	return publicLocation(loc), true
}

// Resolve is LocationOf with a fallback: when the anchor exists but has
// no rendered location, the nearest preceding anchor that does have one
// answers instead.
func (p *PositionMap) Resolve(id string) (RenderedLocation, bool) {
	loc, ok := p.m.Resolve(id)
	if !ok {
		return RenderedLocation{}, false
	}
	return publicLocation(loc), true
}

// NearestAnchor returns the id of the anchor nearest to (at or before)
// the given source byte offset. An empty map yields "".
func (p *PositionMap) NearestAnchor(offset int) string {
	return p.m.NearestAnchor(offset)
}

// NearestRendered returns the id of the anchor whose rendered location
// is nearest to (at or before) the given location in reading order.
func (p *PositionMap) NearestRendered(loc RenderedLocation) string {
	return p.m.NearestRendered(sourcemap.Location{Page: loc.Page, X: loc.X, Y: loc.Y})
}

func publicAnchor(a anchor.Anchor) Anchor {
	return Anchor{
		ID:           a.ID,
		SourceOffset: a.SourceOffset,
		Line:         a.Line,
		Column:       a.Column,
		Kind:         publicKind(a.Kind),
	}
}

func publicKind(k anchor.Kind) AnchorKind {
	switch k {
	case anchor.KindHeading:
		return AnchorHeading
	case anchor.KindExplicit:
		return AnchorExplicit
	default:
		return AnchorBlockStart
	}
}

func publicLocation(loc sourcemap.Location) RenderedLocation {
	return RenderedLocation{Page: loc.Page, X: loc.X, Y: loc.Y}
}
