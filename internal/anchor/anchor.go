// Package anchor annotates markdown source with invisible position markers.
//
// Markers are Typst labels wrapped in raw-typst HTML comments. They pass
// through the markdown-to-Typst conversion untouched, contribute nothing to
// the rendered layout, and remain discoverable via `typst query`, which makes
// them usable as the join points between source offsets and rendered
// locations.
package anchor

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Kind classifies where an anchor came from.
type Kind int

const (
	// KindBlockStart marks the beginning of a block-level element
	// (paragraph, list, code block).
	KindBlockStart Kind = iota
	// KindHeading marks a heading line.
	KindHeading
	// KindExplicit marks a user-written anchor comment.
	KindExplicit
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindBlockStart:
		return "block-start"
	case KindHeading:
		return "heading"
	case KindExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// DocStartID is the id of the synthetic anchor at offset 0. It exists even
// for documents whose first block starts later (or not at all), so the
// preview can always scroll back to the top.
const DocStartID = "tf-doc-start"

// ExplicitMarker is the comment users can place in their markdown to force
// an anchor at a specific spot.
const ExplicitMarker = "<!--tf-anchor-->"

const (
	markerPrefix = `<!--raw-typst #label("`
	markerSuffix = `") -->`
	// idHashSpan is how many bytes of block content feed the id hash.
	idHashSpan = 24
)

// Anchor is one position marker: a stable id tied to an offset in the
// original (marker-free) source.
type Anchor struct {
	ID           string
	SourceOffset int
	Line         int // 0-based
	Column       int // 0-based
	Kind         Kind
}

// Annotated is the result of injection: a marker-bearing copy of the source
// plus the ordered anchor table. The user's text is never modified; Text is
// a fresh string handed to the compiler and discarded with the attempt.
type Annotated struct {
	Text    string   // annotated copy given to the compiler
	Source  string   // marker-free snapshot the offsets refer to
	Anchors []Anchor // ordered by SourceOffset
}

// Inject returns an annotated copy of text with anchors at block boundaries.
//
// It is a total, pure function: any input produces a valid result, and the
// same input always produces the same anchor table (ids are derived from
// offset plus a content hash, not from shared counters). Text that already
// contains injected markers is normalized first, so re-injecting compiler
// input is harmless.
func Inject(input string) *Annotated {
	src := StripMarkers(input)
	cands := collectCandidates(src)

	anchors := make([]Anchor, 0, len(cands)+1)
	for _, c := range cands {
		id := DocStartID
		if c.offset != 0 {
			id = anchorID(src, c.offset)
		}
		line, col := lineColumn(src, c.offset)
		anchors = append(anchors, Anchor{
			ID:           id,
			SourceOffset: c.offset,
			Line:         line,
			Column:       col,
			Kind:         c.kind,
		})
	}

	return &Annotated{
		Text:    insertMarkers(src, anchors),
		Source:  src,
		Anchors: anchors,
	}
}

// StripMarkers removes previously injected anchor marker lines, restoring
// the original source byte-for-byte. Markers are always inserted as whole
// lines at line starts, so removal is exact.
func StripMarkers(s string) string {
	if !strings.Contains(s, markerPrefix) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for start := 0; start < len(s); {
		end := strings.IndexByte(s[start:], '\n')
		var line string
		if end < 0 {
			line = s[start:]
			end = len(s)
		} else {
			end += start + 1
			line = s[start : end-1]
		}
		if !isMarkerLine(line) {
			b.WriteString(s[start:end])
		}
		start = end
	}
	return b.String()
}

func isMarkerLine(line string) bool {
	return strings.HasPrefix(line, markerPrefix) && strings.HasSuffix(line, markerSuffix)
}

type candidate struct {
	offset int
	kind   Kind
}

// collectCandidates walks the markdown AST and records the line-start offset
// of every block worth anchoring. Blockquotes and tables are skipped:
// a marker inserted after '>' or between table rows breaks their syntax,
// and the block preceding them is close enough for scrolling.
func collectCandidates(src string) []candidate {
	source := []byte(src)
	md := goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Footnote))
	doc := md.Parser().Parse(text.NewReader(source))

	seen := map[int]bool{0: true}
	cands := []candidate{{offset: 0, kind: KindBlockStart}}
	add := func(off int, kind Kind) {
		if off < 0 || off > len(source) || seen[off] {
			return
		}
		if startsBlockquoteLine(src, off) {
			return
		}
		seen[off] = true
		cands = append(cands, candidate{offset: off, kind: kind})
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindBlockquote:
			// Inner paragraphs would need markers between '>' and content.
			return ast.WalkSkipChildren, nil
		case extast.KindTable:
			// Tables must stay contiguous; an anchor before the table comes
			// from the preceding block.
			return ast.WalkSkipChildren, nil
		case ast.KindHeading:
			if off, ok := blockLineStart(source, n); ok {
				add(off, KindHeading)
			}
		case ast.KindParagraph, ast.KindTextBlock, ast.KindCodeBlock:
			if off, ok := blockLineStart(source, n); ok {
				add(off, KindBlockStart)
			}
		case ast.KindFencedCodeBlock:
			if off, ok := fenceStart(source, n.(*ast.FencedCodeBlock)); ok {
				add(off, KindBlockStart)
			}
		}
		return ast.WalkContinue, nil
	})

	// User-written anchor comments become explicit anchors at their line.
	for idx := 0; ; {
		i := strings.Index(src[idx:], ExplicitMarker)
		if i < 0 {
			break
		}
		off := lineStart(source, idx+i)
		if !seen[off] {
			seen[off] = true
			cands = append(cands, candidate{offset: off, kind: KindExplicit})
		}
		idx += i + len(ExplicitMarker)
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].offset < cands[j].offset })
	return cands
}

// blockLineStart resolves a block node to the offset of the line its first
// content appears on. Walking back to the line start puts the marker before
// list bullets and heading hashes rather than inside them.
func blockLineStart(source []byte, n ast.Node) (int, bool) {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return 0, false
	}
	return lineStart(source, lines.At(0).Start), true
}

// fenceStart resolves a fenced code block to the start of its opening fence
// line. The node's Lines cover only the code body, so the fence line is
// located via the info string when present, or the line above the body.
func fenceStart(source []byte, n *ast.FencedCodeBlock) (int, bool) {
	if n.Info != nil && n.Info.Segment.Len() > 0 {
		return lineStart(source, n.Info.Segment.Start), true
	}
	if n.Lines().Len() > 0 {
		body := lineStart(source, n.Lines().At(0).Start)
		if body > 0 {
			return lineStart(source, body-1), true
		}
	}
	return 0, false
}

func lineStart(source []byte, off int) int {
	if off > len(source) {
		off = len(source)
	}
	for off > 0 && source[off-1] != '\n' {
		off--
	}
	return off
}

func startsBlockquoteLine(src string, off int) bool {
	rest := src[off:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return strings.HasPrefix(strings.TrimLeft(rest, " \t"), ">")
}

// anchorID derives a stable id from the offset and a short hash of the block
// head, so two independent injections of identical text agree structurally.
func anchorID(src string, off int) string {
	end := off + idHashSpan
	if end > len(src) {
		end = len(src)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(src[off:end]))
	return fmt.Sprintf("tf-%d-%08x", off, h.Sum32())
}

func lineColumn(src string, off int) (line, col int) {
	for _, ch := range src[:off] {
		if ch == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return line, col
}

// insertMarkers builds the annotated text. Anchors are inserted in source
// order; each marker is a complete line placed at a line start, which keeps
// StripMarkers an exact inverse.
func insertMarkers(src string, anchors []Anchor) string {
	var b strings.Builder
	b.Grow(len(src) + len(anchors)*(len(markerPrefix)+len(markerSuffix)+24))
	prev := 0
	for _, a := range anchors {
		b.WriteString(src[prev:a.SourceOffset])
		b.WriteString(markerPrefix)
		b.WriteString(a.ID)
		b.WriteString(markerSuffix)
		b.WriteByte('\n')
		prev = a.SourceOffset
	}
	b.WriteString(src[prev:])
	return b.String()
}
