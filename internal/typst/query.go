package typst

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/firstbrett/tideflow-md-to-pdf/internal/sourcemap"
)

// anchorPrefix filters query entries down to our injected labels.
const anchorPrefix = "tf-"

// ParseQueryReport extracts anchor locations from `typst query` JSON output.
//
// The output shape varies by Typst version and query selector, so the parser
// searches each entry for a label and for any location-like object instead of
// binding to one schema: `{ location: { page, position: { x, y } } }`, bare
// page/position fields, `point`/`pos` variants, and `rect` arrays are all
// accepted. Entries without both a tf- label and a location are skipped.
func ParseQueryReport(data []byte) map[string]sourcemap.Location {
	report := map[string]sourcemap.Location{}
	if !gjson.ValidBytes(data) {
		return report
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return report
	}
	root.ForEach(func(_, entry gjson.Result) bool {
		label := findLabel(entry)
		if !strings.HasPrefix(label, anchorPrefix) {
			return true
		}
		if loc, ok := findLocation(entry); ok {
			report[label] = loc
		}
		return true
	})
	return report
}

// findLabel looks for a label string on the entry or nested under the keys
// Typst has used across versions.
func findLabel(v gjson.Result) string {
	if v.IsArray() {
		label := ""
		v.ForEach(func(_, item gjson.Result) bool {
			label = findLabel(item)
			return label == ""
		})
		return label
	}
	if !v.IsObject() {
		return ""
	}
	if l := v.Get("label"); l.Type == gjson.String {
		return strings.Trim(l.String(), "<>")
	}
	for _, key := range []string{"value", "target", "node", "fields"} {
		if child := v.Get(key); child.Exists() {
			if label := findLabel(child); label != "" {
				return label
			}
		}
	}
	return ""
}

// findLocation searches the entry recursively for a location-like object.
func findLocation(v gjson.Result) (sourcemap.Location, bool) {
	if v.IsArray() {
		var found sourcemap.Location
		ok := false
		v.ForEach(func(_, item gjson.Result) bool {
			found, ok = findLocation(item)
			return !ok
		})
		return found, ok
	}
	if !v.IsObject() {
		return sourcemap.Location{}, false
	}

	if loc := v.Get("location"); loc.Exists() {
		if res, ok := extractPageXY(loc); ok {
			return res, ok
		}
	}
	if res, ok := extractPageXY(v); ok {
		return res, ok
	}

	var found sourcemap.Location
	ok := false
	v.ForEach(func(_, child gjson.Result) bool {
		found, ok = findLocation(child)
		return !ok
	})
	return found, ok
}

// extractPageXY reads (page, x, y) from one object. Page defaults to 1 when
// missing; numbers serialized as strings are accepted.
func extractPageXY(v gjson.Result) (sourcemap.Location, bool) {
	if !v.IsObject() {
		return sourcemap.Location{}, false
	}

	page := 1
	if p := v.Get("page"); p.Exists() {
		if n := int(p.Int()); n > 0 {
			page = n
		}
	}

	for _, key := range []string{"position", "point", "pos"} {
		pos := v.Get(key)
		if !pos.IsObject() {
			continue
		}
		return sourcemap.Location{
			Page: page,
			X:    pos.Get("x").Float(),
			Y:    pos.Get("y").Float(),
		}, true
	}

	// rect variant: [x0, y0, x1, y1]; the top-left corner is the baseline.
	if rect := v.Get("rect"); rect.IsArray() {
		coords := rect.Array()
		if len(coords) >= 2 {
			return sourcemap.Location{
				Page: page,
				X:    coords[0].Float(),
				Y:    coords[1].Float(),
			}, true
		}
	}

	return sourcemap.Location{}, false
}
