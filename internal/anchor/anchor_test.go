package anchor

import (
	"reflect"
	"strings"
	"testing"
)

func offsets(a *Annotated) []int {
	out := make([]int, len(a.Anchors))
	for i, an := range a.Anchors {
		out[i] = an.SourceOffset
	}
	return out
}

func TestInject_ParagraphOffsets(t *testing.T) {
	t.Parallel()

	got := Inject("para1\n\npara2\n\npara3")

	want := []int{0, 7, 14}
	if !reflect.DeepEqual(offsets(got), want) {
		t.Fatalf("anchor offsets = %v, want %v", offsets(got), want)
	}
	if got.Anchors[0].ID != DocStartID {
		t.Errorf("first anchor id = %q, want %q", got.Anchors[0].ID, DocStartID)
	}
	if got.Anchors[1].Line != 2 || got.Anchors[1].Column != 0 {
		t.Errorf("second anchor line/column = %d/%d, want 2/0",
			got.Anchors[1].Line, got.Anchors[1].Column)
	}
}

func TestInject_Idempotent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{name: "paragraphs", text: "para1\n\npara2\n\npara3"},
		{name: "heading and list", text: "# Title\n\n- one\n- two\n\ntail"},
		{name: "fenced code", text: "intro\n\n```go\ncode()\n```\n"},
		{name: "empty", text: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			first := Inject(tt.text)
			second := Inject(first.Text)

			if !reflect.DeepEqual(offsets(first), offsets(second)) {
				t.Errorf("re-injection drifted: %v vs %v", offsets(first), offsets(second))
			}
			if second.Source != tt.text {
				t.Errorf("re-injection source = %q, want %q", second.Source, tt.text)
			}
		})
	}
}

func TestInject_Deterministic(t *testing.T) {
	t.Parallel()

	text := "# Title\n\nfirst paragraph\n\nsecond paragraph\n"
	a := Inject(text)
	b := Inject(text)

	if !reflect.DeepEqual(a.Anchors, b.Anchors) {
		t.Errorf("independent injections disagree:\n%v\n%v", a.Anchors, b.Anchors)
	}
	if a.Text != b.Text {
		t.Error("independent injections produced different annotated text")
	}
}

func TestInject_HeadingKind(t *testing.T) {
	t.Parallel()

	got := Inject("intro\n\n# Section\n\nbody")

	var heading *Anchor
	for i := range got.Anchors {
		if got.Anchors[i].Kind == KindHeading {
			heading = &got.Anchors[i]
		}
	}
	if heading == nil {
		t.Fatal("no heading anchor found")
	}
	if heading.SourceOffset != 7 {
		t.Errorf("heading anchor offset = %d, want 7", heading.SourceOffset)
	}
}

func TestInject_SkipsBlockquotes(t *testing.T) {
	t.Parallel()

	text := "para\n\n> quoted line\n> continues\n\nafter"
	got := Inject(text)

	quoteOffset := strings.Index(text, ">")
	afterOffset := strings.Index(text, "after")

	for _, a := range got.Anchors {
		if a.SourceOffset == quoteOffset {
			t.Errorf("anchor injected at blockquote offset %d", quoteOffset)
		}
	}
	found := false
	for _, a := range got.Anchors {
		if a.SourceOffset == afterOffset {
			found = true
		}
	}
	if !found {
		t.Errorf("paragraph after blockquote (offset %d) not anchored: %v", afterOffset, offsets(got))
	}
}

func TestInject_SkipsTableInterior(t *testing.T) {
	t.Parallel()

	text := "| a | b |\n|---|---|\n| 1 | 2 |\n"
	got := Inject(text)

	// Only the synthetic document-start anchor; markers between table rows
	// would break the table.
	if !reflect.DeepEqual(offsets(got), []int{0}) {
		t.Errorf("anchor offsets = %v, want [0]", offsets(got))
	}
}

func TestInject_FencedCodeAnchoredAtFence(t *testing.T) {
	t.Parallel()

	text := "intro\n\n```go\ncode()\n```\n"
	got := Inject(text)

	fence := strings.Index(text, "```go")
	found := false
	for _, a := range got.Anchors {
		if a.SourceOffset == fence {
			found = true
		}
		if a.SourceOffset > fence && a.SourceOffset < strings.LastIndex(text, "```") {
			t.Errorf("anchor at offset %d would land inside the code block", a.SourceOffset)
		}
	}
	if !found {
		t.Errorf("opening fence (offset %d) not anchored: %v", fence, offsets(got))
	}
}

func TestInject_ExplicitMarker(t *testing.T) {
	t.Parallel()

	text := "para\n\n" + ExplicitMarker + "\nmore text"
	got := Inject(text)

	var explicit *Anchor
	for i := range got.Anchors {
		if got.Anchors[i].Kind == KindExplicit {
			explicit = &got.Anchors[i]
		}
	}
	if explicit == nil {
		t.Fatalf("no explicit anchor found: %+v", got.Anchors)
	}
	if explicit.SourceOffset != 6 {
		t.Errorf("explicit anchor offset = %d, want 6", explicit.SourceOffset)
	}
}

func TestInject_PreservesVisibleContent(t *testing.T) {
	t.Parallel()

	text := "# Title\n\nsome *body* text\n\n- item one\n- item two\n"
	got := Inject(text)

	if StripMarkers(got.Text) != text {
		t.Errorf("stripping markers did not restore source:\n%q\nwant\n%q",
			StripMarkers(got.Text), text)
	}
	if n := strings.Count(got.Text, markerPrefix); n != len(got.Anchors) {
		t.Errorf("annotated text has %d markers, want %d", n, len(got.Anchors))
	}
}

func TestInject_EmptyDocument(t *testing.T) {
	t.Parallel()

	got := Inject("")
	if len(got.Anchors) != 1 || got.Anchors[0].ID != DocStartID {
		t.Fatalf("empty document anchors = %+v, want single %s", got.Anchors, DocStartID)
	}
}

func TestInject_OrderedAndUnique(t *testing.T) {
	t.Parallel()

	text := "alpha\n\n## beta\n\n- gamma\n- delta\n\n```\nraw\n```\n\nomega\n"
	got := Inject(text)

	seen := map[string]bool{}
	prev := -1
	for _, a := range got.Anchors {
		if a.SourceOffset <= prev {
			t.Errorf("anchor offsets not strictly increasing: %v", offsets(got))
			break
		}
		prev = a.SourceOffset
		if seen[a.ID] {
			t.Errorf("duplicate anchor id %q", a.ID)
		}
		seen[a.ID] = true
	}
}
