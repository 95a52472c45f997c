package tideflow

import "sync"

// EditorPane is the editor-side scroll surface driven by sync.
type EditorPane interface {
	// ScrollToOffset brings the given source byte offset into view.
	ScrollToOffset(offset int)
}

// PreviewPane is the preview-side scroll surface driven by sync.
type PreviewPane interface {
	// ScrollToLocation brings the given rendered location into view.
	ScrollToLocation(loc RenderedLocation)
}

// SyncMode says which pane, if any, currently drives scrolling.
type SyncMode int

const (
	// SyncIdle means neither pane is driving.
	SyncIdle SyncMode = iota
	// SyncEditorDrives means editor scrolls propagate to the preview.
	SyncEditorDrives
	// SyncPreviewDrives means preview scrolls propagate to the editor.
	SyncPreviewDrives
)

func (m SyncMode) String() string {
	switch m {
	case SyncIdle:
		return "idle"
	case SyncEditorDrives:
		return "editor-drives"
	case SyncPreviewDrives:
		return "preview-drives"
	default:
		return "unknown"
	}
}

// SyncEngine keeps an editor pane and a preview pane scroll-locked
// through a position map. Programmatic scrolls it issues itself are
// counted and the echoes suppressed, so the two panes never feed back
// into each other.
//
// The engine holds no goroutines; callers invoke it from their own
// event handlers. Methods are safe for concurrent use. Pane callbacks
// run outside the engine's lock.
type SyncEngine struct {
	editor  EditorPane
	preview PreviewPane

	mu           sync.Mutex
	pm           *PositionMap
	mode         SyncMode
	editorGuard  int
	previewGuard int
	lastOffset   int
	hasOffset    bool
}

// NewSyncEngine wires the two panes. Either pane may be nil; sync toward
// a nil pane is dropped.
func NewSyncEngine(editor EditorPane, preview PreviewPane) *SyncEngine {
	return &SyncEngine{editor: editor, preview: preview}
}

// Mode reports which pane currently drives scrolling.
func (e *SyncEngine) Mode() SyncMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// MapPublished installs a freshly published position map and re-aligns
// the preview to the editor's last known position, since a new render
// may have moved content across pages.
func (e *SyncEngine) MapPublished(pm *PositionMap) {
	e.mu.Lock()
	e.pm = pm
	offset, ok := e.lastOffset, e.hasOffset
	var target RenderedLocation
	send := false
	if ok && pm != nil && e.preview != nil {
		if loc, found := pm.Resolve(pm.NearestAnchor(offset)); found {
			target = loc
			send = true
			e.previewGuard++
		}
	}
	e.mu.Unlock()

	if send {
		e.preview.ScrollToLocation(target)
	}
}

// EditorScrolled handles a user scroll in the editor to the given source
// byte offset. Echoes of the engine's own editor scrolls are consumed
// here and go no further.
func (e *SyncEngine) EditorScrolled(offset int) {
	e.mu.Lock()
	if e.editorGuard > 0 {
		e.editorGuard--
		e.mu.Unlock()
		return
	}
	if e.mode == SyncPreviewDrives {
		e.mu.Unlock()
		return
	}
	e.mode = SyncEditorDrives
	e.lastOffset = offset
	e.hasOffset = true

	pm := e.pm
	var target RenderedLocation
	send := false
	if pm != nil && e.preview != nil {
		if id := pm.NearestAnchor(offset); id != "" {
			if loc, ok := pm.Resolve(id); ok {
				target = loc
				send = true
				e.previewGuard++
			}
		}
	}
	e.mu.Unlock()

	if send {
		e.preview.ScrollToLocation(target)
	}
}

// PreviewScrolled handles a user scroll in the preview to the given
// rendered location.
func (e *SyncEngine) PreviewScrolled(loc RenderedLocation) {
	e.mu.Lock()
	if e.previewGuard > 0 {
		e.previewGuard--
		e.mu.Unlock()
		return
	}
	if e.mode == SyncEditorDrives {
		e.mu.Unlock()
		return
	}
	e.mode = SyncPreviewDrives

	pm := e.pm
	target := 0
	send := false
	if pm != nil && e.editor != nil {
		if id := pm.NearestRendered(loc); id != "" {
			if off, ok := pm.OffsetOf(id); ok {
				target = off
				send = true
				e.editorGuard++
				e.lastOffset = off
				e.hasOffset = true
			}
		}
	}
	e.mu.Unlock()

	if send {
		e.editor.ScrollToOffset(target)
	}
}

// Settle releases the driving pane. Callers invoke it when the user's
// scroll gesture ends, typically after a short quiet period.
func (e *SyncEngine) Settle() {
	e.mu.Lock()
	e.mode = SyncIdle
	e.mu.Unlock()
}
