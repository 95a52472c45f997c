// Package tideflow renders Markdown documents to PDF through the Typst
// CLI and keeps an editor and a preview scroll-locked while the user
// types.
//
// The pipeline injects invisible position anchors into the source text,
// compiles the annotated document in an isolated working area, queries
// the compiler for each anchor's rendered location, and publishes the
// artifact path together with a two-way position map in one atomic step.
// Edits are debounced and coalesced; a newer edit preempts the attempt
// it makes stale.
//
// Basic usage:
//
//	s, err := tideflow.NewSession(tideflow.WithDebounce(200 * time.Millisecond))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	s.Edit(markdownText)
//	for u := range s.Updates() {
//	    if u.State == tideflow.StateOK {
//	        open(u.ArtifactPath)
//	    }
//	}
//
// SyncEngine consumes the published position maps to translate scroll
// positions between source byte offsets and rendered page coordinates.
package tideflow
