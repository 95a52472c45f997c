package tideflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/firstbrett/tideflow-md-to-pdf/internal/anchor"
	"github.com/firstbrett/tideflow-md-to-pdf/internal/fileutil"
	"github.com/firstbrett/tideflow-md-to-pdf/internal/typst"
	"github.com/firstbrett/tideflow-md-to-pdf/internal/workdir"
)

type sessionConfig struct {
	debounce     time.Duration
	timeout      time.Duration
	compilerPath string
	assetDir     string
	workRoot     string
	exportPPI    int
}

// Session owns the render pipeline for one document: it debounces edits,
// runs compile attempts in isolated working areas, preempts attempts made
// stale by newer edits, and publishes the artifact path and position map
// atomically on success.
//
// A Session starts its own event loop goroutine; call Close to stop it.
// All exported methods are safe for concurrent use.
type Session struct {
	cfg      sessionConfig
	compiler compiler

	edits   chan struct{}
	kicks   chan struct{}
	results chan attemptResult
	quit    chan struct{}
	done    chan struct{}

	updates chan StatusUpdate

	artifactDir string
	attempts    sync.WaitGroup

	mu          sync.RWMutex
	status      StatusUpdate
	posMap      *PositionMap
	latest      string
	hasSnapshot bool
	onPublish   func(*PositionMap)

	exportMu sync.Mutex

	closeOnce sync.Once
}

// attemptResult carries one attempt's outcome back to the event loop.
type attemptResult struct {
	gen     uint64
	anchors []anchor.Anchor
	report  *compileReport
	err     error
}

// NewSession creates a session and starts its event loop.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		cfg: sessionConfig{
			debounce:  DefaultDebounce,
			timeout:   DefaultTimeout,
			exportPPI: DefaultExportPPI,
		},
		edits:   make(chan struct{}, 1),
		kicks:   make(chan struct{}, 1),
		results: make(chan attemptResult),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		updates: make(chan StatusUpdate, 64),
		status:  StatusUpdate{State: StateIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.compiler == nil {
		s.compiler = newTypstCompiler(s.cfg.compilerPath)
	}
	dir, err := os.MkdirTemp("", "tideflow-artifacts-*")
	if err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	s.artifactDir = dir

	go s.loop()
	return s, nil
}

// Edit feeds a new full snapshot of the document text. The snapshot
// replaces any previously queued one; only the latest text ever compiles.
func (s *Session) Edit(text string) {
	if s.closed() {
		return
	}
	s.mu.Lock()
	s.latest = text
	s.hasSnapshot = true
	s.mu.Unlock()
	select {
	case s.edits <- struct{}{}:
	default:
	}
}

// RequestRender starts a compile attempt immediately, bypassing the
// debounce window. It is the retry path after an error and a no-op
// before the first Edit.
func (s *Session) RequestRender() {
	if s.closed() {
		return
	}
	select {
	case s.kicks <- struct{}{}:
	default:
	}
}

// Status returns the current render state snapshot.
func (s *Session) Status() StatusUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// CurrentMap returns the most recently published position map, or nil
// before the first successful compile.
func (s *Session) CurrentMap() *PositionMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.posMap
}

// Updates returns a channel of status snapshots. Slow consumers lose
// intermediate updates, never the ability to read the latest state via
// Status.
func (s *Session) Updates() <-chan StatusUpdate {
	return s.updates
}

// OnMapPublished registers a callback invoked after each successful
// publish with the new position map. Only one callback is kept.
func (s *Session) OnMapPublished(fn func(*PositionMap)) {
	s.mu.Lock()
	s.onPublish = fn
	s.mu.Unlock()
}

// Close stops the event loop, cancels any in-flight attempt, and removes
// session-owned artifact files. It is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
	s.attempts.Wait()
	if s.artifactDir != "" {
		if err := os.RemoveAll(s.artifactDir); err != nil {
			logf("close: remove artifact dir: %v", err)
		}
	}
	return nil
}

func (s *Session) closed() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// loop is the session's single event loop. It owns the debounce timer,
// the generation counter, and all status transitions, so publishes are
// serialized without further locking discipline.
func (s *Session) loop() {
	defer close(s.done)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	timerLive := false
	stopTimer := func() {
		if timerLive && !timer.Stop() {
			<-timer.C
		}
		timerLive = false
	}

	var gen uint64
	var cancelAttempt context.CancelFunc

	for {
		select {
		case <-s.edits:
			if s.cfg.debounce == 0 {
				stopTimer()
				gen++
				cancelAttempt = s.launch(gen, cancelAttempt)
				continue
			}
			stopTimer()
			timer.Reset(s.cfg.debounce)
			timerLive = true
			s.transition(func(u *StatusUpdate) { u.State = StatePending })

		case <-timer.C:
			timerLive = false
			gen++
			cancelAttempt = s.launch(gen, cancelAttempt)

		case <-s.kicks:
			stopTimer()
			gen++
			cancelAttempt = s.launch(gen, cancelAttempt)

		case res := <-s.results:
			s.publish(gen, res)

		case <-s.quit:
			stopTimer()
			if cancelAttempt != nil {
				cancelAttempt()
			}
			return
		}
	}
}

// launch preempts any in-flight attempt and starts a new one for the
// latest snapshot. Preemption does not wait: the old attempt's result is
// discarded by generation check when it eventually arrives.
func (s *Session) launch(gen uint64, prevCancel context.CancelFunc) context.CancelFunc {
	if prevCancel != nil {
		prevCancel()
	}
	s.mu.RLock()
	text := s.latest
	ok := s.hasSnapshot
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.timeout)
	s.transition(func(u *StatusUpdate) {
		u.Generation = gen
		u.State = StateRunning
	})
	s.attempts.Add(1)
	go s.attempt(ctx, cancel, gen, text)
	return cancel
}

// attempt runs one compile in a fresh working area. The artifact is moved
// into the session-owned artifact directory before the area is released,
// so its lifetime is decoupled from the working area's.
func (s *Session) attempt(ctx context.Context, cancel context.CancelFunc, gen uint64, text string) {
	defer s.attempts.Done()
	defer cancel()

	doc := anchor.Inject(text)

	area, err := workdir.New(s.cfg.workRoot)
	if err != nil {
		s.deliver(attemptResult{gen: gen, err: err})
		return
	}
	defer area.Release()

	if s.cfg.assetDir != "" {
		if err := area.MirrorAssets(s.cfg.assetDir); err != nil {
			s.deliver(attemptResult{gen: gen, err: err})
			return
		}
	}

	report, err := s.compiler.Compile(ctx, doc.Text, area)
	if err != nil {
		s.deliver(attemptResult{gen: gen, err: err})
		return
	}

	stable := filepath.Join(s.artifactDir, fmt.Sprintf("render-%d.pdf", gen))
	if err := fileutil.MoveFile(report.artifactPath, stable); err != nil {
		s.deliver(attemptResult{gen: gen, err: fmt.Errorf("store artifact: %w", err)})
		return
	}
	report.artifactPath = stable

	s.deliver(attemptResult{gen: gen, anchors: doc.Anchors, report: report})
}

func (s *Session) deliver(res attemptResult) {
	select {
	case s.results <- res:
	case <-s.quit:
		if res.report != nil {
			_ = os.Remove(res.report.artifactPath)
		}
	}
}

// publish applies one attempt's outcome. Results from superseded
// generations are dropped without any observable state change.
func (s *Session) publish(current uint64, res attemptResult) {
	if res.gen != current {
		if res.report != nil {
			_ = os.Remove(res.report.artifactPath)
		}
		return
	}

	if res.err != nil {
		switch {
		case errors.Is(res.err, context.Canceled):
			// Preempted or shut down mid-flight; not an error.
		case errors.Is(res.err, context.DeadlineExceeded):
			s.transition(func(u *StatusUpdate) {
				u.Generation = res.gen
				u.State = StateError
				u.Diagnostic = &Diagnostic{Message: timeoutMessage}
			})
		case errors.Is(res.err, typst.ErrBinaryNotFound):
			s.transition(func(u *StatusUpdate) {
				u.Generation = res.gen
				u.State = StateError
				u.Diagnostic = &Diagnostic{
					Message: ErrToolchainUnavailable.Error(),
					Detail:  res.err.Error(),
				}
			})
		default:
			diag := &Diagnostic{Message: res.err.Error()}
			var td *typst.Diagnostic
			if errors.As(res.err, &td) {
				diag = &Diagnostic{Message: td.Message, Detail: td.Detail}
			}
			s.transition(func(u *StatusUpdate) {
				u.Generation = res.gen
				u.State = StateError
				u.Diagnostic = diag
			})
		}
		return
	}

	pm, err := newPositionMap(res.anchors, res.report.locations)
	if err != nil {
		logf("publish: rejected position map: %v", err)
		_ = os.Remove(res.report.artifactPath)
		s.transition(func(u *StatusUpdate) {
			u.Generation = res.gen
			u.State = StateError
			u.Diagnostic = &Diagnostic{Message: "internal: " + err.Error()}
		})
		return
	}

	s.mu.Lock()
	prev := s.status.ArtifactPath
	s.status = StatusUpdate{
		Generation:   res.gen,
		State:        StateOK,
		ArtifactPath: res.report.artifactPath,
	}
	s.posMap = pm
	cb := s.onPublish
	u := s.status
	s.mu.Unlock()

	if prev != "" && prev != res.report.artifactPath {
		_ = os.Remove(prev)
	}
	s.notify(u)
	if cb != nil {
		cb(pm)
	}
}

// transition mutates the status under lock. State and Diagnostic change;
// ArtifactPath survives errors so viewers keep the last good render.
func (s *Session) transition(mutate func(*StatusUpdate)) {
	s.mu.Lock()
	u := s.status
	u.Diagnostic = nil
	mutate(&u)
	s.status = u
	s.mu.Unlock()
	s.notify(u)
}

func (s *Session) notify(u StatusUpdate) {
	select {
	case s.updates <- u:
	default:
	}
}

// Export renders the latest snapshot to PNG or SVG pages at dest.
// Multi-page documents produce one file per page: dest's stem gains a
// "-<page>" suffix when it contains no "{p}" placeholder. Exports are
// serialized with each other but run independently of live renders,
// each in its own working area. ppi <= 0 uses the session default and
// only applies to PNG.
func (s *Session) Export(ctx context.Context, dest, format string, ppi int) error {
	if s.closed() {
		return ErrSessionClosed
	}
	format = strings.ToLower(format)
	if format != "png" && format != "svg" {
		return fmt.Errorf("%w: %q", ErrExportFormat, format)
	}
	s.mu.RLock()
	text := s.latest
	ok := s.hasSnapshot
	s.mu.RUnlock()
	if !ok {
		return ErrNoSnapshot
	}
	if ppi <= 0 {
		ppi = s.cfg.exportPPI
	}
	// The runner resolves relative paths against the working area, which
	// is deleted when the export ends. Pin the destination to the caller's
	// working directory instead.
	dest, err := filepath.Abs(exportDest(dest, format))
	if err != nil {
		return fmt.Errorf("resolve export destination: %w", err)
	}

	s.exportMu.Lock()
	defer s.exportMu.Unlock()

	doc := anchor.Inject(text)

	area, err := workdir.New(s.cfg.workRoot)
	if err != nil {
		return err
	}
	defer area.Release()

	if s.cfg.assetDir != "" {
		if err := area.MirrorAssets(s.cfg.assetDir); err != nil {
			return err
		}
	}

	return s.compiler.Export(ctx, doc.Text, area, format, ppi, dest)
}

// exportDest normalizes the destination into Typst's page-template form.
// "{p}" expands to the page number; single-page documents still get the
// suffix, which keeps output names predictable.
func exportDest(dest, format string) string {
	if strings.Contains(dest, "{p}") {
		return dest
	}
	ext := filepath.Ext(dest)
	if !strings.EqualFold(strings.TrimPrefix(ext, "."), format) {
		ext = "." + format
		dest += ext
	}
	stem := strings.TrimSuffix(dest, ext)
	return stem + "-{p}" + ext
}
