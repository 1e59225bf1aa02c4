// Package syncengine reconciles a local directory against a remote one and
// uploads what the remote is missing, once or on a timer.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	pkgerrors "github.com/joe/gosync/pkg/errors"
	"github.com/joe/gosync/pkg/fileops"
	"github.com/joe/gosync/pkg/filesystem"
)

// Exported constants.
const (
	// DefaultInterval is the auto loop sleep when settings carry none.
	DefaultInterval = 300 * time.Second
	// LogSampleLimit is the maximum number of file names listed in one message.
	LogSampleLimit = 10
	// ProgressThrottle is the minimum gap between TransferProgress events for one file.
	ProgressThrottle = 200 * time.Millisecond
	// DefaultLocalDirPermissions is used when the local root has to be created.
	DefaultLocalDirPermissions = 0o750
)

// Exported variables.
var (
	ErrAlreadyRunning = errors.New("auto sync already running")
	ErrPassInProgress = errors.New("sync pass already in progress")
)

// SyncSettings are the user's sync preferences. They are read at the start of
// every pass.
type SyncSettings struct {
	LocalPath string
	AutoSync  bool
	Interval  time.Duration
	Exclude   []string
	// Listing is ListingModeCommand or ListingModeSFTP.
	Listing string
}

// SettingsSource supplies SyncSettings.
type SettingsSource interface {
	SyncSettings() (SyncSettings, error)
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func() (SyncSettings, error)

// SyncSettings implements SettingsSource.
func (f SettingsFunc) SyncSettings() (SyncSettings, error) {
	return f()
}

// Connector hands out a live session. *filesystem.Manager implements it.
type Connector interface {
	EnsureConnected(ctx context.Context) (*filesystem.ActiveSession, error)
	Disconnect()
}

// Engine runs sync passes. At most one pass executes at a time; requests that
// arrive while a pass is running are rejected, not queued.
type Engine struct {
	Local        filesystem.FileSystem
	TimeProvider TimeProvider
	Metrics      *TransferMetrics
	// Lister overrides the listing mode named in the settings.
	Lister Lister
	Logger *slog.Logger

	connector Connector
	settings  SettingsSource
	enricher  pkgerrors.Enricher
	emitter   EventEmitter
	pending   *PendingSet

	// sent holds lower-cased remote names confirmed present by the last pass.
	// Only the pass that holds the running slot touches it.
	sent mapset.Set[string]

	state atomic.Int32

	mu       sync.Mutex
	running  bool
	passDone chan struct{}
	stopCh   chan struct{}
	loopDone chan struct{}
}

// NewEngine creates an Engine.
func NewEngine(local filesystem.FileSystem, connector Connector, settings SettingsSource) *Engine {
	return &Engine{
		Local:        local,
		TimeProvider: &RealTimeProvider{},
		Metrics:      &TransferMetrics{},
		Logger:       slog.Default(),
		connector:    connector,
		settings:     settings,
		enricher:     pkgerrors.NewEnricher(),
		pending:      NewPendingSet(),
		sent:         mapset.NewThreadUnsafeSet[string](),
		stopCh:       make(chan struct{}),
	}
}

// SetEventEmitter sets the event emitter.
// The emitter is optional - if nil, no events will be emitted.
func (e *Engine) SetEventEmitter(emitter EventEmitter) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.emitter = emitter
}

// GetEventEmitter returns the current event emitter.
func (e *Engine) GetEventEmitter() EventEmitter {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.emitter
}

// Pending returns the set the watcher feeds.
func (e *Engine) Pending() *PendingSet {
	return e.pending
}

// State returns the stage of the running pass, or StateIdle.
func (e *Engine) State() PassState {
	return PassState(e.state.Load())
}

// Running reports whether a pass is executing.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

// ReportConnection forwards a connection status change to the emitter. It is
// meant to be wired as the connection manager's status callback.
func (e *Engine) ReportConnection(success bool, message string) {
	e.emit(ConnectionStatus{Success: success, Message: message})
}

// SyncOnce runs one pass on the calling goroutine and returns its summary.
// It returns ErrPassInProgress without doing anything if a pass is already running.
// Failures inside the pass are reported in the summary, never as an error.
func (e *Engine) SyncOnce(ctx context.Context) (*SyncComplete, error) {
	stop, ok := e.acquire()
	if !ok {
		e.logger().Info("sync request ignored, a pass is already running")

		return nil, ErrPassInProgress
	}
	defer e.release()

	result := e.runPass(ctx, stop)

	return &result, nil
}

// RequestPass starts a pass in the background unless one is running. It reports
// whether a pass was started.
func (e *Engine) RequestPass(ctx context.Context) bool {
	stop, ok := e.acquire()
	if !ok {
		e.logger().Debug("pass request dropped, a pass is already running")

		return false
	}

	go func() {
		defer e.release()

		e.runPass(ctx, stop)
	}()

	return true
}

// StartAuto begins the auto loop: run a pass, sleep, repeat until Stop or ctx
// is done. A zero interval means "re-read the interval from settings after each
// pass". Failed passes do not end the loop.
func (e *Engine) StartAuto(ctx context.Context, interval time.Duration) error {
	e.mu.Lock()
	if e.loopDone != nil {
		e.mu.Unlock()

		return ErrAlreadyRunning
	}

	done := make(chan struct{})
	e.loopDone = done
	stop := e.stopCh
	e.mu.Unlock()

	go e.autoLoop(ctx, interval, stop, done)

	return nil
}

// Stop ends the auto loop and blocks until the running pass, if any, finishes.
// A pass in flight stops at the next stage or file boundary. Stop is idempotent
// and the engine can be started again afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	select {
	case <-e.stopCh:
	default:
		close(e.stopCh)
	}

	loopDone, passDone := e.loopDone, e.passDone
	e.mu.Unlock()

	if loopDone != nil {
		<-loopDone
	}

	if passDone != nil {
		<-passDone
	}

	e.mu.Lock()
	select {
	case <-e.stopCh:
		e.stopCh = make(chan struct{})
	default:
	}
	e.mu.Unlock()
}

func (e *Engine) autoLoop(ctx context.Context, interval time.Duration, stop <-chan struct{}, done chan struct{}) {
	defer func() {
		e.mu.Lock()
		if e.loopDone == done {
			e.loopDone = nil
		}
		e.mu.Unlock()
		close(done)
	}()

	logger := e.logger().With("component", "auto-sync")
	logger.Info("auto sync started", "interval", interval)

	for {
		if stopRequested(ctx, stop) {
			logger.Info("auto sync stopped")

			return
		}

		if _, err := e.SyncOnce(ctx); err != nil {
			logger.Info("skipping scheduled pass", "reason", err)
		}

		if stopRequested(ctx, stop) {
			logger.Info("auto sync stopped")

			return
		}

		wait := e.loopInterval(interval)
		logger.Debug("sleeping until next pass", "wait", wait)

		timer := e.TimeProvider.NewTimer(wait)
		select {
		case <-stop:
			timer.Stop()
			logger.Info("auto sync stopped")

			return
		case <-ctx.Done():
			timer.Stop()
			logger.Info("auto sync stopped", "reason", ctx.Err())

			return
		case <-timer.C():
		}
	}
}

func (e *Engine) loopInterval(interval time.Duration) time.Duration {
	if interval > 0 {
		return interval
	}

	settings, err := e.settings.SyncSettings()
	if err != nil || settings.Interval <= 0 {
		return DefaultInterval
	}

	return settings.Interval
}

// acquire claims the single pass slot.
func (e *Engine) acquire() (<-chan struct{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil, false
	}

	e.running = true
	e.passDone = make(chan struct{})

	return e.stopCh, true
}

func (e *Engine) release() {
	e.mu.Lock()
	done := e.passDone
	e.running = false
	e.passDone = nil
	e.mu.Unlock()

	e.state.Store(int32(StateIdle))
	close(done)
}

// pass carries the state of one run through the stages.
type pass struct {
	engine   *Engine
	ctx      context.Context //nolint:containedctx // Scoped to a single pass
	stop     <-chan struct{}
	logger   *slog.Logger
	settings SyncSettings
	result   SyncComplete
}

func (e *Engine) runPass(ctx context.Context, stop <-chan struct{}) (result SyncComplete) {
	p := &pass{
		engine: e,
		ctx:    ctx,
		stop:   stop,
		logger: e.logger().With("component", "sync"),
		result: SyncComplete{Started: e.TimeProvider.Now()},
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("sync pass panicked", "panic", r)
			p.fail(fmt.Errorf("internal error: %v", r)) //nolint:err113 // Wraps a recovered panic value
		}

		p.result.Duration = e.TimeProvider.Now().Sub(p.result.Started)
		e.state.Store(int32(StateIdle))
		e.emit(p.result)
		result = p.result
	}()

	p.run()

	return p.result
}

func (p *pass) run() {
	settings, err := p.engine.settings.SyncSettings()
	if err != nil {
		p.fail(err)

		return
	}

	if settings.LocalPath == "" {
		p.fail(pkgerrors.MissingSetting("sync.local_path"))

		return
	}

	p.settings = settings

	err = p.engine.Local.MkdirAll(settings.LocalPath, DefaultLocalDirPermissions)
	if err != nil {
		p.fail(fmt.Errorf("failed to create local folder %s: %w", settings.LocalPath, err))

		return
	}

	if p.stopped() {
		return
	}

	p.progress(StateConnecting, "Connecting to SSH...")

	session, err := p.engine.connector.EnsureConnected(p.ctx)
	if err != nil {
		p.fail(err)

		return
	}

	if p.stopped() {
		return
	}

	p.progress(StateListing, "Getting file lists...")

	localFiles, remoteFiles, err := p.list(session)
	if err != nil {
		p.fail(err)

		return
	}

	if p.stopped() {
		return
	}

	p.progress(StateDiffing, "Comparing files...")

	toSend := p.diff(localFiles, remoteFiles)
	if len(toSend) == 0 {
		p.prunePending()
		p.finish(0, nil)

		return
	}

	if p.stopped() {
		return
	}

	sizes := make(map[string]int64, len(localFiles))
	for _, file := range localFiles {
		sizes[file.RelativePath] = file.Size
	}

	p.progress(StateTransferring, "Transferring files...")
	p.transfer(session, toSend, sizes)
	p.prunePending()
}

func (p *pass) list(session *filesystem.ActiveSession) ([]filesystem.FileInfo, []string, error) {
	localFiles, err := LocalFiles(p.engine.Local, p.settings.LocalPath, NewExcludeFilter(p.settings.Exclude))
	if err != nil {
		return nil, nil, err
	}

	remoteFiles, err := p.engine.listerFor(p.settings.Listing).List(p.ctx, session, session.Credentials.RemoteBasePath)
	if err != nil {
		return nil, nil, err
	}

	localPaths := relativePaths(localFiles)
	p.logger.Info("file lists received", "local", len(localPaths), "remote", len(remoteFiles))
	p.engine.emit(FileListUpdated{Local: localPaths, Remote: remoteFiles})

	return localFiles, remoteFiles, nil
}

func (p *pass) diff(localFiles []filesystem.FileInfo, remoteFiles []string) []string {
	// The listing is authoritative; the cache only keeps what it confirms.
	sent := p.engine.sent
	sent.Clear()

	for _, rel := range remoteFiles {
		sent.Add(strings.ToLower(rel))
	}

	toSend := Diff(relativePaths(localFiles), remoteFiles)

	for i, rel := range toSend {
		if i < LogSampleLimit {
			p.engine.emit(SyncProgress{State: StateDiffing, Message: "Ready to send: " + rel})
		}

		p.logger.Debug("ready to send", "file", rel)
	}

	if len(toSend) > 0 {
		p.engine.emit(SyncProgress{
			State:   StateDiffing,
			Message: fmt.Sprintf("%d files will be sent: %s", len(toSend), sampleList(toSend)),
		})
	}

	return toSend
}

func (p *pass) transfer(session *filesystem.ActiveSession, toSend []string, sizes map[string]int64) {
	engine := p.engine
	transfer := fileops.NewTransfer(engine.Local, session, session.Credentials.RemoteBasePath)
	transfer.Logger = p.logger

	var lastProgress time.Time

	transfer.OnProgress = func(sent, total int64, file string) {
		now := engine.TimeProvider.Now()
		if sent < total && now.Sub(lastProgress) < ProgressThrottle {
			return
		}

		lastProgress = now
		engine.emit(TransferProgress{Path: file, Message: "Uploading " + file, BytesSent: sent, BytesTotal: total})
	}

	var (
		transferred int
		failures    []FileFailure
	)

	for _, rel := range toSend {
		if p.stopped() {
			p.result.Failures = failures
			p.result.TransferredCount = transferred
			p.result.Message = fmt.Sprintf("Sync stopped. Sent %d files.", transferred)

			return
		}

		engine.emit(TransferProgress{Path: rel, Message: "Uploading " + rel, BytesTotal: sizes[rel]})
		lastProgress = time.Time{}

		started := engine.TimeProvider.Now()
		localFile := filepath.Join(p.settings.LocalPath, filepath.FromSlash(rel))

		_, err := transfer.Upload(localFile, rel)
		if err != nil {
			enriched := engine.enricher.Enrich(err, rel)
			p.logger.Warn("upload failed", "file", rel, "error", err)
			p.logSuggestions(enriched)

			failures = append(failures, FileFailure{Path: rel, Reason: failureReason(err)})
			engine.emit(TransferComplete{Path: rel, Message: fmt.Sprintf("Error uploading %s: %v", rel, err)})

			continue
		}

		elapsed := engine.TimeProvider.Now().Sub(started)
		engine.Metrics.Record(RateSample{Timestamp: started, BytesTransferred: sizes[rel], Elapsed: elapsed})
		engine.sent.Add(remoteKey(rel))

		transferred++
		p.result.Bytes += sizes[rel]

		engine.emit(TransferComplete{
			Path:    rel,
			Success: true,
			Message: "Uploaded " + rel,
			Bytes:   sizes[rel],
			Rate:    engine.Metrics.Rate(),
		})
	}

	p.finish(transferred, failures)
}

// finish fills in the summary of a pass that got through all its stages.
func (p *pass) finish(transferred int, failures []FileFailure) {
	p.result.TransferredCount = transferred
	p.result.Failures = failures

	switch {
	case len(failures) == 0 && transferred == 0:
		p.result.Outcome = OutcomeSuccess
		p.result.Success = true
		p.result.Message = "No new files to sync"
	case len(failures) == 0:
		p.result.Outcome = OutcomeSuccess
		p.result.Success = true
		p.result.Message = fmt.Sprintf("Sync completed successfully. Sent %d files.", transferred)
	case transferred == 0:
		p.result.Outcome = OutcomeFailure
		p.result.Message = fmt.Sprintf("Sync failed: %d files could not be sent: %s", len(failures), failureList(failures))
	default:
		p.result.Outcome = OutcomePartial
		p.result.Message = fmt.Sprintf("Sync partially completed. Sent %d files, %d failed: %s",
			transferred, len(failures), failureList(failures))
	}

	p.logger.Info(p.result.Message, "outcome", p.result.Outcome, "transferred", transferred, "failed", len(failures))
}

// fail records a pass-level failure.
func (p *pass) fail(err error) {
	enriched := p.engine.enricher.Enrich(err, "")

	p.result.Outcome = OutcomeFailure
	p.result.Success = false
	p.result.Message = fmt.Sprintf("Sync failed: %v", err)

	var actionable pkgerrors.ActionableError
	if errors.As(enriched, &actionable) {
		p.result.Suggestions = actionable.Suggestions()
	}

	p.logger.Error("sync failed", "error", err)
	p.logSuggestions(enriched)
}

// stopped checks for a stop request and, if there is one, records the pass as stopped.
func (p *pass) stopped() bool {
	if !stopRequested(p.ctx, p.stop) {
		return false
	}

	p.result.Outcome = OutcomeStopped
	p.result.Success = false

	if p.result.Message == "" {
		p.result.Message = fmt.Sprintf("Sync stopped. Sent %d files.", p.result.TransferredCount)
	}

	p.logger.Info("sync pass stopped", "state", p.engine.State())

	return true
}

func (p *pass) progress(state PassState, message string) {
	p.engine.state.Store(int32(state))
	p.logger.Debug(message, "state", state)
	p.engine.emit(SyncProgress{State: state, Message: message})
}

// prunePending drops watcher entries that the remote now has or that no longer
// exist locally. Entries whose upload failed stay for the next pass.
func (p *pass) prunePending() {
	pending := p.engine.pending
	done := make([]string, 0)

	for _, abs := range pending.Snapshot() {
		rel, err := filepath.Rel(p.settings.LocalPath, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			done = append(done, abs)

			continue
		}

		if p.engine.sent.Contains(remoteKey(filepath.ToSlash(rel))) {
			done = append(done, abs)

			continue
		}

		if _, err := p.engine.Local.Stat(abs); errors.Is(err, fs.ErrNotExist) {
			done = append(done, abs)
		}
	}

	if len(done) > 0 {
		pending.Remove(done...)
		p.logger.Debug("pending files confirmed", "count", len(done), "remaining", pending.Len())
	}
}

func (p *pass) logSuggestions(err error) {
	var actionable pkgerrors.ActionableError
	if !errors.As(err, &actionable) {
		return
	}

	for _, suggestion := range actionable.Suggestions() {
		p.logger.Info("suggestion", "category", actionable.Category(), "hint", suggestion)
	}
}

func (e *Engine) listerFor(mode string) Lister {
	if e.Lister != nil {
		return e.Lister
	}

	if mode == ListingModeSFTP {
		return WalkLister{}
	}

	lister := NewCommandLister(e.Local)
	lister.Logger = e.logger()

	return lister
}

// emit sends an event if an emitter is configured.
func (e *Engine) emit(event Event) {
	if emitter := e.GetEventEmitter(); emitter != nil {
		emitter.Emit(event)
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}

	return slog.Default()
}

func stopRequested(ctx context.Context, stop <-chan struct{}) bool {
	if ctx.Err() != nil {
		return true
	}

	select {
	case <-stop:
		return true
	default:
		return false
	}
}

func failureReason(err error) string {
	var transferErr *pkgerrors.TransferError
	if errors.As(err, &transferErr) {
		return transferErr.Reason
	}

	return err.Error()
}

func failureList(failures []FileFailure) string {
	parts := make([]string, 0, min(len(failures), LogSampleLimit))

	for i, failure := range failures {
		if i == LogSampleLimit {
			parts = append(parts, fmt.Sprintf("and %d more", len(failures)-LogSampleLimit))

			break
		}

		parts = append(parts, fmt.Sprintf("%s (%s)", failure.Path, failure.Reason))
	}

	return strings.Join(parts, ", ")
}

func sampleList(paths []string) string {
	if len(paths) <= LogSampleLimit {
		return strings.Join(paths, ", ")
	}

	return strings.Join(paths[:LogSampleLimit], ", ") + fmt.Sprintf(", and %d more", len(paths)-LogSampleLimit)
}
