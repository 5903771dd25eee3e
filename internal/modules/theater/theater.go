package theater

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/modules/library"
	"github.com/mikey-austin/homewatch/internal/ports"
)

var (
	// ErrNoMedia is returned when a load target holds nothing playable.
	ErrNoMedia = errors.New("no media to play")
	// ErrInvalidTarget is returned for unknown target kinds and bad subsets.
	ErrInvalidTarget = errors.New("invalid target")
)

// Target selects what LoadAndPlay installs in the queue.
type Target int

const (
	// TargetMedia queues the sibling media of the folder, anchored at the item.
	TargetMedia Target = iota
	// TargetNext appends one media without touching playback.
	TargetNext
	// TargetFolder queues every media of a folder.
	TargetFolder
	// TargetPlaylist queues the resolved elements of a playlist.
	TargetPlaylist
	// TargetSubset queues chosen media of a folder, by position.
	TargetSubset
)

// ParseTarget maps a request target name; "" is TargetMedia.
func ParseTarget(name string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "media":
		return TargetMedia, nil
	case "next":
		return TargetNext, nil
	case "folder":
		return TargetFolder, nil
	case "playlist":
		return TargetPlaylist, nil
	case "subset", "queue":
		return TargetSubset, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidTarget, name)
	}
}

// LoadRequest describes one LoadAndPlay call.
type LoadRequest struct {
	Path   string
	Target Target
	// Seek is applied once playback has begun, when positive.
	Seek int64
	// Subset lists folder media positions for TargetSubset.
	Subset []int
}

// History is the watch progress store.
type History interface {
	Get(mediaPath string) int64
	Set(mediaPath string, offsetMS int64) error
	All() map[string]int64
}

// Observer receives session events. Observers are called with the session
// lock held and must not call back into the Theater.
type Observer interface {
	OnTime(ms int64)
	OnState(state ports.EngineState)
	// OnMediaChanged carries the catalogue path of the new media, "" when none.
	OnMediaChanged(path string)
	OnSubsDelay(ms int64)
	OnQueueChanged()
}

// Config holds session settings.
type Config struct {
	Autoplay        bool
	Shuffle         bool
	Loop            bool
	AutoplayDelay   time.Duration
	ViewedThreshold time.Duration
	ViewedRatio     float64
	CastGeneration  library.CastGeneration
	Player          PlayerConfig
	// Rand seeds queue shuffles; nil uses a time seed.
	Rand rand.Source
}

// Theater is the playback session: catalogue, queue, history and engine under
// one lock.
type Theater struct {
	mu      sync.Mutex
	log     *zap.Logger
	cfg     Config
	index   *library.Index
	history History
	engine  ports.PlaybackEngine
	queue   *Queue
	player  *Player

	autoplay   bool
	advance    *time.Timer
	advanceGen uint64
	closed     bool

	observers map[uint64]Observer
	nextID    uint64
	engineObs ports.ObserverHandle
}

// New builds the session and subscribes to engine events.
func New(log *zap.Logger, cfg Config, index *library.Index, history History, engine ports.PlaybackEngine) *Theater {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Theater{
		log:       log,
		cfg:       cfg,
		index:     index,
		history:   history,
		engine:    engine,
		queue:     NewQueue(cfg.Shuffle, cfg.Loop, cfg.Rand),
		player:    newPlayer(log, engine, cfg.Player),
		autoplay:  cfg.Autoplay,
		observers: map[uint64]Observer{},
	}
	t.engineObs = engine.Observe(engineEvents{t: t})
	return t
}

// Index returns the catalogue.
func (t *Theater) Index() *library.Index {
	return t.index
}

// Observe registers o for session events.
func (t *Theater) Observe(o Observer) ports.ObserverHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.observers[t.nextID] = o
	return ports.NewObserverHandle(t.nextID)
}

// Unobserve removes a registered observer.
func (t *Theater) Unobserve(h ports.ObserverHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.observers, h.ID())
}

// Close stops autoplay and detaches from the engine. The engine itself is
// closed by its owner.
func (t *Theater) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.cancelAdvanceLocked()
	t.engine.Unobserve(t.engineObs)
}

// LoadAndPlay installs the requested target in the queue and plays its
// current media.
func (t *Theater) LoadAndPlay(req LoadRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch req.Target {
	case TargetMedia:
		m, ok := t.index.Media(req.Path)
		if !ok {
			return fmt.Errorf("media %s: %w", req.Path, library.ErrNotFound)
		}
		f, _ := t.index.Folder(m.FolderPath)
		t.queue.Replace(f.Medias, f.MediaIndex(m.Basename))
	case TargetNext:
		m, ok := t.index.Media(req.Path)
		if !ok {
			return fmt.Errorf("media %s: %w", req.Path, library.ErrNotFound)
		}
		t.queue.Append(m)
		t.notifyQueueLocked()
		return nil
	case TargetFolder:
		f, ok := t.index.Folder(req.Path)
		if !ok {
			return fmt.Errorf("folder %s: %w", req.Path, library.ErrNotFound)
		}
		if len(f.Medias) == 0 {
			return ErrNoMedia
		}
		t.queue.Replace(f.Medias, -1)
	case TargetPlaylist:
		pl, ok := t.index.Playlist(req.Path)
		if !ok {
			return fmt.Errorf("playlist %s: %w", req.Path, library.ErrNotFound)
		}
		items := t.index.Resolve(pl)
		if len(items) == 0 {
			return ErrNoMedia
		}
		t.queue.Replace(items, -1)
	case TargetSubset:
		f, ok := t.index.Folder(req.Path)
		if !ok {
			return fmt.Errorf("folder %s: %w", req.Path, library.ErrNotFound)
		}
		items := make([]*library.Media, 0, len(req.Subset))
		for _, i := range req.Subset {
			if i < 0 || i >= len(f.Medias) {
				return fmt.Errorf("%w: position %d", ErrInvalidTarget, i)
			}
			items = append(items, f.Medias[i])
		}
		if len(items) == 0 {
			return ErrNoMedia
		}
		t.queue.Replace(items, -1)
	default:
		return ErrInvalidTarget
	}

	t.notifyQueueLocked()
	return t.playCurrentLocked(req.Seek)
}

// Navigate moves forward or backward in the queue and plays the new current
// media. Boundaries are returned, not raised.
func (t *Theater) Navigate(forward bool) Move {
	t.mu.Lock()
	defer t.mu.Unlock()

	var move Move
	if forward {
		move = t.queue.Advance()
	} else {
		move = t.queue.Retreat()
	}
	if move != Moved {
		t.log.Debug("queue boundary", zap.Stringer("move", move))
		return move
	}
	t.notifyQueueLocked()
	t.playLogged()
	return move
}

// Jump plays the media at a queue position.
func (t *Theater) Jump(position int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.queue.Jump(position) {
		return false
	}
	t.notifyQueueLocked()
	t.playLogged()
	return true
}

func (t *Theater) playLogged() {
	if err := t.playCurrentLocked(0); err != nil {
		t.log.Warn("load failed", zap.Error(err))
	}
}

func (t *Theater) playCurrentLocked(seek int64) error {
	m, ok := t.queue.Current()
	if !ok {
		return ErrNoMedia
	}
	t.cancelAdvanceLocked()
	if err := t.player.load(m, seek); err != nil {
		return fmt.Errorf("load %s: %w", m.Path(), err)
	}
	t.log.Info("playing", zap.String("media", m.Path()), zap.Int64("seek_ms", seek))
	return nil
}

// SetAutoplay toggles advancing on end of media.
func (t *Theater) SetAutoplay(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.autoplay = enabled
	if !enabled {
		t.cancelAdvanceLocked()
	}
}

// Autoplay reports the autoplay flag.
func (t *Theater) Autoplay() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.autoplay
}

// SetShuffle reorders the queue.
func (t *Theater) SetShuffle(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue.SetShuffle(enabled)
	t.notifyQueueLocked()
}

// SetLoop toggles queue wrapping.
func (t *Theater) SetLoop(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue.SetLoop(enabled)
	t.notifyQueueLocked()
}

// Queue returns a copy of the queue state.
func (t *Theater) Queue() QueueSnapshot {
	return t.queue.Snapshot()
}

// TogglePause pauses or resumes.
func (t *Theater) TogglePause() {
	t.withPlayer(func(p *Player) { p.togglePause() })
}

// Play resumes playback.
func (t *Theater) Play() {
	t.withPlayer(func(p *Player) { p.play() })
}

// Stop stops playback.
func (t *Theater) Stop() {
	t.withPlayer(func(p *Player) { p.stop() })
}

// Replay reloads the current media and plays it from the start.
func (t *Theater) Replay() {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.player.Media()
	if m == nil {
		return
	}
	t.cancelAdvanceLocked()
	if err := t.player.load(m, 0); err != nil {
		t.log.Warn("reload failed", zap.String("media", m.Path()), zap.Error(err))
	}
}

// Seek moves to an absolute offset.
func (t *Theater) Seek(ms int64) {
	t.withPlayer(func(p *Player) { p.seek(ms) })
}

// FastForward skips ahead by the configured delta.
func (t *Theater) FastForward() {
	t.withPlayer(func(p *Player) { p.skip(t.cfg.Player.FastForward) })
}

// Rewind skips back by the configured delta.
func (t *Theater) Rewind() {
	t.withPlayer(func(p *Player) { p.skip(-t.cfg.Player.Rewind) })
}

// SetVolume sets the volume, clamped to 0-100.
func (t *Theater) SetVolume(volume int) {
	t.withPlayer(func(p *Player) { p.setVolume(volume) })
}

// SetAspectRatio sets "W:H"; "" resets.
func (t *Theater) SetAspectRatio(ratio string) {
	t.withPlayer(func(p *Player) { p.setAspectRatio(ratio) })
}

// SelectAudio selects an audio source of the current media; ok=false clears.
func (t *Theater) SelectAudio(index int, ok bool) {
	if !ok {
		index = -1
	}
	t.withPlayer(func(p *Player) { p.selectAudio(index) })
}

// SelectSubtitle selects a subtitle source of the current media; ok=false clears.
func (t *Theater) SelectSubtitle(index int, ok bool) {
	if !ok {
		index = -1
	}
	t.withPlayer(func(p *Player) { p.selectSubtitle(index) })
}

// SetSubsDelay sets the subtitle delay.
func (t *Theater) SetSubsDelay(ms int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setDelayLocked(ms)
}

// SubsLater delays subtitles by one step.
func (t *Theater) SubsLater() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setDelayLocked(t.player.delay + t.cfg.Player.SubsDelayStep.Milliseconds())
}

// SubsEarlier advances subtitles by one step.
func (t *Theater) SubsEarlier() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setDelayLocked(t.player.delay - t.cfg.Player.SubsDelayStep.Milliseconds())
}

// SubsReset clears the subtitle delay.
func (t *Theater) SubsReset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setDelayLocked(0)
}

// SubsDelay returns the subtitle delay.
func (t *Theater) SubsDelay() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.player.delay
}

func (t *Theater) setDelayLocked(ms int64) {
	t.player.setDelay(ms)
	for _, o := range t.observers {
		o.OnSubsDelay(ms)
	}
}

// MediaPath is the catalogue path of the playing media, "" when none.
func (t *Theater) MediaPath() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.player.mediaPath()
}

// State returns the last engine state and false before any event.
func (t *Theater) State() (ports.EngineState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.player.state, t.player.hasState
}

func (t *Theater) withPlayer(fn func(p *Player)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.player)
}

func (t *Theater) notifyQueueLocked() {
	for _, o := range t.observers {
		o.OnQueueChanged()
	}
}

func (t *Theater) cancelAdvanceLocked() {
	if t.advance != nil {
		t.advance.Stop()
		t.advance = nil
	}
}

func (t *Theater) scheduleAdvanceLocked() {
	t.cancelAdvanceLocked()
	t.advanceGen++
	gen := t.advanceGen
	t.advance = time.AfterFunc(t.cfg.AutoplayDelay, func() { t.autoAdvance(gen) })
}

func (t *Theater) autoAdvance(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.advance == nil || t.advanceGen != gen || !t.autoplay {
		return
	}
	t.advance = nil
	if move := t.queue.Advance(); move != Moved {
		t.log.Info("queue finished", zap.Stringer("move", move))
		t.player.stop()
		return
	}
	t.notifyQueueLocked()
	t.playLogged()
}

// engineEvents adapts engine callbacks onto the session lock.
type engineEvents struct {
	t *Theater
}

func (e engineEvents) OnTime(ms int64) {
	t := e.t
	t.mu.Lock()
	defer t.mu.Unlock()

	t.player.onTime()
	if m := t.player.Media(); m != nil && ms >= 0 {
		if err := t.history.Set(m.Path(), ms); err != nil {
			t.log.Warn("history write failed", zap.String("media", m.Path()), zap.Error(err))
		}
	}
	for _, o := range t.observers {
		o.OnTime(ms)
	}
}

func (e engineEvents) OnState(state ports.EngineState) {
	t := e.t
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.player.onState(state) {
		return
	}
	for _, o := range t.observers {
		o.OnState(state)
	}
	if state == ports.StateEnded && t.autoplay && !t.closed {
		t.scheduleAdvanceLocked()
	}
}

func (e engineEvents) OnMediaChanged() {
	t := e.t
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.player.mediaPath()
	for _, o := range t.observers {
		o.OnMediaChanged(p)
	}
}
