package theater

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/modules/library"
	"github.com/mikey-austin/homewatch/internal/ports"
	"github.com/mikey-austin/homewatch/pkg/hw"
)

// PlayerConfig holds the engine wrapper settings.
type PlayerConfig struct {
	// MediaRoot is the local library root. Ignored when MediaURL is set.
	MediaRoot string
	// MediaURL is the remote media base used in remote library mode.
	MediaURL           string
	PreferredLanguages []string
	FastForward        time.Duration
	Rewind             time.Duration
	SubsDelayStep      time.Duration
	Volume             int
	AspectRatio        string
}

// Player wraps the playback engine with the selected sources, volume, aspect
// ratio and subtitle delay of the session. It is not safe for concurrent use;
// the Theater serializes every call.
type Player struct {
	engine ports.PlaybackEngine
	cfg    PlayerConfig
	log    *zap.Logger

	media    *library.Media
	audio    int
	subtitle int
	volume   int
	aspect   string
	delay    int64

	state    ports.EngineState
	hasState bool

	pending pendingApply
}

// pendingApply is what the engine must receive once playback has begun.
type pendingApply struct {
	apply bool
	seek  int64
	pause bool
	stop  bool
}

func newPlayer(log *zap.Logger, engine ports.PlaybackEngine, cfg PlayerConfig) *Player {
	return &Player{
		engine:   engine,
		cfg:      cfg,
		log:      log,
		audio:    -1,
		subtitle: -1,
		volume:   clampVolume(cfg.Volume),
		aspect:   cfg.AspectRatio,
	}
}

// Media returns the loaded media, or nil.
func (p *Player) Media() *library.Media {
	return p.media
}

// load hands m to the engine. Sources are auto-selected unless m shares the
// source layout of the previous media.
func (p *Player) load(m *library.Media, seek int64) error {
	if m.SourcesSignature() != p.signature() {
		p.autoSelect(m)
		p.delay = 0
	}
	p.media = m
	p.hasState = false
	p.pending = pendingApply{apply: true, seek: max(seek, 0)}
	if err := p.engine.Load(p.uri(m.FolderPath, m.Basename)); err != nil {
		return err
	}
	return p.engine.Play()
}

func (p *Player) signature() string {
	if p.media == nil {
		return ""
	}
	return p.media.SourcesSignature()
}

func (p *Player) autoSelect(m *library.Media) {
	foreign, local := 0, -1
	for i, src := range m.AudioSources {
		if strings.Contains(strings.ToLower(src.Title), "vo") {
			foreign = i
		}
		if p.preferred(src.Language) {
			local = i
		}
	}
	localSub := -1
	for i, src := range m.SubtitleSources {
		if p.preferred(src.Language) {
			localSub = i
			break
		}
	}

	switch {
	case len(m.AudioSources) == 0:
		p.audio = -1
		p.subtitle = localSub
		if localSub < 0 && len(m.SubtitleSources) > 0 {
			p.subtitle = 0
		}
	case localSub >= 0:
		p.audio, p.subtitle = foreign, localSub
	case local >= 0:
		p.audio, p.subtitle = local, -1
	default:
		p.audio, p.subtitle = foreign, -1
	}
}

func (p *Player) preferred(lang string) bool {
	if lang == "" {
		return false
	}
	for _, code := range p.cfg.PreferredLanguages {
		if strings.EqualFold(code, lang) {
			return true
		}
	}
	return false
}

// uri builds the engine MRL for a file of the library.
func (p *Player) uri(folder string, basename string) string {
	rel := library.JoinPath(folder, basename)
	if p.cfg.MediaURL != "" {
		segments := strings.Split(rel, "/")
		for i, s := range segments {
			segments[i] = url.PathEscape(s)
		}
		base := p.cfg.MediaURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		return base + strings.Join(segments, "/")
	}
	abs := filepath.Join(p.cfg.MediaRoot, filepath.FromSlash(rel))
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// onTime applies deferred settings on the first time event after a load.
func (p *Player) onTime() {
	if !p.pending.apply {
		return
	}
	pending := p.pending
	p.pending = pendingApply{}

	p.check("volume", p.engine.SetVolume(p.volume))
	p.check("aspect ratio", p.engine.SetAspectRatio(p.aspect))
	p.applyAudio()
	p.applySubtitle()
	if p.delay != 0 {
		p.check("subtitle delay", p.engine.SetSubtitleDelay(p.delay))
	}
	if pending.seek > 0 {
		p.check("seek", p.engine.Seek(pending.seek))
	}
	switch {
	case pending.pause:
		p.check("pause", p.engine.TogglePause())
	case pending.stop:
		p.check("stop", p.engine.Stop())
	}
}

// onState reports whether state differs from the last reported one.
func (p *Player) onState(state ports.EngineState) bool {
	if p.hasState && p.state == state {
		return false
	}
	p.state = state
	p.hasState = true
	return true
}

func (p *Player) applyAudio() {
	if p.media == nil {
		return
	}
	if p.audio < 0 || p.audio >= len(p.media.AudioSources) {
		p.check("audio track", p.engine.SelectAudioTrack(-1))
		return
	}
	p.check("audio track", p.engine.SelectAudioTrack(p.audio))
}

func (p *Player) applySubtitle() {
	if p.media == nil {
		return
	}
	subs := p.media.SubtitleSources
	if p.subtitle < 0 || p.subtitle >= len(subs) {
		p.check("subtitle track", p.engine.SelectSubtitleTrack(-1))
		return
	}
	src := subs[p.subtitle]
	if src.Kind == library.SubtitleFile {
		p.check("subtitle file", p.engine.AddSubtitleFile(p.uri(p.media.FolderPath, src.Basename)))
		return
	}
	ordinal := 0
	for _, other := range subs[:p.subtitle] {
		if other.Kind == library.SubtitleTrack {
			ordinal++
		}
	}
	p.check("subtitle track", p.engine.SelectSubtitleTrack(ordinal))
}

func (p *Player) check(op string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ports.ErrUnsupported):
		p.log.Debug("engine command unsupported", zap.String("op", op))
	default:
		p.log.Warn("engine command failed", zap.String("op", op), zap.Error(err))
	}
}

func (p *Player) loaded() bool {
	if p.media == nil {
		p.log.Debug("no media loaded")
		return false
	}
	return true
}

func (p *Player) togglePause() {
	if p.loaded() {
		p.check("pause", p.engine.TogglePause())
	}
}

func (p *Player) play() {
	if p.loaded() {
		p.check("play", p.engine.Play())
	}
}

func (p *Player) stop() {
	if p.loaded() {
		p.pending.pause = false
		p.check("stop", p.engine.Stop())
	}
}

func (p *Player) seek(ms int64) {
	if p.loaded() {
		p.check("seek", p.engine.Seek(max(ms, 0)))
	}
}

// skip seeks relative to the engine time.
func (p *Player) skip(delta time.Duration) {
	if !p.loaded() {
		return
	}
	now, ok := p.engine.Time()
	if !ok {
		return
	}
	p.seek(now + delta.Milliseconds())
}

func (p *Player) setVolume(volume int) {
	p.volume = clampVolume(volume)
	if p.media != nil && !p.pending.apply {
		p.check("volume", p.engine.SetVolume(p.volume))
	}
}

func (p *Player) setAspectRatio(ratio string) {
	p.aspect = ratio
	if p.media != nil && !p.pending.apply {
		p.check("aspect ratio", p.engine.SetAspectRatio(ratio))
	}
}

// selectAudio selects an audio source by position; a negative index clears.
func (p *Player) selectAudio(index int) {
	if p.media == nil || index >= len(p.media.AudioSources) {
		return
	}
	p.audio = max(index, -1)
	if !p.pending.apply {
		p.applyAudio()
	}
}

// selectSubtitle selects a subtitle source by position; a negative index clears.
func (p *Player) selectSubtitle(index int) {
	if p.media == nil || index >= len(p.media.SubtitleSources) {
		return
	}
	p.subtitle = max(index, -1)
	if !p.pending.apply {
		p.applySubtitle()
	}
}

func (p *Player) setDelay(ms int64) {
	p.delay = ms
	if p.media != nil && !p.pending.apply {
		p.check("subtitle delay", p.engine.SetSubtitleDelay(ms))
	}
}

// status returns the persisted player snapshot.
func (p *Player) status() hw.PlayerStatus {
	st := hw.PlayerStatus{CurrentVolume: p.volume, Delay: p.delay}
	if p.aspect != "" {
		aspect := p.aspect
		st.CurrentAspectRatio = &aspect
	}
	if p.media == nil {
		return st
	}
	ref := p.media.Ref()
	st.Media = &ref
	if now, ok := p.engine.Time(); ok {
		st.Time = &now
	}
	if p.hasState {
		st.State = hw.IntPtr(int(p.state))
	}
	if p.audio >= 0 {
		st.SelectedAudioSource = hw.IntPtr(p.audio)
	}
	if p.subtitle >= 0 {
		st.SelectedSubtitleSource = hw.IntPtr(p.subtitle)
	}
	return st
}

// restore loads m with the saved selections, seeking to the saved time and
// leaving the engine paused or stopped as it was.
func (p *Player) restore(m *library.Media, st hw.PlayerStatus) error {
	p.volume = clampVolume(st.CurrentVolume)
	p.aspect = ""
	if st.CurrentAspectRatio != nil {
		p.aspect = *st.CurrentAspectRatio
	}
	var seek int64
	if st.Time != nil {
		seek = *st.Time
	}
	if err := p.load(m, seek); err != nil {
		return err
	}
	p.delay = st.Delay
	if st.SelectedAudioSource != nil && *st.SelectedAudioSource < len(m.AudioSources) {
		p.audio = *st.SelectedAudioSource
	}
	if st.SelectedSubtitleSource != nil && *st.SelectedSubtitleSource < len(m.SubtitleSources) {
		p.subtitle = *st.SelectedSubtitleSource
	}
	if st.State != nil {
		switch ports.EngineState(*st.State) {
		case ports.StatePaused:
			p.pending.pause = true
		case ports.StateIdle, ports.StateStopped, ports.StateEnded:
			p.pending.stop = true
		}
	}
	return nil
}

func clampVolume(v int) int {
	return min(max(v, 0), 100)
}

// mediaPath is the catalogue path of the loaded media, "" when none.
func (p *Player) mediaPath() string {
	if p.media == nil {
		return ""
	}
	return p.media.Path()
}
