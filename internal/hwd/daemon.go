package hwd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/adapters/clock"
	"github.com/mikey-austin/homewatch/internal/adapters/hooks"
	"github.com/mikey-austin/homewatch/internal/adapters/idgen"
	"github.com/mikey-austin/homewatch/internal/adapters/mqttserver"
	"github.com/mikey-austin/homewatch/internal/adapters/statusfile"
	"github.com/mikey-austin/homewatch/internal/core"
	"github.com/mikey-austin/homewatch/internal/modules/control"
	embeddedmqtt "github.com/mikey-austin/homewatch/internal/modules/embedded_mqtt"
	"github.com/mikey-austin/homewatch/internal/modules/history"
	"github.com/mikey-austin/homewatch/internal/modules/httpapi"
	"github.com/mikey-austin/homewatch/internal/modules/library"
	mqttbridge "github.com/mikey-austin/homewatch/internal/modules/mqtt_bridge"
	renderercore "github.com/mikey-austin/homewatch/internal/modules/renderer_core"
	renderergstreamer "github.com/mikey-austin/homewatch/internal/modules/renderer_gstreamer"
	renderervlc "github.com/mikey-austin/homewatch/internal/modules/renderer_vlc"
	"github.com/mikey-austin/homewatch/internal/modules/theater"
	"github.com/mikey-austin/homewatch/internal/ports"
	"github.com/mikey-austin/homewatch/pkg/hw"
)

// Options override collaborators the daemon would otherwise build from config.
type Options struct {
	// Engine replaces the configured playback engine.
	Engine ports.PlaybackEngine
	// Listener replaces listening on server.listen.
	Listener net.Listener
	// Index replaces building the catalogue.
	Index *library.Index
}

// Daemon is one homewatch instance.
type Daemon struct {
	cfg  Config
	log  *zap.Logger
	opts Options

	hooks   *hooks.Runner
	index   *library.Index
	engine  ports.PlaybackEngine
	theater *theater.Theater
	hub     *control.Hub
	status  *statusfile.File

	skipPostHooks atomic.Bool
	reasonMu      sync.Mutex
	reason        string
	ready         chan struct{}
	readyOnce     sync.Once
	stop          context.CancelFunc
}

// New validates cfg.
func New(log *zap.Logger, cfg Config, opts Options) (*Daemon, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Daemon{
		cfg:   cfg,
		log:   log,
		opts:  opts,
		hooks: hooks.NewRunner(log.With(zap.String("module", "hooks")), cfg.Server.HooksDir),
		ready: make(chan struct{}),
	}, nil
}

// Ready is closed once the daemon serves requests.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Run serves until ctx is done or the session is closed. A restart request
// returns core.ErrRestart.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.hooks.Run(ctx, "pre", d.cfg.Server.PreHooks); err != nil {
		d.log.Warn("pre hooks failed", zap.Error(err))
	}

	if d.opts.Index != nil {
		d.index = d.opts.Index
	} else {
		cat, err := BuildCatalogue(ctx, d.log.With(zap.String("module", "library")), d.cfg.Library, nil)
		if err != nil {
			return err
		}
		d.index = cat.Index
	}

	var modules []ModuleRunner
	var err error
	if d.cfg.Server.Mode == ModeLibrary {
		modules, err = d.libraryModules()
	} else {
		modules, err = d.playerModules()
	}
	if err != nil {
		d.release()
		return err
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	d.stop = stop
	supervisor := Supervisor{Logger: d.log}
	runErr := supervisor.Run(runCtx, modules)
	d.release()

	reason := d.closeReason()
	if reason != hw.ShutdownRestart && !d.skipPostHooks.Load() {
		if err := d.hooks.Run(context.Background(), "post", d.cfg.Server.PostHooks); err != nil {
			d.log.Warn("post hooks failed", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}
	if reason == hw.ShutdownRestart {
		return core.ErrRestart
	}
	return nil
}

func (d *Daemon) libraryModules() ([]ModuleRunner, error) {
	api := httpapi.New(httpapi.Deps{
		Log:       d.log.With(zap.String("module", "http")),
		Index:     d.index,
		MediaRoot: d.mediaRoot(),
	})
	return []ModuleRunner{{Name: "http", Run: d.serve(api)}}, nil
}

func (d *Daemon) playerModules() ([]ModuleRunner, error) {
	dataDir, err := d.cfg.DataDir()
	if err != nil {
		return nil, err
	}
	hist, err := history.Open(d.log.With(zap.String("module", "history")), filepath.Join(dataDir, "history"))
	if err != nil {
		return nil, err
	}
	d.status, err = statusfile.New(filepath.Join(dataDir, statusfile.DefaultName))
	if err != nil {
		return nil, err
	}

	var modules []ModuleRunner
	d.engine = d.opts.Engine
	if d.engine == nil {
		if d.engine, err = d.buildEngine(); err != nil {
			return nil, err
		}
	}
	if r, ok := d.engine.(interface{ Run(context.Context) error }); ok {
		modules = append(modules, ModuleRunner{Name: "engine", Run: r.Run})
	}

	gen, err := library.ParseCastGeneration(d.cfg.Library.CastGeneration)
	if err != nil {
		return nil, err
	}
	pc := d.cfg.Player
	d.theater = theater.New(d.log.With(zap.String("module", "theater")), theater.Config{
		Autoplay:        pc.Autoplay,
		Shuffle:         pc.Shuffle,
		Loop:            pc.Loop,
		AutoplayDelay:   pc.AutoplayDelay,
		ViewedThreshold: pc.ViewedThreshold,
		ViewedRatio:     pc.ViewedRatio,
		CastGeneration:  gen,
		Player: theater.PlayerConfig{
			MediaRoot:          d.mediaRoot(),
			MediaURL:           d.mediaURL(),
			PreferredLanguages: d.cfg.Library.PreferredLanguages,
			FastForward:        pc.FastForward,
			Rewind:             pc.Rewind,
			SubsDelayStep:      pc.SubsDelayStep,
			Volume:             pc.Volume,
			AspectRatio:        pc.AspectRatio,
		},
	}, d.index, hist, d.engine)

	d.hub = control.New(d.log.With(zap.String("module", "control")), control.Config{
		CloseOnEnd:   pc.CloseOnEnd,
		TimeInterval: pc.TimeBroadcastInterval,
		SleepPoll:    pc.SleepPollInterval,
	}, d.theater, clock.Clock{}, idgen.Generator{})
	modules = append(modules, ModuleRunner{Name: "control", Run: d.hub.Run})

	if d.cfg.Server.RestoreStatus {
		d.restore()
	}

	api := httpapi.New(httpapi.Deps{
		Log:       d.log.With(zap.String("module", "http")),
		Index:     d.index,
		MediaRoot: d.mediaRoot(),
		Theater:   d.theater,
		Session:   d.hub,
		Status:    d.status,
		Close:     d.RequestClose,
	})
	modules = append(modules, ModuleRunner{Name: "http", Run: d.serve(api)})

	mqttModules, err := d.mqttModules()
	if err != nil {
		return nil, err
	}
	modules = append(modules, mqttModules...)
	modules = append(modules, ModuleRunner{Name: "session", Run: d.watchSession})
	return modules, nil
}

func (d *Daemon) buildEngine() (ports.PlaybackEngine, error) {
	log := d.log.With(zap.String("module", "engine"))
	var engine *renderercore.Engine
	var err error
	switch d.cfg.Player.Engine {
	case "gstreamer":
		engine, err = renderergstreamer.NewEngine(log, renderergstreamer.Config{})
	default:
		engine, err = renderervlc.NewEngine(log, renderervlc.Config{
			BaseURL:  d.cfg.Player.VLCURL,
			Password: d.cfg.Player.VLCPassword,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%s engine: %w", d.cfg.Player.Engine, err)
	}
	return engine, nil
}

func (d *Daemon) mqttModules() ([]ModuleRunner, error) {
	mc := d.cfg.MQTT
	if !mc.Enabled {
		return nil, nil
	}
	log := d.log.With(zap.String("module", "mqtt"))
	var modules []ModuleRunner
	var client mqttbridge.Client
	if mc.Embedded.Enabled {
		broker, err := embeddedmqtt.NewModule(log.With(zap.String("module", "embedded_mqtt")), embeddedmqtt.Config{
			Listen:         mc.Embedded.Listen,
			AllowAnonymous: mc.Embedded.AllowAnonymous,
			Username:       mc.Embedded.Username,
			Password:       mc.Embedded.Password,
		})
		if err != nil {
			return nil, err
		}
		modules = append(modules, ModuleRunner{Name: "embedded_mqtt", Run: broker.Run})
		client = broker.Inline()
	} else {
		paho, err := mqttserver.NewClient(mqttserver.Options{
			BrokerURL: mc.Broker,
			ClientID:  mc.ClientID,
			Username:  mc.Username,
			Password:  mc.Password,
			Logger:    log,
		})
		if err != nil {
			return nil, fmt.Errorf("mqtt connect: %w", err)
		}
		modules = append(modules, ModuleRunner{Name: "mqtt_client", Run: func(ctx context.Context) error {
			<-ctx.Done()
			paho.Close()
			return nil
		}})
		client = paho
	}
	bridge := mqttbridge.New(log, mqttbridge.Config{TopicBase: mc.TopicBase}, client, d.hub, d.theater.Status)
	modules = append(modules, ModuleRunner{Name: "mqtt_bridge", Run: bridge.Run})
	return modules, nil
}

// restore reloads the saved session; failures leave the defaults.
func (d *Daemon) restore() {
	st, err := d.status.Load()
	if errors.Is(err, statusfile.ErrNoStatus) {
		return
	}
	if err != nil {
		d.log.Warn("saved status unreadable", zap.String("path", d.status.Path()), zap.Error(err))
		return
	}
	if err := d.theater.Restore(st); err != nil {
		d.log.Warn("status restore failed", zap.Error(err))
		return
	}
	d.log.Info("status restored", zap.String("path", d.status.Path()))
}

func (d *Daemon) serve(api *httpapi.Server) func(context.Context) error {
	return func(ctx context.Context) error {
		ln := d.opts.Listener
		if ln == nil {
			var err error
			if ln, err = net.Listen("tcp", d.cfg.Server.Listen); err != nil {
				return err
			}
		}
		d.readyOnce.Do(func() { close(d.ready) })
		return api.Serve(ctx, ln)
	}
}

// RequestClose ends the session; hooks false skips the post hooks.
func (d *Daemon) RequestClose(reason string, hooks bool) {
	if !hooks {
		d.skipPostHooks.Store(true)
	}
	if d.hub != nil {
		d.hub.RequestClose(reason)
	}
}

// watchSession runs the shutdown sequence on the first close request, or on
// ctx being done, then stops every other module.
func (d *Daemon) watchSession(ctx context.Context) error {
	reason := hw.ShutdownRequest
	select {
	case reason = <-d.hub.CloseRequests():
	case <-ctx.Done():
	}
	d.setCloseReason(reason)
	d.log.Info("closing session", zap.String("reason", reason))

	st := d.theater.Status()
	d.hub.Shutdown(reason)
	if err := d.status.Save(st); err != nil {
		d.log.Warn("status save failed", zap.String("path", d.status.Path()), zap.Error(err))
	}
	d.stop()
	return nil
}

// release closes the session collaborators once no module runs.
func (d *Daemon) release() {
	if d.theater != nil {
		d.theater.Close()
	}
	if d.engine != nil {
		if err := d.engine.Close(); err != nil {
			d.log.Warn("engine close failed", zap.Error(err))
		}
	}
}

func (d *Daemon) setCloseReason(reason string) {
	d.reasonMu.Lock()
	defer d.reasonMu.Unlock()
	d.reason = reason
}

func (d *Daemon) closeReason() string {
	d.reasonMu.Lock()
	defer d.reasonMu.Unlock()
	return d.reason
}

func (d *Daemon) mediaRoot() string {
	if d.cfg.Library.Mode == ModeRemote {
		return ""
	}
	return d.cfg.Library.Root
}

func (d *Daemon) mediaURL() string {
	if d.cfg.Library.Mode != ModeRemote {
		return ""
	}
	return d.cfg.Library.MediaURL
}
