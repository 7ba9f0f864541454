// Package app wires the mixer link, hotkeys, discovery and state together.
package app

import (
	"context"
	"errors"
	"runtime/debug"
	"time"
	"unicode"

	"github.com/edirooss/logickeys/internal/activity"
	"github.com/edirooss/logickeys/internal/config"
	"github.com/edirooss/logickeys/internal/discovery"
	"github.com/edirooss/logickeys/internal/hotkey"
	"github.com/edirooss/logickeys/internal/mixer"
	"github.com/edirooss/logickeys/internal/store"
	"github.com/edirooss/logickeys/internal/tasks"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNoHost is returned by Rescan when discovery finds no local network.
var ErrNoHost = errors.New("no mixer host discovered")

const storeTimeout = 2 * time.Second

// Options overrides the I/O edges. Zero values use the real network and the
// store selected by the config.
type Options struct {
	Listen     mixer.ListenFunc
	Interfaces discovery.InterfacesFunc
	Store      store.Store
}

// Controller is the single entry point for hotkeys, the control API and the
// background monitor.
type Controller struct {
	log *zap.Logger
	cfg *config.Config

	link      *mixer.Link
	toggle    *mixer.MidiToggle
	monitor   *mixer.Monitor
	discovery *discovery.Discoverer
	store     store.Store
	runner    *tasks.Runner
	activity  *activity.Log

	muteKey   rune
	reconnect singleflight.Group
}

func New(ctx context.Context, log *zap.Logger, cfg *config.Config, opts Options) *Controller {
	c := &Controller{
		log:      log.Named("controller"),
		cfg:      cfg,
		runner:   tasks.NewRunner(log),
		activity: activity.New(),
		muteKey:  []rune(cfg.Mute.MuteKey)[0],
	}

	c.discovery = discovery.New(log,
		discovery.NewLocalAddrLister(discovery.LocalAddrOptions{
			TTL:        cfg.Discovery.TTL,
			Interfaces: opts.Interfaces,
		}),
		discovery.Options{StaticHost: cfg.Mixer.Host, HostOctet: cfg.Mixer.HostOctet},
	)

	c.link = mixer.NewLink(log, mixer.LinkOptions{
		Endpoint: mixer.Endpoint{Port: cfg.Mixer.Port},
		Timeout:  cfg.Mixer.SocketTimeout,
		Listen:   opts.Listen,
		OnSend:   c.activity.Record,
	})

	c.store = opts.Store
	if c.store == nil {
		c.store = openStore(ctx, log, cfg.State)
	}

	initial, unconfirmed := c.loadMidiMode(ctx)
	c.toggle = mixer.NewMidiToggle(log, c.link, mixer.MidiOptions{
		Path:                cfg.MIDI.Path,
		DinRxValue:          cfg.MIDI.DinRxValue,
		UsbDinPassthruValue: cfg.MIDI.UsbDinPassthruValue,
		Initial:             initial,
		Unconfirmed:         unconfirmed,
	})

	c.monitor = mixer.NewMonitor(log, c.link, c.discovery.DiscoverHost)
	return c
}

func openStore(ctx context.Context, log *zap.Logger, cfg config.StateConfig) store.Store {
	if cfg.RedisAddr == "" {
		return store.NewMemoryStore()
	}
	return store.NewRedisStore(store.NewClient(ctx, cfg.RedisAddr, cfg.RedisDB, log))
}

func (c *Controller) loadMidiMode(ctx context.Context) (mixer.MidiMode, bool) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	mode, err := c.store.LoadMidiMode(ctx)
	switch {
	case err == nil:
		c.log.Info("restored midi mode", zap.String("mode", mode.Label()))
		return mode, true
	case errors.Is(err, store.ErrNotFound):
		return mixer.MidiDinRx, false
	default:
		c.log.Warn("failed to load midi mode", zap.Error(err))
		return mixer.MidiDinRx, false
	}
}

// Start runs initial discovery and a first connection attempt, then
// registers the reconnect monitor. The runner loop itself is driven by Run.
func (c *Controller) Start(ctx context.Context) {
	c.log.Info("logic keys controller started",
		zap.Strings("paths", c.cfg.Mute.Paths),
		zap.Int32("mute", c.cfg.Mute.MuteValue),
		zap.Int32("unmute", c.cfg.Mute.UnmuteValue),
	)

	if host, ok := c.discovery.DiscoverHost(ctx); ok {
		ep := c.link.Endpoint()
		ep.Host = host
		c.link.SetEndpoint(ep)
		c.log.Info("target", zap.Stringer("endpoint", ep))
	}

	if c.link.Reconnect() {
		c.log.Info("initial connection established")
	} else {
		c.log.Warn("initial connection failed, will retry automatically", zap.Stringer("status", c.link.Status()))
	}

	c.runner.Every("monitor", c.cfg.Reconnect.Interval, c.monitor.Tick)
}

// Run drives background tasks until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	c.runner.Run(ctx)
}

// Close waits for in-flight tasks, then releases the socket and the store.
func (c *Controller) Close() error {
	c.runner.Wait()
	return errors.Join(c.link.Close(), c.store.Close())
}

// OnKey handles one key event: the mute key mutes, space unmutes, anything
// else is ignored. It never panics.
func (c *Controller) OnKey(ev hotkey.KeyEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("key handler error", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()

	switch k := ev.(type) {
	case hotkey.Character:
		if unicode.ToLower(rune(k)) == unicode.ToLower(c.muteKey) {
			c.Mute()
		}
	case hotkey.SpecialKey:
		if k == hotkey.Space {
			c.Unmute()
		}
	}
}

// Mute sends the mute value to every mute path and returns how many sends
// succeeded.
func (c *Controller) Mute() int {
	return c.sendAll(c.cfg.Mute.MuteValue)
}

// Unmute is the inverse of Mute.
func (c *Controller) Unmute() int {
	return c.sendAll(c.cfg.Mute.UnmuteValue)
}

// sendAll keeps going after a failed path; earlier successes are not rolled
// back.
func (c *Controller) sendAll(value int32) int {
	n := 0
	for _, p := range c.cfg.Mute.Paths {
		if c.link.Send(p, value) {
			n++
		}
	}
	return n
}

// ManualReconnect schedules a reconnect. Calls arriving while one is running
// share its result.
func (c *Controller) ManualReconnect() {
	c.log.Info("manual reconnection requested")
	c.runner.Go("reconnect", func(context.Context) {
		ok, _, shared := c.reconnect.Do("reconnect", func() (any, error) {
			return c.link.Reconnect(), nil
		})
		if shared {
			return
		}
		if ok.(bool) {
			c.log.Info("manual reconnection successful")
		} else {
			c.log.Error("manual reconnection failed", zap.Stringer("status", c.link.Status()))
		}
	})
}

// ToggleMidiMode schedules a MIDI mode switch and persists the new mode on
// success.
func (c *Controller) ToggleMidiMode() {
	c.runner.Go("midi_toggle", func(ctx context.Context) {
		mode, ok := c.toggle.Toggle()
		if !ok {
			return
		}

		// the task context is cancelled at shutdown; still try to persist
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
		defer cancel()
		if err := c.store.SaveMidiMode(ctx, mode); err != nil {
			c.log.Warn("failed to persist midi mode", zap.Error(err))
		}
	})
}

// Rescan drops the discovery cache, installs the rediscovered host and
// schedules a reconnect.
func (c *Controller) Rescan(ctx context.Context) (mixer.Endpoint, error) {
	host, ok := c.discovery.Rediscover(ctx)
	if !ok {
		return c.link.Endpoint(), ErrNoHost
	}

	ep := c.link.Endpoint()
	ep.Host = host
	c.link.SetEndpoint(ep)
	c.ManualReconnect()
	return ep, nil
}

// Activity returns up to n recent sends, newest first.
func (c *Controller) Activity(n int) []activity.Entry {
	return c.activity.Read(n)
}

// LocalAddrs lists the addresses discovery guesses from.
func (c *Controller) LocalAddrs(ctx context.Context) ([]discovery.Address, error) {
	return c.discovery.Addrs(ctx)
}
