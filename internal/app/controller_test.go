package app

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/edirooss/logickeys/internal/config"
	"github.com/edirooss/logickeys/internal/discovery"
	"github.com/edirooss/logickeys/internal/hotkey"
	"github.com/edirooss/logickeys/internal/mixer"
	"github.com/edirooss/logickeys/internal/store"
	"github.com/edirooss/logickeys/pkg/osc"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartDiscoversAndConnects(t *testing.T) {
	w := &wire{}
	c := newTestController(t, w, nil, nil)
	c.Start(context.Background())

	assert.Equal(t, c.Snapshot().Status, mixer.StatusConnected)
	assert.Equal(t, c.Snapshot().Endpoint, mixer.Endpoint{Host: "192.168.1.20", Port: 10024})
	assert.Equal(t, w.opened, 1)
}

func TestStartStaticHost(t *testing.T) {
	w := &wire{}
	c := newTestController(t, w, func(cfg *config.Config) { cfg.Mixer.Host = "10.0.0.15" }, nil)
	c.Start(context.Background())

	assert.Equal(t, c.Snapshot().Endpoint.Host, "10.0.0.15")
}

func TestStartNoNetwork(t *testing.T) {
	w := &wire{}
	c := New(context.Background(), zap.NewNop(), config.Default(), Options{
		Listen:     w.listen,
		Interfaces: staticIfaces(),
		Store:      store.NewMemoryStore(),
	})
	c.Start(context.Background())

	assert.Equal(t, c.Snapshot().Status, mixer.StatusNoNetwork)
	assert.Equal(t, w.opened, 0)
	assert.Equal(t, c.Mute(), 0)
}

func TestOnKey(t *testing.T) {
	w := &wire{}
	c := newTestController(t, w, nil, nil)
	c.Start(context.Background())

	c.OnKey(hotkey.Character('r'))
	c.OnKey(hotkey.Character('R'))
	c.OnKey(hotkey.Space)
	c.OnKey(hotkey.Character('x'))
	c.OnKey(hotkey.Enter)

	assert.DeepEqual(t, withoutProbes(w.messages()), []osc.Message{
		{Address: "/bus/1/mix/on", Value: 0},
		{Address: "/bus/1/mix/on", Value: 0},
		{Address: "/bus/1/mix/on", Value: 1},
	})
	assert.Equal(t, c.Activity(0)[0].Value, int32(1))
}

func TestMuteContinuesPastFailedPath(t *testing.T) {
	w := &wire{failPath: "/bus/2/mix/on"}
	c := newTestController(t, w, func(cfg *config.Config) {
		cfg.Mute.Paths = []string{"/bus/1/mix/on", "/bus/2/mix/on", "/bus/3/mix/on"}
	}, nil)
	c.Start(context.Background())

	assert.Equal(t, c.Mute(), 2)

	got := withoutProbes(w.messages())
	assert.DeepEqual(t, got, []osc.Message{
		{Address: "/bus/1/mix/on", Value: 0},
		{Address: "/bus/3/mix/on", Value: 0},
	})

	entries := c.Activity(0)
	assert.Equal(t, len(entries), 3)
	assert.Equal(t, entries[1].Path, "/bus/2/mix/on")
	assert.Assert(t, !entries[1].OK)
	assert.Equal(t, entries[1].Status, mixer.StatusDisconnected)
	assert.Equal(t, entries[0].Status, mixer.StatusConnected)
}

func TestOnKeyRecoversPanics(t *testing.T) {
	c := newTestController(t, &wire{}, nil, nil)
	// a nil event matches no case and must not panic
	c.OnKey(nil)
}

func TestToggleMidiModePersists(t *testing.T) {
	w := &wire{}
	st := store.NewMemoryStore()
	c := newTestController(t, w, nil, st)
	c.Start(context.Background())

	c.ToggleMidiMode()
	c.runner.Wait()

	snap := c.Snapshot()
	assert.Equal(t, snap.MidiMode, mixer.MidiUsbDinPassthru)
	assert.Assert(t, snap.MidiUnconfirmed)

	saved, err := st.LoadMidiMode(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, saved, mixer.MidiUsbDinPassthru)

	msgs := withoutProbes(w.messages())
	assert.DeepEqual(t, msgs[len(msgs)-1], osc.Message{Address: "/-prefs/midiconfig", Value: 64})
}

func TestToggleMidiModeFailureKeepsMode(t *testing.T) {
	w := &wire{failPath: "/-prefs/midiconfig"}
	st := store.NewMemoryStore()
	c := newTestController(t, w, nil, st)
	c.Start(context.Background())

	c.ToggleMidiMode()
	c.runner.Wait()

	assert.Equal(t, c.Snapshot().MidiMode, mixer.MidiDinRx)
	_, err := st.LoadMidiMode(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRestoredMidiModeIsUnconfirmed(t *testing.T) {
	st := store.NewMemoryStore()
	assert.NilError(t, st.SaveMidiMode(context.Background(), mixer.MidiUsbDinPassthru))

	c := newTestController(t, &wire{}, nil, st)
	snap := c.Snapshot()
	assert.Equal(t, snap.MidiMode, mixer.MidiUsbDinPassthru)
	assert.Assert(t, snap.MidiUnconfirmed)
}

func TestManualReconnect(t *testing.T) {
	w := &wire{}
	c := newTestController(t, w, nil, nil)
	c.Start(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.ManualReconnect()
		}()
	}
	wg.Wait()
	c.runner.Wait()

	assert.Equal(t, c.Snapshot().Status, mixer.StatusConnected)
	w.mu.Lock()
	opened := w.opened
	w.mu.Unlock()
	assert.Assert(t, opened >= 2 && opened <= 9, "opened %d sockets", opened)
}

func TestRescan(t *testing.T) {
	w := &wire{}
	ifaces := []discovery.Address{}
	var mu sync.Mutex
	c := New(context.Background(), zap.NewNop(), config.Default(), Options{
		Listen: w.listen,
		Interfaces: func() ([]discovery.Address, error) {
			mu.Lock()
			defer mu.Unlock()
			return append([]discovery.Address(nil), ifaces...), nil
		},
		Store: store.NewMemoryStore(),
	})
	c.Start(context.Background())
	assert.Equal(t, c.Snapshot().Status, mixer.StatusNoNetwork)

	_, err := c.Rescan(context.Background())
	assert.ErrorIs(t, err, ErrNoHost)

	mu.Lock()
	ifaces = []discovery.Address{{Iface: "en0", IP: "10.1.1.5"}}
	mu.Unlock()

	ep, err := c.Rescan(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, ep.String(), "10.1.1.20:10024")

	c.runner.Wait()
	assert.Equal(t, c.Snapshot().Status, mixer.StatusConnected)
}

func TestMonitorRecoversNoNetwork(t *testing.T) {
	w := &wire{}
	var (
		mu     sync.Mutex
		ifaces []discovery.Address
	)
	c := New(context.Background(), zap.NewNop(), config.Default(), Options{
		Listen: w.listen,
		Interfaces: func() ([]discovery.Address, error) {
			mu.Lock()
			defer mu.Unlock()
			return append([]discovery.Address(nil), ifaces...), nil
		},
		Store: store.NewMemoryStore(),
	})
	c.cfg.Reconnect.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	go c.Run(ctx)

	mu.Lock()
	ifaces = []discovery.Address{{Iface: "en0", IP: "172.16.0.9"}}
	mu.Unlock()

	// the lister caches for its own TTL, which was fixed at construction
	c.discovery.Rediscover(ctx)

	waitFor(t, func() bool { return c.Snapshot().Status == mixer.StatusConnected })
	assert.Equal(t, c.Snapshot().Endpoint.Host, "172.16.0.20")
}

func TestSnapshotMenuLines(t *testing.T) {
	c := newTestController(t, &wire{}, nil, nil)
	c.Start(context.Background())

	lines := c.Snapshot().MenuLines()
	assert.DeepEqual(t, lines, []string{
		"Status: ✅ Connected",
		"Reconnect",
		"MIDI Mode: DIN RX",
		"Target: 192.168.1.20:10024",
		"Controls:",
		"  R = Mute (0)",
		"  Space = Unmute (1)",
	})
}

func TestClose(t *testing.T) {
	c := newTestController(t, &wire{}, nil, nil)
	c.Start(context.Background())
	assert.NilError(t, c.Close())
	assert.Equal(t, c.Snapshot().Status, mixer.StatusDisconnected)
}

func TestBracketedIPv6HostSendsOverLoopback(t *testing.T) {
	pc, err := net.ListenPacket("udp", "[::1]:0")
	if err != nil {
		t.Skipf("no IPv6 loopback: %v", err)
	}
	defer pc.Close()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	cfg, err := config.Parse([]byte(fmt.Sprintf("mixer:\n  host: \"[::1]\"\n  port: %d\n", port)))
	assert.NilError(t, err)

	c := New(context.Background(), zap.NewNop(), cfg, Options{Store: store.NewMemoryStore()})
	defer c.Close()
	c.Start(context.Background())

	assert.Equal(t, c.Mute(), 1)
	assert.Equal(t, c.Snapshot().Status, mixer.StatusConnected)

	assert.NilError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1024)
	for {
		n, _, err := pc.ReadFrom(buf)
		assert.NilError(t, err)
		msg, err := osc.Decode(buf[:n])
		assert.NilError(t, err)
		if msg.Address == mixer.ProbePath {
			continue
		}
		assert.DeepEqual(t, msg, osc.Message{Address: "/bus/1/mix/on", Value: 0})
		break
	}
}
