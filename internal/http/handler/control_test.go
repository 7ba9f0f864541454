package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/edirooss/logickeys/internal/activity"
	"github.com/edirooss/logickeys/internal/app"
	"github.com/edirooss/logickeys/internal/discovery"
	"github.com/edirooss/logickeys/internal/hotkey"
	"github.com/edirooss/logickeys/internal/mixer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
)

type fakeController struct {
	mu         sync.Mutex
	snap       app.Snapshot
	reconnects int
	toggles    int
	keys       []hotkey.KeyEvent
	rescanErr  error
	activityN  int
	activity   *activity.Log
	addrs      []discovery.Address
}

func (f *fakeController) Snapshot() app.Snapshot { return f.snap }

func (f *fakeController) ManualReconnect() {
	f.mu.Lock()
	f.reconnects++
	f.mu.Unlock()
}

func (f *fakeController) ToggleMidiMode() {
	f.mu.Lock()
	f.toggles++
	f.mu.Unlock()
}

func (f *fakeController) Rescan(context.Context) (mixer.Endpoint, error) {
	if f.rescanErr != nil {
		return mixer.Endpoint{}, f.rescanErr
	}
	return mixer.Endpoint{Host: "192.168.1.20", Port: 10024}, nil
}

func (f *fakeController) OnKey(ev hotkey.KeyEvent) {
	f.mu.Lock()
	f.keys = append(f.keys, ev)
	f.mu.Unlock()
}

func (f *fakeController) Activity(n int) []activity.Entry {
	f.activityN = n
	return f.activity.Read(n)
}

func (f *fakeController) LocalAddrs(context.Context) ([]discovery.Address, error) {
	return f.addrs, nil
}

func newRouter(f *fakeController) *gin.Engine {
	if f.activity == nil {
		f.activity = activity.New()
	}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewControlHandler(zap.NewNop(), f).Register(r)
	return r
}

func do(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestPing(t *testing.T) {
	w := do(newRouter(&fakeController{}), http.MethodGet, "/api/ping")
	assert.Equal(t, w.Code, http.StatusOK)
	assert.Equal(t, w.Body.String(), `{"message":"pong"}`)
}

func TestGetStatus(t *testing.T) {
	f := &fakeController{snap: app.Snapshot{
		Status:          mixer.StatusConnected,
		Endpoint:        mixer.Endpoint{Host: "10.0.0.15", Port: 10024},
		MidiMode:        mixer.MidiUsbDinPassthru,
		MidiUnconfirmed: true,
		MutePaths:       []string{"/bus/1/mix/on"},
		Controls:        []app.Control{{Key: "R", Action: "Mute", Value: 0}},
	}}
	w := do(newRouter(f), http.MethodGet, "/api/status")
	assert.Equal(t, w.Code, http.StatusOK)

	var body struct {
		Status          string         `json:"status"`
		Endpoint        mixer.Endpoint `json:"endpoint"`
		MidiMode        string         `json:"midi_mode"`
		MidiUnconfirmed bool           `json:"midi_unconfirmed"`
		Menu            []string       `json:"menu"`
	}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, body.Status, "Connected")
	assert.Equal(t, body.Endpoint.Host, "10.0.0.15")
	assert.Equal(t, body.MidiMode, "usb_din_passthru")
	assert.Assert(t, body.MidiUnconfirmed)
	assert.Equal(t, body.Menu[0], "Status: ✅ Connected")
	assert.Equal(t, body.Menu[2], "MIDI Mode: USB-DIN Passthrough (unconfirmed)")
}

func TestReconnectAndToggle(t *testing.T) {
	f := &fakeController{}
	r := newRouter(f)

	assert.Equal(t, do(r, http.MethodPost, "/api/reconnect").Code, http.StatusAccepted)
	assert.Equal(t, do(r, http.MethodPost, "/api/midi/toggle").Code, http.StatusAccepted)
	assert.Equal(t, f.reconnects, 1)
	assert.Equal(t, f.toggles, 1)
}

func TestRescan(t *testing.T) {
	f := &fakeController{}
	r := newRouter(f)

	w := do(r, http.MethodPost, "/api/rescan")
	assert.Equal(t, w.Code, http.StatusOK)
	assert.Equal(t, w.Body.String(), `{"endpoint":{"host":"192.168.1.20","port":10024}}`)

	f.rescanErr = app.ErrNoHost
	assert.Equal(t, do(r, http.MethodPost, "/api/rescan").Code, http.StatusServiceUnavailable)

	f.rescanErr = errors.New("boom")
	assert.Equal(t, do(r, http.MethodPost, "/api/rescan").Code, http.StatusInternalServerError)
}

func TestPressKey(t *testing.T) {
	f := &fakeController{}
	r := newRouter(f)

	assert.Equal(t, do(r, http.MethodPost, "/api/keys/r").Code, http.StatusAccepted)
	assert.Equal(t, do(r, http.MethodPost, "/api/keys/space").Code, http.StatusAccepted)
	assert.Equal(t, do(r, http.MethodPost, "/api/keys/f12").Code, http.StatusBadRequest)
	assert.DeepEqual(t, f.keys, []hotkey.KeyEvent{hotkey.Character('r'), hotkey.Space})
}

func TestGetActivity(t *testing.T) {
	f := &fakeController{}
	r := newRouter(f)

	w := do(r, http.MethodGet, "/api/activity")
	assert.Equal(t, w.Code, http.StatusOK)
	assert.Equal(t, w.Body.String(), "[]")

	f.activity.Record("/bus/1/mix/on", 0, true, mixer.StatusConnected)
	w = do(r, http.MethodGet, "/api/activity")
	assert.Equal(t, w.Code, http.StatusOK)
	assert.Equal(t, f.activityN, defaultActivityLines)
	assert.Equal(t, w.Header().Get("X-Total-Count"), "1")

	do(r, http.MethodGet, "/api/activity?lines=5")
	assert.Equal(t, f.activityN, 5)

	assert.Equal(t, do(r, http.MethodGet, "/api/activity?lines=-1").Code, http.StatusBadRequest)
}

func TestGetLocalAddrList(t *testing.T) {
	f := &fakeController{addrs: []discovery.Address{{Iface: "en0", IP: "192.168.1.10"}}}
	w := do(newRouter(f), http.MethodGet, "/api/localaddrs")
	assert.Equal(t, w.Code, http.StatusOK)
	assert.Equal(t, w.Body.String(), `[{"iface":"en0","ip":"192.168.1.10"}]`)
}

var _ Controller = (*app.Controller)(nil)
