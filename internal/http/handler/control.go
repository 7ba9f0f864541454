package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/edirooss/logickeys/internal/activity"
	"github.com/edirooss/logickeys/internal/app"
	"github.com/edirooss/logickeys/internal/discovery"
	"github.com/edirooss/logickeys/internal/hotkey"
	"github.com/edirooss/logickeys/internal/mixer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultActivityLines = 50

// Controller is what the control API drives; *app.Controller implements it.
type Controller interface {
	Snapshot() app.Snapshot
	ManualReconnect()
	ToggleMidiMode()
	Rescan(ctx context.Context) (mixer.Endpoint, error)
	OnKey(ev hotkey.KeyEvent)
	Activity(n int) []activity.Entry
	LocalAddrs(ctx context.Context) ([]discovery.Address, error)
}

type ControlHandler struct {
	log  *zap.Logger
	ctrl Controller
}

func NewControlHandler(log *zap.Logger, ctrl Controller) *ControlHandler {
	return &ControlHandler{
		log:  log.Named("control"),
		ctrl: ctrl,
	}
}

// Register mounts all control routes on r.
func (h *ControlHandler) Register(r gin.IRouter) {
	r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	r.GET("/api/status", h.GetStatus)
	r.POST("/api/reconnect", h.Reconnect)
	r.POST("/api/midi/toggle", h.ToggleMidi)
	r.POST("/api/rescan", h.Rescan)
	r.POST("/api/keys/:key", h.PressKey)
	r.GET("/api/activity", h.GetActivity)
	r.GET("/api/localaddrs", h.GetLocalAddrList)
}

type statusResponse struct {
	app.Snapshot
	Menu []string `json:"menu"`
}

func (h *ControlHandler) GetStatus(c *gin.Context) {
	snap := h.ctrl.Snapshot()
	c.JSON(http.StatusOK, statusResponse{Snapshot: snap, Menu: snap.MenuLines()})
}

func (h *ControlHandler) Reconnect(c *gin.Context) {
	h.ctrl.ManualReconnect()
	c.JSON(http.StatusAccepted, gin.H{"message": "reconnect scheduled"})
}

func (h *ControlHandler) ToggleMidi(c *gin.Context) {
	h.ctrl.ToggleMidiMode()
	c.JSON(http.StatusAccepted, gin.H{"message": "midi toggle scheduled"})
}

func (h *ControlHandler) Rescan(c *gin.Context) {
	ep, err := h.ctrl.Rescan(c.Request.Context())
	if err != nil {
		c.Error(err)
		status := http.StatusInternalServerError
		if errors.Is(err, app.ErrNoHost) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoint": ep})
}

// PressKey injects a key as if typed: "r", "space", any single character.
func (h *ControlHandler) PressKey(c *gin.Context) {
	ev, err := hotkey.Parse(c.Param("key"))
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	h.ctrl.OnKey(ev)
	c.JSON(http.StatusAccepted, gin.H{"key": ev.String()})
}

func (h *ControlHandler) GetActivity(c *gin.Context) {
	n := defaultActivityLines
	if raw := c.Query("lines"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "lines must be a non-negative integer"})
			return
		}
		n = v
	}

	entries := h.ctrl.Activity(n)
	c.Header("X-Total-Count", strconv.Itoa(len(entries)))
	c.JSON(http.StatusOK, entries)
}

func (h *ControlHandler) GetLocalAddrList(c *gin.Context) {
	addrs, err := h.ctrl.LocalAddrs(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.Header("X-Total-Count", strconv.Itoa(len(addrs)))
	c.JSON(http.StatusOK, addrs)
}
