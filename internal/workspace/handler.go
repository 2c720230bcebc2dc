// Package workspace serves the composed shell and the live sensor feed to
// authenticated clients. Every route expects auth.Middleware upstream.
package workspace

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nextfactory/nextfactory/internal/access"
	"github.com/nextfactory/nextfactory/internal/auth"
	"github.com/nextfactory/nextfactory/internal/layout"
	"github.com/nextfactory/nextfactory/internal/platform/httpx"
	"github.com/nextfactory/nextfactory/internal/telemetry"
)

// Snapshotter serves and clears the latest reading per sensor.
type Snapshotter interface {
	Latest(ctx context.Context) ([]telemetry.Reading, error)
	Clear(ctx context.Context) error
}

// ReadingSource lists persisted readings.
type ReadingSource interface {
	Recent(ctx context.Context, filter telemetry.Filter) ([]telemetry.Reading, error)
}

// Monitor pauses and resumes the sensor feed.
type Monitor interface {
	Start() error
	Stop()
	Status() telemetry.Status
}

// Control ids of the real-time data section.
const (
	ControlToggleMonitoring = "toggle_monitoring"
	ControlClearFeed        = "clear_feed"
)

// Params groups the handler's dependencies. Readings and Monitor are
// optional; their endpoints answer 503 when absent.
type Params struct {
	Logger   *slog.Logger
	Composer *layout.Composer
	Snapshot Snapshotter
	Readings ReadingSource
	Monitor  Monitor
	Hub      *telemetry.Hub
	Stream   StreamConfig
}

// Handler wires workspace and telemetry endpoints.
type Handler struct {
	logger   *slog.Logger
	composer *layout.Composer
	snapshot Snapshotter
	readings ReadingSource
	monitor  Monitor
	hub      *telemetry.Hub
	stream   StreamConfig
}

// NewHandler constructs a Handler.
func NewHandler(p Params) *Handler {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		composer: p.Composer,
		snapshot: p.Snapshot,
		readings: p.Readings,
		monitor:  p.Monitor,
		hub:      p.Hub,
		stream:   p.Stream.withDefaults(),
	}
}

// MountRoutes registers the workspace routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/workspace", func(r chi.Router) {
		r.Get("/", h.view)
		r.Get("/capabilities", h.capabilities)
		r.Get("/sections/{section}/controls", h.controls)
	})
	r.Route("/api/telemetry", func(r chi.Router) {
		r.Use(h.RequireSection(layout.SectionRealTimeData))
		r.Get("/latest", h.latest)
		r.Get("/readings", h.recent)
		r.Get("/status", h.status)
		r.With(h.RequireControl(layout.SectionRealTimeData, ControlToggleMonitoring)).Post("/monitoring/start", h.startMonitoring)
		r.With(h.RequireControl(layout.SectionRealTimeData, ControlToggleMonitoring)).Post("/monitoring/stop", h.stopMonitoring)
		r.With(h.RequireControl(layout.SectionRealTimeData, ControlClearFeed)).Delete("/latest", h.clearLatest)
	})
}

// MountStream registers the websocket feed. It is kept apart from
// MountRoutes so callers can leave it out of buffering middleware.
func (h *Handler) MountStream(r chi.Router) {
	r.With(h.RequireSection(layout.SectionRealTimeData)).Get("/ws/telemetry", h.streamTelemetry)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*access.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "credentials required")
	}
	return user, ok
}

// fail answers err as a problem. Configuration faults are logged since the
// client only sees a bare 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	level := slog.LevelWarn
	if !isClientError(err) {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, op, slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, transportError(err))
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	view, err := h.composer.Compose(user)
	if err != nil {
		h.fail(w, r, "compose view", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type capabilitiesResponse struct {
	User         string               `json:"user"`
	Role         string               `json:"role"`
	Capabilities access.CapabilitySet `json:"capabilities"`
}

func (h *Handler) capabilities(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	caps, err := access.CapabilitiesFor(user)
	if err != nil {
		h.fail(w, r, "resolve capabilities", err)
		return
	}
	httpx.JSON(w, http.StatusOK, capabilitiesResponse{
		User:         user.Username,
		Role:         user.Role.Label(),
		Capabilities: caps,
	})
}

type controlsResponse struct {
	Section  string   `json:"section"`
	Visible  bool     `json:"visible"`
	Controls []string `json:"controls"`
}

func (h *Handler) controls(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	sectionID := chi.URLParam(r, "section")
	visible, err := h.composer.CanSee(user, sectionID)
	if err != nil {
		h.fail(w, r, "section visibility", err)
		return
	}
	controls, err := h.composer.EnabledControls(user, sectionID)
	if err != nil {
		h.fail(w, r, "enabled controls", err)
		return
	}
	if controls == nil {
		controls = []string{}
	}
	httpx.JSON(w, http.StatusOK, controlsResponse{Section: sectionID, Visible: visible, Controls: controls})
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request) {
	readings, err := h.snapshot.Latest(r.Context())
	if err != nil {
		h.fail(w, r, "latest readings", err)
		return
	}
	httpx.List(w, readings)
}

func (h *Handler) clearLatest(w http.ResponseWriter, r *http.Request) {
	if err := h.snapshot.Clear(r.Context()); err != nil {
		h.fail(w, r, "clear readings", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	if h.readings == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "reading persistence disabled")
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	readings, err := h.readings.Recent(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "recent readings", err)
		return
	}
	httpx.List(w, readings)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "sensor feed disabled")
		return
	}
	httpx.JSON(w, http.StatusOK, h.monitor.Status())
}

func (h *Handler) startMonitoring(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "sensor feed disabled")
		return
	}
	if err := h.monitor.Start(); err != nil {
		h.fail(w, r, "start monitoring", err)
		return
	}
	h.logger.Info("sensor monitoring resumed", slog.String("by", actor(r)))
	httpx.JSON(w, http.StatusOK, h.monitor.Status())
}

func (h *Handler) stopMonitoring(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "sensor feed disabled")
		return
	}
	h.monitor.Stop()
	h.logger.Info("sensor monitoring paused", slog.String("by", actor(r)))
	httpx.JSON(w, http.StatusOK, h.monitor.Status())
}

func actor(r *http.Request) string {
	if user, ok := auth.UserFromContext(r.Context()); ok {
		return user.Username
	}
	return ""
}

type filterError string

func (e filterError) Error() string { return string(e) }

func parseFilter(r *http.Request) (telemetry.Filter, error) {
	q := r.URL.Query()
	filter := telemetry.Filter{Sensor: strings.TrimSpace(q.Get("sensor"))}
	if raw := q.Get("anomalies"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return telemetry.Filter{}, filterError("anomalies must be a boolean")
		}
		filter.AnomaliesOnly = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return telemetry.Filter{}, filterError("limit must be a positive integer")
		}
		filter.Limit = v
	}
	return filter, nil
}
