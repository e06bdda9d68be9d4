package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/replicate/go/logging"

	"github.com/regionatlas/atlasd/internal/config"
	"github.com/regionatlas/atlasd/internal/dataset"
	"github.com/regionatlas/atlasd/internal/util"
	"github.com/regionatlas/atlasd/internal/webhook"
)

var (
	ErrNotFound = errors.New("region not found")
	ErrNotReady = errors.New("dataset not loaded yet")
)

var logger = logging.New("atlas-http-server")

type Handler struct {
	cfg       config.Config
	store     *dataset.Store
	shutdown  context.CancelFunc
	startedAt time.Time
	setup     SetupResult
	events    *eventHub
	notifier  webhook.Sender
	defunct   atomic.Bool
}

func NewHandler(cfg config.Config, store *dataset.Store, shutdown context.CancelFunc) *Handler {
	h := &Handler{
		cfg:       cfg,
		store:     store,
		shutdown:  shutdown,
		startedAt: time.Now(),
		events:    newEventHub(),
		notifier:  webhook.NewSender(),
	}
	store.Subscribe(h.onSnapshot)
	return h
}

// SetupCompleted records the initial load outcome reported on
// /health-check.
func (h *Handler) SetupCompleted(started time.Time, err error) {
	h.setup = SetupResult{
		StartedAt:   util.FormatTime(started),
		CompletedAt: util.NowIso(),
		Status:      SetupSucceeded,
	}
	if err != nil {
		h.setup.Status = SetupFailed
		h.setup.Logs = err.Error()
	}
}

func (h *Handler) status() Status {
	switch {
	case h.defunct.Load():
		return StatusDefunct
	case h.store.Snapshot() == nil:
		return StatusStarting
	case h.store.Reloading():
		return StatusBusy
	default:
		return StatusReady
	}
}

// onSnapshot fans a successful load out to websocket subscribers, the
// configured webhook, and metrics.
func (h *Handler) onSnapshot(s *dataset.Snapshot) {
	log := logger.Sugar()
	event := Event{
		Event:         "dataset.reloaded",
		SnapshotID:    s.ID,
		LoadedAt:      util.FormatTime(s.LoadedAt),
		Regions:       len(s.Regions),
		Organizations: len(s.Organizations),
	}
	h.events.Broadcast(event)
	util.SendSnapshotMetric(s.ID, len(s.Regions), len(s.Organizations))
	if h.cfg.WebhookURL != "" {
		go func() {
			if err := h.notifier.Send(h.cfg.WebhookURL, event); err != nil {
				log.Errorw("failed to send reload webhook", "url", h.cfg.WebhookURL, "error", err)
			}
		}()
	}
}

func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	info := ServiceInfo{
		Name:    "atlasd",
		Version: util.Version(),
		Status:  h.status().String(),
	}
	if s := h.store.Snapshot(); s != nil {
		info.SnapshotID = s.ID
		info.LoadedAt = util.FormatTime(s.LoadedAt)
	}
	writeJSON(w, info)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	hc := HealthCheck{
		Status: h.status().String(),
		Setup:  &h.setup,
	}
	writeJSON(w, hc)
}

func (h *Handler) Regions(w http.ResponseWriter, r *http.Request) {
	s := h.store.Snapshot()
	if s == nil {
		http.Error(w, ErrNotReady.Error(), http.StatusServiceUnavailable)
		return
	}
	collection := RegionCollection{
		Type:       "FeatureCollection",
		SnapshotID: s.ID,
		Features:   make([]RegionFeature, 0, len(s.Regions)),
	}
	for i := range s.Regions {
		region := &s.Regions[i]
		props := RegionProperties{
			Name:      region.Name(),
			NameLatin: region.Feature.Properties.NameLatin,
			HasData:   region.HasData(),
			Rating:    region.Rating.String(),
			Color:     region.Rating.Color(),
		}
		if region.HasData() {
			v := region.Indicators.Value
			props.Value = &v
		}
		collection.Features = append(collection.Features, RegionFeature{
			Type:       "Feature",
			Properties: props,
			Geometry:   region.Feature.Geometry,
		})
	}
	writeJSON(w, collection)
}

func (h *Handler) Region(w http.ResponseWriter, r *http.Request) {
	s := h.store.Snapshot()
	if s == nil {
		http.Error(w, ErrNotReady.Error(), http.StatusServiceUnavailable)
		return
	}
	name := r.PathValue("name")
	region, ok := s.Region(name)
	if !ok {
		http.Error(w, ErrNotFound.Error(), http.StatusNotFound)
		return
	}
	detail := RegionDetail{
		Name:          region.Name(),
		NameLatin:     region.Feature.Properties.NameLatin,
		Centroid:      region.Centroid,
		HasData:       region.HasData(),
		Rating:        region.Rating.String(),
		Color:         region.Rating.Color(),
		Organizations: region.Organizations,
		Analytics:     region.Analytics,
	}
	if region.HasData() {
		v := region.Indicators.Value
		detail.Value = &v
		detail.Staffing = h.indicatorView(s, region.Indicators.Staffing)
		detail.CashUse = h.indicatorView(s, region.Indicators.CashUse)
		detail.Serviceability = h.indicatorView(s, region.Indicators.Serviceability)
	}
	writeJSON(w, detail)
}

func (h *Handler) indicatorView(s *dataset.Snapshot, ratio float64) *IndicatorView {
	rating := s.Thresholds.Rate(ratio)
	return &IndicatorView{
		Percent: math.Round(ratio*1000) / 10,
		Rating:  rating.String(),
		Color:   rating.Color(),
	}
}

func (h *Handler) Organizations(w http.ResponseWriter, r *http.Request) {
	s := h.store.Snapshot()
	if s == nil {
		http.Error(w, ErrNotReady.Error(), http.StatusServiceUnavailable)
		return
	}
	orgs := s.Organizations
	if region := r.URL.Query().Get("region"); region != "" {
		filtered := make([]dataset.Organization, 0)
		for _, o := range orgs {
			if o.Region == region {
				filtered = append(filtered, o)
			}
		}
		orgs = filtered
	}
	writeJSON(w, orgs)
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	s := h.store.Snapshot()
	if s == nil {
		http.Error(w, ErrNotReady.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.Analytics)
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Reload(r.Context())
	if errors.Is(err, dataset.ErrReloadInProgress) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, ReloadResponse{
		SnapshotID:    s.ID,
		LoadedAt:      util.FormatTime(s.LoadedAt),
		Regions:       len(s.Regions),
		Organizations: len(s.Organizations),
	})
}

func (h *Handler) Shutdown(w http.ResponseWriter, r *http.Request) {
	h.defunct.Store(true)
	h.events.Close()
	h.shutdown()
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	bs, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeBytes(w, bs)
}

func writeBytes(w http.ResponseWriter, bs []byte) {
	log := logger.Sugar()
	if _, err := w.Write(bs); err != nil {
		log.Errorw("failed to write response", "error", err)
	}
}
