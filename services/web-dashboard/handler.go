package main

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/telemetry"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// channelLabels are the card titles shown on the dashboard.
var channelLabels = map[string]string{
	"temp":      "Temperatura",
	"hum":       "Humedad",
	"press":     "Presión",
	"alt":       "Altitud",
	"pm25":      "PM 2.5",
	"pm10":      "PM 10",
	"windSpeed": "Viento",
	"windDir":   "Dirección del viento",
	"gas":       "Gas",
	"lluvia":    "Lluvia",
}

func channelLabel(key string) string {
	if l, ok := channelLabels[key]; ok {
		return l
	}
	return key
}

// Panel is one card on the dashboard.
type Panel struct {
	Key      string
	TargetID string
	Label    string
	Text     string
}

// WebHandler prepares data for the page and the JSON endpoints.
type WebHandler struct {
	mapper *telemetry.Mapper
	board  *Board
	hub    *Hub
	themes ThemeStore
	api    *APIClient // nil when home-api is not configured
	logger *slog.Logger
	tmpl   *template.Template

	newRand func() *rand.Rand
}

// NewWebHandler parses the embedded templates.
func NewWebHandler(mapper *telemetry.Mapper, board *Board, hub *Hub, themes ThemeStore, api *APIClient, logger *slog.Logger) (*WebHandler, error) {
	// FuncMap must be registered before the templates are parsed.
	funcMap := template.FuncMap{
		"to_json": func(v any) template.JS {
			a, err := json.Marshal(v)
			if err != nil {
				return template.JS("null")
			}
			return template.JS(a)
		},
	}

	tmpl, err := template.New("base").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &WebHandler{
		mapper: mapper,
		board:  board,
		hub:    hub,
		themes: themes,
		api:    api,
		logger: logger,
		tmpl:   tmpl,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}, nil
}

// RegisterRoutes mounts every dashboard route on mux.
func (h *WebHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /channel/{key}", h.HandleDetail)

	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("GET /api/values", h.handleValues)
	mux.HandleFunc("GET /api/theme", h.handleGetTheme)
	mux.HandleFunc("PUT /api/theme", h.handlePutTheme)

	mux.HandleFunc("GET /ws", h.hub.ServeWS)

	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
}

func (h *WebHandler) panels() []Panel {
	values := h.board.Snapshot()

	var panels []Panel
	for _, ch := range h.mapper.Registry().Channels() {
		if !h.board.Has(ch.TargetID) {
			continue
		}
		panels = append(panels, Panel{
			Key:      ch.Key,
			TargetID: ch.TargetID,
			Label:    channelLabel(ch.Key),
			Text:     values[ch.TargetID],
		})
	}
	return panels
}

func (h *WebHandler) loadTheme(r *http.Request) bool {
	dark, err := h.themes.Load(r.Context())
	if err != nil {
		// Light mode is a safe fallback for a decorative preference.
		h.logger.Warn("theme load failed, using light mode", "error", err)
		return false
	}
	return dark
}

// HandleIndex renders the dashboard.
func (h *WebHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title":   "Estación Meteorológica Horus",
		"Page":    "index",
		"Panels":  h.panels(),
		"Status":  h.mapper.Snapshot(),
		"Theme":   newThemeView(h.loadTheme(r), h.newRand()),
		"History": h.api != nil,
	}

	if err := h.tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.logger.Error("render index", "error", err)
	}
}

// HandleDetail renders the history chart of one channel.
func (h *WebHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	ch, ok := h.mapper.Registry().Lookup(key)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if h.api == nil {
		http.Error(w, "history is not configured", http.StatusServiceUnavailable)
		return
	}

	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "24h"
	}
	if _, err := time.ParseDuration(rng); err != nil {
		http.Error(w, "invalid range", http.StatusBadRequest)
		return
	}

	points, err := h.api.GetHistory(r.Context(), key, rng)
	if err != nil {
		h.logger.Error("history request failed", "key", key, "error", err)
		http.Error(w, "home-api unavailable", http.StatusBadGateway)
		return
	}

	data := map[string]any{
		"Title":   channelLabel(ch.Key),
		"Page":    "detail",
		"Channel": ch,
		"Points":  points,
		"Range":   rng,
		"Ranges":  []string{"1h", "6h", "24h", "168h"},
		"Theme":   newThemeView(h.loadTheme(r), h.newRand()),
		"Status":  h.mapper.Snapshot(),
	}

	if err := h.tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.logger.Error("render detail", "error", err)
	}
}

type statusResponse struct {
	telemetry.Snapshot
	Clients int `json:"clients"`
}

func (h *WebHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Snapshot: h.mapper.Snapshot(),
		Clients:  h.hub.ClientCount(),
	}, h.logger)
}

func (h *WebHandler) handleValues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.board.Snapshot(), h.logger)
}

func (h *WebHandler) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newThemeView(h.loadTheme(r), h.newRand()), h.logger)
}

type themeRequest struct {
	Dark *bool `json:"dark"`
}

// handlePutTheme receives the toggle and returns a fresh effect layer.
func (h *WebHandler) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil || req.Dark == nil {
		http.Error(w, `body must be {"dark": true|false}`, http.StatusBadRequest)
		return
	}

	if err := h.themes.Save(r.Context(), *req.Dark); err != nil {
		h.logger.Error("theme save failed", "error", err)
		http.Error(w, "theme not saved", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, newThemeView(*req.Dark, h.newRand()), h.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Error("encode json response", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Error("write json response", "error", err)
	}
}
