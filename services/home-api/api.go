package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// APIHandler serves the JSON API on top of Service.
type APIHandler struct {
	svc    *Service
	logger *slog.Logger
}

func NewAPIHandler(svc *Service, logger *slog.Logger) *APIHandler {
	return &APIHandler{svc: svc, logger: logger}
}

func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/channels", h.handleListChannels)
	mux.HandleFunc("GET /api/channels/{key}/history", h.handleGetHistory)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
}

// handleListChannels: GET /api/channels
func (h *APIHandler) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.svc.ListChannels(r.Context())
	if err != nil {
		h.logger.Error("list channels", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, channels)
}

// handleGetHistory: GET /api/channels/{key}/history?range=24h
func (h *APIHandler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	rangeParam := r.URL.Query().Get("range")
	if rangeParam == "" {
		rangeParam = "24h"
	}

	points, err := h.svc.GetHistory(r.Context(), key, rangeParam)
	switch {
	case errors.Is(err, ErrUnknownChannel):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, ErrInvalidRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error("load history", "key", key, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, points)
}

// writeJSON encodes before writing the header, so an encoding failure is a
// 500 instead of a 200 with an empty body.
func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		h.logger.Error("encode json response", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("write json response", "error", err)
	}
}

// CorsMiddleware lets the dashboard page call the API from another origin.
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
