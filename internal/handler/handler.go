// Package handler is the HTTP boundary: routing, payload decoding and the
// mapping from the service error taxonomy to response statuses.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/gorilla/mux"

	"shortlink/internal/model"
	"shortlink/internal/service"
)

// maxBodyBytes caps create-request bodies; destination URLs are never that big.
const maxBodyBytes = 64 << 10

// Shortener is the slice of the service the handler needs.
type Shortener interface {
	Allocate(ctx context.Context, destination, requestedSlug, creatorAddress string) (*model.URLMapping, error)
	Resolve(ctx context.Context, slug string) (string, error)
}

type Handler struct {
	Service Shortener
	Health  func(context.Context) error
	Log     *slog.Logger
}

// shortenRequest is the structured create payload. A non-JSON body is instead
// taken verbatim as the destination URL.
type shortenRequest struct {
	URL  string `json:"url"`
	Slug string `json:"slug,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func NewHandler(s Shortener, health func(context.Context) error, log *slog.Logger) *Handler {
	if health == nil {
		health = func(context.Context) error { return nil }
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Service: s, Health: health, Log: log}
}

func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", h.CreateMapping).Methods("POST")
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/{slug}", h.Redirect).Methods("GET")

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			h.Log.InfoContext(req.Context(), "request", "method", req.Method, "path", req.URL.Path)
			next.ServeHTTP(w, req)
		})
	})

	return r
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.Health(r.Context()); err != nil {
		h.Log.ErrorContext(r.Context(), "healthcheck failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) CreateMapping(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	destination := string(body)
	var requestedSlug string
	if isJSONContentType(r.Header.Get("Content-Type")) {
		var req shortenRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("error parsing json: %v", err))
			return
		}
		destination = req.URL
		requestedSlug = req.Slug
	}
	if destination == "" {
		writeError(w, http.StatusBadRequest, "destination url is missing")
		return
	}

	m, err := h.Service.Allocate(r.Context(), destination, requestedSlug, clientAddress(r))
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			h.Log.ErrorContext(r.Context(), "allocation failed", "error", err)
		}
		writeError(w, status, msg)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}

func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	slugID := mux.Vars(r)["slug"]

	destination, err := h.Service.Resolve(r.Context(), slugID)
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			h.Log.ErrorContext(r.Context(), "resolution failed", "slug", slugID, "error", err)
		}
		writeError(w, status, msg)
		return
	}
	http.Redirect(w, r, destination, http.StatusSeeOther)
}

// statusFor maps a service error to a response status and a short message.
// The taxonomy is closed; anything unrecognized is an internal fault.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrSlugOccupied):
		return http.StatusConflict, "This slug is already in use."
	case errors.Is(err, service.ErrTooManyRetries):
		return http.StatusRequestTimeout, "Unable to find a random slug to use, try again later."
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Shortened URL not found."
	case errors.Is(err, service.ErrEmptyDestination):
		return http.StatusBadRequest, "Destination URL is missing."
	default:
		return http.StatusInternalServerError, "There was an error with the database."
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Message: msg})
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
