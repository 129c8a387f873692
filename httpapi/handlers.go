// Package httpapi exposes an OpenRGB session over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ngerakines/rgbops/client"
	"github.com/ngerakines/rgbops/wire"
)

// requestTimeout bounds the OpenRGB calls made for one HTTP request.
const requestTimeout = 10 * time.Second

// Handler serves the bridge endpoints.
type Handler struct {
	client client.RGBClient
}

func NewHandler(rgbClient client.RGBClient) *Handler {
	return &Handler{client: rgbClient}
}

type colorRequest struct {
	Color string `json:"color"`
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Debug("writing response")
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]interface{}{
		"error": message,
		"code":  status,
	})
}

// clientError maps a facade error onto a status code.
func clientError(w http.ResponseWriter, err error) {
	switch {
	case client.IsValidation(err):
		errorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, wire.ErrUnsupportedKind):
		errorResponse(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		errorResponse(w, http.StatusGatewayTimeout, err.Error())
	default:
		log.WithError(err).Error("openrgb request failed")
		errorResponse(w, http.StatusBadGateway, err.Error())
	}
}

func uintParam(r *http.Request, name string) (uint32, bool) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Err(); err != nil {
		errorResponse(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"protocolVersion": h.client.ProtocolVersion(),
	})
}

func (h *Handler) ListControllers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	controllers, err := h.client.Controllers(ctx)
	if err != nil {
		clientError(w, err)
		return
	}
	infos := make([]client.ControllerInfo, 0, len(controllers))
	for _, c := range controllers {
		infos = append(infos, client.Summarize(c))
	}
	jsonResponse(w, http.StatusOK, infos)
}

func (h *Handler) GetController(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "invalid controller id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	c, err := h.client.Controller(ctx, id)
	if err != nil {
		if client.IsValidation(err) {
			errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		clientError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, client.Summarize(c))
}

func (h *Handler) SetZoneColor(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "invalid controller id")
		return
	}
	zone, ok := uintParam(r, "zone")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "invalid zone")
		return
	}
	var req colorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	color, err := colorful.Hex(req.Color)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid color "+strconv.Quote(req.Color))
		return
	}
	r8, g8, b8 := color.Clamped().RGB255()

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := h.client.UpdateZoneColor(ctx, id, zone, wire.RGB(r8, g8, b8)); err != nil {
		clientError(w, err)
		return
	}
	log.WithFields(log.Fields{
		"controller": id,
		"zone":       zone,
		"color":      color.Hex(),
	}).Info("zone color set")
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"color":  color.Hex(),
	})
}

func (h *Handler) SetCustomMode(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(r, "id")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "invalid controller id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	mode, err := h.client.SetControllableMode(ctx, id)
	if err != nil {
		clientError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"mode":   mode.Name,
	})
}
