package ops

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/puznanski/SIK-ticketserver/internal/logger"
	"github.com/puznanski/SIK-ticketserver/internal/server"
	"github.com/puznanski/SIK-ticketserver/internal/utils"
)

// Handler serves the operational HTTP surface. It reads only published
// stats snapshots; it never touches the protocol engine.
type Handler struct {
	Stats  *server.StatsBoard
	Logger *logger.Logger
}

// envelope is the JSON wrapper every ops endpoint responds with.
type envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
	Time   time.Time   `json:"time"`
}

// Router wires the ops routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", h.Healthz)
	r.Get("/stats", h.GetStats)
	r.Get("/events", h.GetEvents)
	r.Get("/tickets/{code}/qr", h.TicketQR)
	return r
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, envelope{Status: "ok", Time: time.Now().UTC()})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, envelope{
		Status: "ok",
		Data:   h.Stats.Current(),
		Time:   time.Now().UTC(),
	})
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, envelope{
		Status: "ok",
		Data:   h.Stats.Current().Events,
		Time:   time.Now().UTC(),
	})
}

// TicketQR renders an issued ticket code as a QR PNG for venue-side
// scanners.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !utils.IsTicketCode(code) {
		h.writeJSON(w, r, http.StatusBadRequest, envelope{
			Status: "error",
			Error:  "not a ticket code: want 7 characters of 0-9A-Z",
			Time:   time.Now().UTC(),
		})
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		h.writeJSON(w, r, http.StatusInternalServerError, envelope{
			Status: "error",
			Error:  err.Error(),
			Time:   time.Now().UTC(),
		})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
	if h.Logger != nil {
		h.Logger.LogOps(r.Method, r.URL.Path, "200")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
	if h.Logger != nil {
		h.Logger.LogOps(r.Method, r.URL.Path, http.StatusText(status))
	}
}
