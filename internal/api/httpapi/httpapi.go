package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shipwatch/shipwatch/internal/models"
	"github.com/shipwatch/shipwatch/internal/services/shipments"
	"github.com/shipwatch/shipwatch/internal/services/updater"
)

type ShipmentService interface {
	IngestEmail(ctx context.Context, subject, body string) (shipments.IngestResult, error)
	Add(ctx context.Context, trackingNumber string, carrier models.Carrier, description string) (*models.Shipment, error)
	Get(ctx context.Context, id string) (*models.Shipment, bool, error)
	List(ctx context.Context) ([]*models.Shipment, error)
	Archive(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type UpdateRunner interface {
	Trigger()
	Stats() updater.Stats
}

type emailPayload struct {
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	FromAddress string `json:"from_address,omitempty"`
}

type addPayload struct {
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
	Description    string `json:"description,omitempty"`
}

func NewRouter(svc ShipmentService, upd UpdateRunner) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/webhooks/email/shipping", func(w http.ResponseWriter, r *http.Request) {
		var p emailPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		res, err := svc.IngestEmail(r.Context(), p.Subject, p.Body)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Route("/shipments", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			all, err := svc.List(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"shipments": all})
		})

		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var p addPayload
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
				writeError(w, http.StatusBadRequest, "invalid payload")
				return
			}
			sh, err := svc.Add(r.Context(), p.TrackingNumber, models.ParseCarrier(p.Carrier), p.Description)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeJSON(w, http.StatusCreated, sh)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			sh, ok, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if !ok {
				writeError(w, http.StatusNotFound, "shipment not found")
				return
			}
			writeJSON(w, http.StatusOK, sh)
		})

		r.Post("/{id}/archive", func(w http.ResponseWriter, r *http.Request) {
			ok, err := svc.Archive(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if !ok {
				writeError(w, http.StatusNotFound, "shipment not found")
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"archived": true})
		})

		r.Post("/{id}/delete", func(w http.ResponseWriter, r *http.Request) {
			ok, err := svc.Delete(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if !ok {
				writeError(w, http.StatusNotFound, "shipment not found")
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
		})
	})

	r.Route("/update", func(r chi.Router) {
		r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
			if upd == nil {
				writeError(w, http.StatusServiceUnavailable, "updater not wired")
				return
			}
			upd.Trigger()
			writeJSON(w, http.StatusOK, map[string]bool{"triggered": true})
		})
		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			if upd == nil {
				writeError(w, http.StatusServiceUnavailable, "updater not wired")
				return
			}
			writeJSON(w, http.StatusOK, upd.Stats())
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
