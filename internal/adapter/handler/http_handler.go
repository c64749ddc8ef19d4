package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"stockpilot/internal/core/domain"
	"stockpilot/internal/core/service"
	"stockpilot/internal/metrics"
)

// HTTPHandler is the presentation boundary: thin JSON wrappers around
// the state store and engine.
type HTTPHandler struct {
	store           *service.StateStore
	engine          *service.Engine
	defaultInterval time.Duration
}

func NewHTTPHandler(store *service.StateStore, engine *service.Engine, defaultInterval time.Duration) *HTTPHandler {
	return &HTTPHandler{store: store, engine: engine, defaultInterval: defaultInterval}
}

// Register installs all routes on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/state", h.State)
	mux.HandleFunc("POST /api/sales", h.RecordSale)
	mux.HandleFunc("POST /api/stock/adjust", h.AdjustStock)
	mux.HandleFunc("POST /api/orders/{id}/send", h.SendOrder)
	mux.HandleFunc("POST /api/orders/{id}/receive", h.ReceiveOrder)
	mux.HandleFunc("POST /api/orders/send-all", h.SendAll)
	mux.HandleFunc("POST /api/orders/receive-all", h.ReceiveAll)
	mux.HandleFunc("DELETE /api/orders", h.ClearOrders)
	mux.HandleFunc("POST /api/simulator/start", h.StartSimulator)
	mux.HandleFunc("POST /api/simulator/stop", h.StopSimulator)
}

type saleRequest struct {
	StoreID string `json:"storeId"`
	SKUID   string `json:"skuId"`
	Qty     int    `json:"qty"`
	Channel string `json:"channel"`
}

type adjustRequest struct {
	StoreID string `json:"storeId"`
	SKUID   string `json:"skuId"`
	Delta   int    `json:"delta"`
}

type simulatorRequest struct {
	IntervalMillis int `json:"intervalMillis"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type bulkResponse struct {
	Success      bool `json:"success"`
	Transitioned int  `json:"transitioned"`
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// RecordSale queues a manual sale on the engine, so manual demand runs
// the same apply-then-evaluate chain as simulated demand and can raise
// a reorder on its own.
func (h *HTTPHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "invalid request body"})
		return
	}
	if req.Qty <= 0 || req.StoreID == "" || req.SKUID == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "sale needs a store, a sku and a positive qty"})
		return
	}
	if req.Channel == "" {
		req.Channel = "manual"
	}

	h.engine.Submit(domain.Sale{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		StoreID:   req.StoreID,
		SKUID:     req.SKUID,
		Qty:       req.Qty,
		Channel:   req.Channel,
	})
	writeJSON(w, http.StatusAccepted, statusResponse{Success: true, Message: "sale accepted"})
}

func (h *HTTPHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "invalid request body"})
		return
	}
	if req.StoreID == "" || req.SKUID == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "missing storeId or skuId"})
		return
	}

	if err := h.store.AdjustStock(r.Context(), req.StoreID, req.SKUID, req.Delta); err != nil {
		h.warnPersistence(err)
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "stock adjusted"})
}

func (h *HTTPHandler) SendOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.store.SendOrder(r.Context(), r.PathValue("id")); err != nil {
		h.warnPersistence(err)
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "order sent"})
}

func (h *HTTPHandler) ReceiveOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ReceiveOrder(r.Context(), r.PathValue("id")); err != nil {
		h.warnPersistence(err)
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "order received"})
}

func (h *HTTPHandler) SendAll(w http.ResponseWriter, r *http.Request) {
	moved, err := h.store.SendAll(r.Context())
	if err != nil {
		h.warnPersistence(err)
	}
	writeJSON(w, http.StatusOK, bulkResponse{Success: true, Transitioned: moved})
}

func (h *HTTPHandler) ReceiveAll(w http.ResponseWriter, r *http.Request) {
	moved, err := h.store.ReceiveAll(r.Context())
	if err != nil {
		h.warnPersistence(err)
	}
	writeJSON(w, http.StatusOK, bulkResponse{Success: true, Transitioned: moved})
}

func (h *HTTPHandler) ClearOrders(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearOrders(r.Context()); err != nil {
		h.warnPersistence(err)
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "orders cleared"})
}

func (h *HTTPHandler) StartSimulator(w http.ResponseWriter, r *http.Request) {
	interval := h.defaultInterval
	var req simulatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.IntervalMillis > 0 {
		interval = time.Duration(req.IntervalMillis) * time.Millisecond
	}

	if err := h.engine.StartSimulator(interval); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, statusResponse{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "simulator started"})
}

func (h *HTTPHandler) StopSimulator(w http.ResponseWriter, r *http.Request) {
	h.engine.StopSimulator()
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "simulator stopped"})
}

// warnPersistence reports a failed gateway write. The in-memory
// mutation already happened, so the request still succeeds.
func (h *HTTPHandler) warnPersistence(err error) {
	log.Printf("warning: %v", err)
	metrics.PersistenceFailures.Inc()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
