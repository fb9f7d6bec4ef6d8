// internal/adapters/in/http/handler/cart_handler.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	query "cartsync/internal/application/query"
	usecase "cartsync/internal/application/usecase"
)

// CartHandler serves the cart endpoints.
//
// Routes (mounted under /cart by the router):
// - GET    /cart              -> current cart view
// - DELETE /cart              -> clear cart
// - POST   /cart/items        -> add line (qty +1, clamped)
// - PUT    /cart/items        -> set quantity
// - DELETE /cart/items        -> remove line (?productId= or JSON body)
// - POST   /cart/flush        -> forced flush of the pending snapshot
type CartHandler struct {
	engine *usecase.CartEngine
	view   *query.CartViewService
}

func NewCartHandler(engine *usecase.CartEngine, view *query.CartViewService) http.Handler {
	return &CartHandler{engine: engine, view: view}
}

func (h *CartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	path := strings.TrimRight(r.URL.Path, "/")
	if path == "" {
		path = "/"
	}

	log.Printf("[cart_handler] enter method=%s path=%q query=%q", r.Method, path, r.URL.RawQuery)

	if h.engine == nil {
		log.Printf("[cart_handler] exit status=500 reason=engine is nil elapsed=%s", time.Since(start))
		writeErr(w, http.StatusInternalServerError, "cart engine is not configured")
		return
	}

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/cart"):
		h.handleGet(w, r, start)
	case r.Method == http.MethodDelete && strings.HasSuffix(path, "/cart"):
		h.handleClear(w, r, start)
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/cart/items"):
		h.handleAddItem(w, r, start)
	case r.Method == http.MethodPut && strings.HasSuffix(path, "/cart/items"):
		h.handleSetQty(w, r, start)
	case r.Method == http.MethodDelete && strings.HasSuffix(path, "/cart/items"):
		h.handleRemoveItem(w, r, start)
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/cart/flush"):
		h.handleFlush(w, r, start)
	default:
		log.Printf("[cart_handler] exit status=404 method=%s path=%q elapsed=%s", r.Method, path, time.Since(start))
		writeErr(w, http.StatusNotFound, "not found")
	}
}

func (h *CartHandler) handleGet(w http.ResponseWriter, r *http.Request, start time.Time) {
	if h.view == nil {
		writeErr(w, http.StatusInternalServerError, "cart view is not configured")
		return
	}
	view, err := h.view.GetCartView(r.Context())
	if err != nil {
		log.Printf("[cart_handler] GET exit status=500: %v elapsed=%s", err, time.Since(start))
		writeErr(w, http.StatusInternalServerError, "failed to build cart view")
		return
	}
	log.Printf("[cart_handler] GET exit status=200 lines=%d elapsed=%s", len(view.Lines), time.Since(start))
	writeJSON(w, http.StatusOK, view)
}

type addItemRequest struct {
	ProductID   string `json:"productId"`
	DisplayName string `json:"displayName"`
	UnitPrice   int    `json:"unitPrice"`
	ImageRef    string `json:"imageRef"`
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request, start time.Time) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.engine.AddLine(r.Context(), usecase.AddLineInput{
		ProductID:   req.ProductID,
		DisplayName: req.DisplayName,
		UnitPrice:   req.UnitPrice,
		ImageRef:    req.ImageRef,
	})
	if err != nil {
		h.writeMutationErr(w, err, res, start)
		return
	}
	log.Printf("[cart_handler] POST items exit status=200 productId=%q elapsed=%s", req.ProductID, time.Since(start))
	writeMutation(w, http.StatusOK, res)
}

type setQtyRequest struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

func (h *CartHandler) handleSetQty(w http.ResponseWriter, r *http.Request, start time.Time) {
	var req setQtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.engine.SetQuantity(r.Context(), req.ProductID, req.Qty)
	if err != nil {
		h.writeMutationErr(w, err, res, start)
		return
	}
	log.Printf("[cart_handler] PUT items exit status=200 productId=%q qty=%d elapsed=%s", req.ProductID, req.Qty, time.Since(start))
	writeMutation(w, http.StatusOK, res)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request, start time.Time) {
	pid := strings.TrimSpace(r.URL.Query().Get("productId"))
	if pid == "" {
		var req setQtyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			pid = strings.TrimSpace(req.ProductID)
		}
	}

	res, err := h.engine.RemoveLine(r.Context(), pid)
	if err != nil {
		h.writeMutationErr(w, err, res, start)
		return
	}
	log.Printf("[cart_handler] DELETE items exit status=200 productId=%q elapsed=%s", pid, time.Since(start))
	writeMutation(w, http.StatusOK, res)
}

func (h *CartHandler) handleClear(w http.ResponseWriter, r *http.Request, start time.Time) {
	res, err := h.engine.Clear(r.Context())
	if err != nil {
		h.writeMutationErr(w, err, res, start)
		return
	}
	log.Printf("[cart_handler] DELETE cart exit status=200 elapsed=%s", time.Since(start))
	writeMutation(w, http.StatusOK, res)
}

func (h *CartHandler) handleFlush(w http.ResponseWriter, r *http.Request, start time.Time) {
	// Teardown path (visibilitychange / pagehide analog): fire-and-forget,
	// detached from the request context so a closing client cannot cancel it.
	h.engine.Flush(context.WithoutCancel(r.Context()))
	log.Printf("[cart_handler] POST flush exit status=204 elapsed=%s", time.Since(start))
	w.WriteHeader(http.StatusNoContent)
}

// writeMutationErr maps engine errors onto HTTP statuses. Clamp outcomes
// carry their notice so the UI can show it.
func (h *CartHandler) writeMutationErr(w http.ResponseWriter, err error, res *usecase.MutationResult, start time.Time) {
	switch {
	case errors.Is(err, usecase.ErrCartInvalidArgument):
		log.Printf("[cart_handler] exit status=400: %v elapsed=%s", err, time.Since(start))
		writeErr(w, http.StatusBadRequest, "invalid argument")
	case errors.Is(err, usecase.ErrLineNotFound):
		log.Printf("[cart_handler] exit status=404: %v elapsed=%s", err, time.Since(start))
		writeErr(w, http.StatusNotFound, "line not found")
	case errors.Is(err, usecase.ErrOutOfStock):
		log.Printf("[cart_handler] exit status=409: %v elapsed=%s", err, time.Since(start))
		body := map[string]any{"error": "out_of_stock"}
		if res != nil && res.Notice != nil {
			body["notice"] = res.Notice
		}
		writeJSON(w, http.StatusConflict, body)
	case errors.Is(err, usecase.ErrStockUnavailable):
		log.Printf("[cart_handler] exit status=503: %v elapsed=%s", err, time.Since(start))
		writeErr(w, http.StatusServiceUnavailable, "stock check unavailable, try again")
	default:
		log.Printf("[cart_handler] exit status=500: %v elapsed=%s", err, time.Since(start))
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

type mutationResponse struct {
	Lines  any `json:"lines"`
	Notice any `json:"notice,omitempty"`
}

func writeMutation(w http.ResponseWriter, code int, res *usecase.MutationResult) {
	body := mutationResponse{Lines: res.Lines}
	if res.Notice != nil {
		body.Notice = res.Notice
	}
	writeJSON(w, code, body)
}
