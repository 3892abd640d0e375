package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ecomstack/storefront/pkg/models"
)

func (s *Server) handleAcceptOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	orderID := mux.Vars(r)["orderId"]

	order, err := s.orders.Accept(r.Context(), orderID, actor.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, models.OrderResponse{
		Success: true,
		Message: "Order accepted",
		Order:   order,
	})
}

func (s *Server) handleRejectOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	orderID := mux.Vars(r)["orderId"]

	order, err := s.orders.Reject(r.Context(), orderID, actor.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, models.OrderResponse{
		Success: true,
		Message: "Order rejected",
		Order:   order,
	})
}

func (s *Server) handleFetchOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orders.ListAll(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  orders,
		"count":   len(orders),
	})
}

func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	var req struct {
		Name     string  `json:"name"`
		Price    float64 `json:"price"`
		Quantity int     `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := s.ledger.AddProduct(r.Context(), req.Name, req.Price, req.Quantity, actor.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"product": product,
	})
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	var patch models.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := s.ledger.UpdateProduct(r.Context(), productID, patch)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"product": product,
	})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	if err := s.ledger.DeleteProduct(r.Context(), productID); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Product deleted",
	})
}
