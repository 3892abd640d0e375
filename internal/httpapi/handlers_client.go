package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ecomstack/storefront/pkg/models"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.ledger.Products(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"products": products,
		"count":    len(products),
	})
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	productID := mux.Vars(r)["productId"]

	// Body is optional; an empty body means quantity 1.
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := s.cart.Add(r.Context(), actor.ID, productID, req.Quantity)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"item":    item,
	})
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	productID := mux.Vars(r)["productId"]

	if err := s.cart.Remove(r.Context(), actor.ID, productID); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Product removed from cart",
	})
}

func (s *Server) handleCartList(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	items, err := s.cart.List(r.Context(), actor.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"items":   items,
		"count":   len(items),
	})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := s.orders.Place(r.Context(), actor.ID, req.ProductID, req.Quantity)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, models.OrderResponse{
		Success: true,
		Message: "Order placed successfully",
		Order:   order,
	})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	placed, err := s.orders.PlaceFromCart(r.Context(), actor.ID)
	if err != nil {
		// Orders placed before the failure stand; report what happened.
		if len(placed) > 0 {
			s.respondWithJSON(w, http.StatusConflict, map[string]interface{}{
				"success": false,
				"message": "Checkout partially completed",
				"orders":  placed,
			})
			return
		}
		s.respondError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"orders":  placed,
		"count":   len(placed),
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	orderID := mux.Vars(r)["orderId"]

	order, err := s.orders.Cancel(r.Context(), orderID, actor.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, models.OrderResponse{
		Success: true,
		Message: "Order cancelled",
		Order:   order,
	})
}

func (s *Server) handleConfirmOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	orderID := mux.Vars(r)["orderId"]

	order, err := s.orders.ConfirmReceived(r.Context(), orderID, actor.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, models.OrderResponse{
		Success: true,
		Message: "Order receipt confirmed",
		Order:   order,
	})
}

func (s *Server) handleTrackOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	orders, err := s.orders.ListForClient(r.Context(), actor.ID)
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
