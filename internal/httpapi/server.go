// Package httpapi is the request boundary: routing, actor resolution and
// error-to-status mapping. Handlers stay thin; all domain rules live in
// the services they call.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ecomstack/storefront/internal/accounts"
	"github.com/ecomstack/storefront/internal/auth"
	"github.com/ecomstack/storefront/internal/cart"
	"github.com/ecomstack/storefront/internal/inventory"
	"github.com/ecomstack/storefront/internal/orders"
	"github.com/ecomstack/storefront/internal/websocket"
	"github.com/ecomstack/storefront/pkg/models"
)

type Server struct {
	logger   *logrus.Logger
	tokens   *auth.Manager
	accounts *accounts.Service
	cart     *cart.Service
	ledger   *inventory.Ledger
	orders   *orders.Service
	hub      *websocket.Hub
	router   *mux.Router
}

func NewServer(
	logger *logrus.Logger,
	tokens *auth.Manager,
	accountsSvc *accounts.Service,
	cartSvc *cart.Service,
	ledger *inventory.Ledger,
	ordersSvc *orders.Service,
	hub *websocket.Hub,
) *Server {
	s := &Server{
		logger:   logger,
		tokens:   tokens,
		accounts: accountsSvc,
		cart:     cartSvc,
		ledger:   ledger,
		orders:   ordersSvc,
		hub:      hub,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(s.logger))
	router.Use(corsMiddleware)

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Identity lifecycle; the same handlers serve both roles.
	client := router.PathPrefix("/client").Subrouter()
	client.HandleFunc("/signup", s.handleSignup(models.RoleClient)).Methods("POST")
	client.HandleFunc("/signup/verify", s.handleVerifySignup(models.RoleClient)).Methods("POST")
	client.HandleFunc("/signin", s.handleSignin(models.RoleClient)).Methods("POST")
	client.HandleFunc("/password/forgot", s.handleForgotPassword(models.RoleClient)).Methods("POST")
	client.HandleFunc("/password/reset", s.handleResetPassword(models.RoleClient)).Methods("POST")
	client.HandleFunc("/products", s.handleListProducts).Methods("GET")

	admin := router.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/signup", s.handleSignup(models.RoleAdmin)).Methods("POST")
	admin.HandleFunc("/signup/verify", s.handleVerifySignup(models.RoleAdmin)).Methods("POST")
	admin.HandleFunc("/signin", s.handleSignin(models.RoleAdmin)).Methods("POST")
	admin.HandleFunc("/password/forgot", s.handleForgotPassword(models.RoleAdmin)).Methods("POST")
	admin.HandleFunc("/password/reset", s.handleResetPassword(models.RoleAdmin)).Methods("POST")

	// Authenticated client surface.
	clientAuth := router.PathPrefix("/client").Subrouter()
	clientAuth.Use(s.requireRole(models.RoleClient))
	clientAuth.HandleFunc("/logout", s.handleLogout).Methods("POST")
	clientAuth.HandleFunc("/profile", s.handleProfile).Methods("GET")
	clientAuth.HandleFunc("/profile", s.handleUpdateProfile).Methods("PATCH")
	clientAuth.HandleFunc("/cart/add/{productId}", s.handleCartAdd).Methods("POST")
	clientAuth.HandleFunc("/cart/remove/{productId}", s.handleCartRemove).Methods("DELETE")
	clientAuth.HandleFunc("/cart/products", s.handleCartList).Methods("GET")
	clientAuth.HandleFunc("/cart/checkout", s.handleCheckout).Methods("POST")
	clientAuth.HandleFunc("/products/placeorder", s.handlePlaceOrder).Methods("POST")
	clientAuth.HandleFunc("/products/cancelorder/{orderId}", s.handleCancelOrder).Methods("DELETE")
	clientAuth.HandleFunc("/order/confirm/{orderId}", s.handleConfirmOrder).Methods("POST")
	clientAuth.HandleFunc("/orders", s.handleTrackOrders).Methods("GET")

	// Authenticated admin surface.
	adminAuth := router.PathPrefix("/admin").Subrouter()
	adminAuth.Use(s.requireRole(models.RoleAdmin))
	adminAuth.HandleFunc("/logout", s.handleLogout).Methods("POST")
	adminAuth.HandleFunc("/orders/accept_order/{orderId}", s.handleAcceptOrder).Methods("POST")
	adminAuth.HandleFunc("/orders/reject_order/{orderId}", s.handleRejectOrder).Methods("DELETE")
	adminAuth.HandleFunc("/orders/fetch_orders", s.handleFetchOrders).Methods("GET")
	adminAuth.HandleFunc("/orders/live", s.hub.HandleWebSocket).Methods("GET")
	adminAuth.HandleFunc("/products", s.handleAddProduct).Methods("POST")
	adminAuth.HandleFunc("/products", s.handleListProducts).Methods("GET")
	adminAuth.HandleFunc("/products/{productId}", s.handleUpdateProduct).Methods("PATCH")
	adminAuth.HandleFunc("/products/{productId}", s.handleDeleteProduct).Methods("DELETE")

	s.router = router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "storefront",
	})
}
