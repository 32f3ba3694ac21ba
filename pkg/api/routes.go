package api

import (
	"net/http"

	"github.com/adfharrison1/go-analytics/pkg/analytics"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")

	// Collection operations
	router.HandleFunc("/collections", h.HandleListCollections).Methods("GET")
	router.HandleFunc("/collections/{coll}", h.HandleInsert).Methods("POST")
	router.HandleFunc("/collections/{coll}/batch", h.HandleBatchInsert).Methods("POST")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleGetById).Methods("GET")

	// Find with optional filtering (query parameters)
	router.HandleFunc("/collections/{coll}/find", h.HandleFind).Methods("GET")
	router.HandleFunc("/collections/{coll}/stream", h.HandleStream).Methods("GET")

	// Index operations
	router.HandleFunc("/collections/{coll}/indexes", h.HandleGetIndexes).Methods("GET")
	router.HandleFunc("/collections/{coll}/indexes/{field}", h.HandleCreateIndex).Methods("POST")
	router.HandleFunc("/collections/{coll}/indexes/{field}", h.HandleDropIndex).Methods("DELETE")

	router.HandleFunc("/collections/{coll}/aggregate", h.HandleAggregate).Methods("POST")

	h.registerRecordRoutes(router)

	// Reports
	router.HandleFunc("/products/stats", h.HandleProductStats).Methods("GET")
	router.HandleFunc("/users/friend-stats", h.HandleFriendStats).Methods("GET")
	router.HandleFunc("/average-ratings", h.HandleAverageRatings).Methods("GET")
	router.HandleFunc("/customer-revenue", h.HandleCustomerRevenue).Methods("GET")
	router.HandleFunc("/order5-agg", h.HandleOrderTotals).Methods("POST")
	router.HandleFunc("/aggregate-events", h.HandleEventsByUser).Methods("POST")
	router.HandleFunc("/total-revenue", h.HandleSalesRevenue).Methods("POST")
}

// recordPaths maps each record collection to its create endpoint.
var recordPaths = map[string]string{
	analytics.ProductsCollection: "/products",
	analytics.UsersCollection:    "/users",
	analytics.MoviesCollection:   "/movies",
	analytics.OrdersCollection:   "/orders",
	analytics.Order5sCollection:  "/order5",
	analytics.EventsCollection:   "/add-event",
	analytics.SalesCollection:    "/add-sale",
}

func (h *Handler) registerRecordRoutes(router *mux.Router) {
	for _, shape := range analytics.Shapes {
		path, ok := recordPaths[shape.Collection]
		if !ok {
			continue
		}
		router.Handle(path, h.HandleCreateRecord(shape)).Methods(http.MethodPost)
	}
}
