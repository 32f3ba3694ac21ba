package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/adfharrison1/go-analytics/pkg/analytics"
	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/rs/zerolog/log"
)

// DateRangeRequest is the body of the date-bounded reports.
type DateRangeRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type listReport func(ctx context.Context) ([]domain.Document, error)

type rangeReport func(ctx context.Context, r analytics.DateRange) ([]domain.Document, error)

func (h *Handler) serveReport(name string, run listReport) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Str("report", name).Msg("handleReport called")

		results, err := run(r.Context())
		if err != nil {
			log.Error().Err(err).Str("report", name).Msg("Report failed")
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, documents(results))
	}
}

func (h *Handler) serveRangeReport(name string, run rangeReport) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Str("report", name).Msg("handleReport called")

		var req DateRangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		dates, err := analytics.ParseDateRange(req.StartDate, req.EndDate)
		if err != nil {
			WriteError(w, err)
			return
		}

		results, err := run(r.Context(), dates)
		if err != nil {
			log.Error().Err(err).Str("report", name).Msg("Report failed")
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, documents(results))
	}
}

// HandleProductStats serves total revenue, quantity and average price per category.
func (h *Handler) HandleProductStats(w http.ResponseWriter, r *http.Request) {
	h.serveReport("product-stats", h.reports.ProductStats)(w, r)
}

// HandleFriendStats serves the average age over all users.
func (h *Handler) HandleFriendStats(w http.ResponseWriter, r *http.Request) {
	log.Info().Str("report", "friend-stats").Msg("handleReport called")

	result, err := h.reports.FriendStats(r.Context())
	if err != nil {
		log.Error().Err(err).Str("report", "friend-stats").Msg("Report failed")
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleAverageRatings serves the average rating per genre.
func (h *Handler) HandleAverageRatings(w http.ResponseWriter, r *http.Request) {
	h.serveReport("average-ratings", h.reports.AverageRatings)(w, r)
}

// HandleCustomerRevenue serves revenue and order counts per customer.
func (h *Handler) HandleCustomerRevenue(w http.ResponseWriter, r *http.Request) {
	h.serveReport("customer-revenue", h.reports.CustomerRevenue)(w, r)
}

// HandleOrderTotals serves order totals per customer within a date range.
func (h *Handler) HandleOrderTotals(w http.ResponseWriter, r *http.Request) {
	h.serveRangeReport("order-totals", h.reports.OrderTotals)(w, r)
}

// HandleEventsByUser serves event counts per user and type within a date range.
func (h *Handler) HandleEventsByUser(w http.ResponseWriter, r *http.Request) {
	h.serveRangeReport("events-by-user", h.reports.EventsByUser)(w, r)
}

// HandleSalesRevenue serves revenue per product within a date range.
func (h *Handler) HandleSalesRevenue(w http.ResponseWriter, r *http.Request) {
	h.serveRangeReport("total-revenue", h.reports.SalesRevenue)(w, r)
}
