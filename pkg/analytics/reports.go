// Package analytics holds the fixed reports served by the HTTP API and the
// record shapes their collections are written with.
package analytics

import (
	"github.com/adfharrison1/go-analytics/pkg/aggregation"
)

// Collections the reports read from.
const (
	ProductsCollection = "products"
	UsersCollection    = "users"
	MoviesCollection   = "movies"
	OrdersCollection   = "orders"
	Order5sCollection  = "order5s"
	EventsCollection   = "events"
	SalesCollection    = "sales"
)

// Report is a named pipeline over one source collection.
type Report struct {
	Name       string
	Collection string
	Pipeline   aggregation.Pipeline
}

// ProductStats returns revenue, quantity sold and average unit price per
// product, highest revenue first.
func ProductStats() Report {
	return Report{
		Name:       "product-stats",
		Collection: ProductsCollection,
		Pipeline: aggregation.Pipeline{
			aggregation.GroupBy(aggregation.Field("product"),
				aggregation.Sum("totalRevenue", aggregation.Multiply(aggregation.Field("price"), aggregation.Field("quantity"))),
				aggregation.Sum("totalQuantitySold", aggregation.Field("quantity")),
				aggregation.Avg("averagePricePerUnit", aggregation.Field("price")),
			),
			aggregation.SortBy(aggregation.Desc("totalRevenue")),
		},
	}
}

// FriendStats returns the average age over all users in a single group.
// The friends list is not consulted.
func FriendStats() Report {
	return Report{
		Name:       "friend-stats",
		Collection: UsersCollection,
		Pipeline: aggregation.Pipeline{
			aggregation.GroupBy(nil, aggregation.Avg("averageAge", aggregation.Field("age"))),
		},
	}
}

// AverageRatings returns the average rating score per genre, best first.
func AverageRatings() Report {
	return Report{
		Name:       "average-ratings",
		Collection: MoviesCollection,
		Pipeline: aggregation.Pipeline{
			aggregation.UnwindField("ratings"),
			aggregation.GroupBy(aggregation.Field("genre"),
				aggregation.Avg("averageRating", aggregation.Field("ratings.score")),
			),
			aggregation.SortBy(aggregation.Desc("averageRating")),
		},
	}
}

// CustomerRevenue returns revenue and order count per customer, highest
// revenue first.
func CustomerRevenue() Report {
	return Report{
		Name:       "customer-revenue",
		Collection: OrdersCollection,
		Pipeline: aggregation.Pipeline{
			aggregation.GroupBy(aggregation.Field("customer_id"),
				aggregation.Sum("totalRevenue", aggregation.Multiply(aggregation.Field("price"), aggregation.Field("quantity"))),
				aggregation.Sum("numberOfOrders", aggregation.Lit(1)),
			),
			aggregation.SortBy(aggregation.Desc("totalRevenue")),
		},
	}
}

// OrderTotals returns the total order amount per customer for orders placed
// within r, highest first.
func OrderTotals(r DateRange) Report {
	return Report{
		Name:       "order-totals",
		Collection: Order5sCollection,
		Pipeline: aggregation.Pipeline{
			r.Match("order_date"),
			aggregation.GroupBy(aggregation.Field("customer_id"),
				aggregation.Sum("totalAmount", aggregation.Field("total_amount")),
			),
			aggregation.SortBy(aggregation.Desc("totalAmount")),
		},
	}
}

// EventsByUser counts events per user and type within r and nests the
// counts under each user.
func EventsByUser(r DateRange) Report {
	return Report{
		Name:       "events-by-user",
		Collection: EventsCollection,
		Pipeline: aggregation.Pipeline{
			r.Match("event_date"),
			aggregation.GroupBy(
				aggregation.ObjectExpr{
					"user_id":    aggregation.Field("user_id"),
					"event_type": aggregation.Field("event_type"),
				},
				aggregation.Count("count"),
			),
			aggregation.GroupBy(aggregation.Field("_id.user_id"),
				aggregation.Push("events", aggregation.ObjectExpr{
					"event_type": aggregation.Field("_id.event_type"),
					"count":      aggregation.Field("count"),
				}),
			),
			aggregation.ProjectFields(
				aggregation.Exclude("_id"),
				aggregation.Computed("user_id", aggregation.Field("_id")),
				aggregation.Include("events"),
			),
		},
	}
}

// SalesRevenue returns revenue per product for sales within r, joined with
// the product name. Sales of unknown products are dropped.
func SalesRevenue(r DateRange) Report {
	return Report{
		Name:       "sales-revenue",
		Collection: SalesCollection,
		Pipeline: aggregation.Pipeline{
			r.Match("sale_date"),
			aggregation.GroupBy(aggregation.Field("product_id"),
				aggregation.Sum("totalRevenue", aggregation.Multiply(aggregation.Field("quantity"), aggregation.Field("price"))),
			),
			aggregation.Lookup{From: ProductsCollection, LocalField: "_id", ForeignField: "_id", As: "product"},
			aggregation.UnwindField("product"),
			aggregation.ProjectFields(
				aggregation.Exclude("_id"),
				aggregation.Computed("product_id", aggregation.Field("_id")),
				aggregation.Computed("product_name", aggregation.Field("product.name")),
				aggregation.Include("totalRevenue"),
			),
		},
	}
}
