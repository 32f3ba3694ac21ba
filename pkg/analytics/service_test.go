package analytics

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/adfharrison1/go-analytics/pkg/domain"
	"github.com/adfharrison1/go-analytics/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, collections map[string][]domain.Document) (*Service, *storage.StorageEngine) {
	t.Helper()
	engine := storage.NewStorageEngine()
	for name, docs := range collections {
		_, err := engine.BatchInsert(context.Background(), name, docs)
		require.NoError(t, err)
	}
	return NewService(engine), engine
}

func day(d int) time.Time {
	return time.Date(2022, 1, d, 12, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func TestService_SalesRevenue(t *testing.T) {
	svc, _ := newTestService(t, map[string][]domain.Document{
		SalesCollection: {
			{"sale_date": day(3), "product_id": "P1", "quantity": 2, "price": 10},
			{"sale_date": day(4), "product_id": "P1", "quantity": 1, "price": 10},
			{"sale_date": day(5), "product_id": "P2", "quantity": 5, "price": 2},
			{"sale_date": day(20), "product_id": "P2", "quantity": 100, "price": 2},
			{"sale_date": day(6), "product_id": "P9", "quantity": 1, "price": 1},
		},
		ProductsCollection: {
			{"_id": "P1", "name": "Widget"},
			{"_id": "P2", "name": "Gadget"},
		},
	})

	results, err := svc.SalesRevenue(context.Background(), mustRange(t, "2022-01-01", "2022-01-10"))
	require.NoError(t, err)
	assert.Equal(t, []domain.Document{
		{"product_id": "P1", "product_name": "Widget", "totalRevenue": int64(30)},
		{"product_id": "P2", "product_name": "Gadget", "totalRevenue": int64(10)},
	}, results, "sales of unknown products are dropped by the unwind")
}

func TestService_SalesRevenueWithoutProducts(t *testing.T) {
	svc, _ := newTestService(t, map[string][]domain.Document{
		SalesCollection: {{"sale_date": day(3), "product_id": "P1", "quantity": 2, "price": 10}},
	})

	_, err := svc.SalesRevenue(context.Background(), mustRange(t, "2022-01-01", "2022-01-10"))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestService_EventsByUser(t *testing.T) {
	svc, _ := newTestService(t, map[string][]domain.Document{
		EventsCollection: {
			{"event_date": day(3), "user_id": "U1", "event_type": "click"},
			{"event_date": day(3), "user_id": "U1", "event_type": "view"},
			{"event_date": day(4), "user_id": "U1", "event_type": "click"},
			{"event_date": day(5), "user_id": "U1", "event_type": "view"},
			{"event_date": day(6), "user_id": "U1", "event_type": "click"},
			{"event_date": day(25), "user_id": "U2", "event_type": "click"},
		},
	})

	results, err := svc.EventsByUser(context.Background(), mustRange(t, "2022-01-01T00:00:00Z", "2022-01-10T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, []domain.Document{
		{
			"user_id": "U1",
			"events": []interface{}{
				domain.Document{"event_type": "click", "count": int64(3)},
				domain.Document{"event_type": "view", "count": int64(2)},
			},
		},
	}, results)
}

func TestService_AverageRatings(t *testing.T) {
	svc, _ := newTestService(t, map[string][]domain.Document{
		MoviesCollection: {
			{"title": "A", "genre": "Action", "ratings": []interface{}{
				domain.Document{"user": "u1", "score": 4},
				domain.Document{"user": "u2", "score": 5},
			}},
			{"title": "B", "genre": "Action", "ratings": []interface{}{
				domain.Document{"user": "u1", "score": 3},
				domain.Document{"user": "u3", "score": 2},
			}},
			{"title": "C", "genre": "Drama", "ratings": []interface{}{
				domain.Document{"user": "u1", "score": 5},
			}},
			{"title": "D", "genre": "Horror", "ratings": []interface{}{}},
		},
	})

	results, err := svc.AverageRatings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Document{
		{"_id": "Drama", "averageRating": 5.0},
		{"_id": "Action", "averageRating": 3.5},
	}, results, "movies without ratings produce no group")
}

func TestService_ProductStats(t *testing.T) {
	svc, _ := newTestService(t, map[string][]domain.Document{
		ProductsCollection: {
			{"product": "Product A", "price": 30, "quantity": 20},
			{"product": "Product B", "price": 100, "quantity": 1},
			{"product": "Product A", "price": 20, "quantity": 10},
		},
	})

	results, err := svc.ProductStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Document{
		{"_id": "Product A", "totalRevenue": int64(800), "totalQuantitySold": int64(30), "averagePricePerUnit": 25.0},
		{"_id": "Product B", "totalRevenue": int64(100), "totalQuantitySold": int64(1), "averagePricePerUnit": 100.0},
	}, results)
}

func TestService_FriendStats(t *testing.T) {
	tests := []struct {
		name  string
		users []domain.Document
		want  interface{}
	}{
		{"average", []domain.Document{{"age": 20}, {"age": 31}, {"name": "no age"}}, 25.5},
		{"no numeric ages", []domain.Document{{"age": "old"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, map[string][]domain.Document{UsersCollection: tt.users})
			result, err := svc.FriendStats(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.AverageAge)
		})
	}

	svc, _ := newTestService(t, nil)
	result, err := svc.FriendStats(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result.AverageAge, "no users at all")
}

func TestService_OrderTotals(t *testing.T) {
	svc, _ := newTestService(t, map[string][]domain.Document{
		Order5sCollection: {
			{"customer_id": "C1", "total_amount": 100, "order_date": day(1)},
			{"customer_id": "C2", "total_amount": 300, "order_date": day(2)},
			{"customer_id": "C1", "total_amount": 50.5, "order_date": day(9)},
			{"customer_id": "C2", "total_amount": 900, "order_date": day(11)},
			{"customer_id": "C3", "total_amount": 10},
		},
	})

	results, err := svc.OrderTotals(context.Background(), mustRange(t, "2022-01-01", "2022-01-10"))
	require.NoError(t, err)
	assert.Equal(t, []domain.Document{
		{"_id": "C2", "totalAmount": int64(300)},
		{"_id": "C1", "totalAmount": 150.5},
	}, results)
}

func TestService_ReportsOverEmptyCollections(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	r := mustRange(t, "2022-01-01", "2022-01-10")

	reports := []Report{ProductStats(), FriendStats(), AverageRatings(), CustomerRevenue(), OrderTotals(r), EventsByUser(r)}
	for _, report := range reports {
		t.Run(report.Name, func(t *testing.T) {
			results, err := svc.Run(ctx, report)
			require.NoError(t, err)
			assert.NotNil(t, results)
			assert.Empty(t, results)
		})
	}

	// The joined collection must exist even when there is nothing to join.
	_, err := svc.Run(ctx, SalesRevenue(r))
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func randomOrders(rng *rand.Rand, n int) []domain.Document {
	customers := []string{"C1", "C2", "C3", "C4"}
	docs := make([]domain.Document, n)
	for i := range docs {
		docs[i] = domain.Document{
			"customer_id": customers[rng.Intn(len(customers))],
			"price":       int64(rng.Intn(100)),
			"quantity":    int64(rng.Intn(10)),
		}
	}
	return docs
}

func TestService_CustomerRevenueConservesRevenue(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		orders := randomOrders(rng, 1+rng.Intn(200))
		svc, _ := newTestService(t, map[string][]domain.Document{OrdersCollection: orders})

		var expected int64
		distinct := map[string]struct{}{}
		for _, o := range orders {
			expected += o["price"].(int64) * o["quantity"].(int64)
			distinct[o["customer_id"].(string)] = struct{}{}
		}

		results, err := svc.CustomerRevenue(context.Background())
		require.NoError(t, err)
		assert.Len(t, results, len(distinct), "one group per distinct customer")

		var total, orderCount int64
		for i, r := range results {
			total += r["totalRevenue"].(int64)
			orderCount += r["numberOfOrders"].(int64)
			if i > 0 {
				assert.GreaterOrEqual(t, results[i-1]["totalRevenue"].(int64), r["totalRevenue"].(int64))
			}
		}
		assert.Equal(t, expected, total, "trial %d", trial)
		assert.Equal(t, int64(len(orders)), orderCount)
	}
}

func TestService_RunIsIdempotent(t *testing.T) {
	svc, engine := newTestService(t, map[string][]domain.Document{
		OrdersCollection: randomOrders(rand.New(rand.NewSource(1)), 50),
	})
	ctx := context.Background()

	before, err := engine.FetchAll(ctx, OrdersCollection)
	require.NoError(t, err)
	snapshot := make([]domain.Document, len(before))
	for i, d := range before {
		snapshot[i] = d.Clone()
	}

	first, err := svc.CustomerRevenue(ctx)
	require.NoError(t, err)
	second, err := svc.CustomerRevenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	after, err := engine.FetchAll(ctx, OrdersCollection)
	require.NoError(t, err)
	assert.Equal(t, snapshot, after)
}

func TestService_Create(t *testing.T) {
	svc, engine := newTestService(t, nil)
	ctx := context.Background()
	shape, ok := ShapeFor(SalesCollection)
	require.True(t, ok)

	record, err := DecodeRecord(shape, []byte(`{"sale_date":"2022-01-03T06:10:23.000Z","product_id":"P1","quantity":2,"price":49.99,"extra":"dropped"}`))
	require.NoError(t, err)
	stored, err := svc.Create(ctx, shape, record)
	require.NoError(t, err)
	assert.NotEmpty(t, stored["_id"])
	assert.NotContains(t, stored, "extra")

	docs, err := engine.FetchAll(ctx, SalesCollection)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(2), docs[0]["quantity"])
	assert.Equal(t, 49.99, docs[0]["price"])
	assert.Equal(t, time.Date(2022, 1, 3, 6, 10, 23, 0, time.UTC), docs[0]["sale_date"])
}

func TestService_ContextCancellation(t *testing.T) {
	svc, _ := newTestService(t, map[string][]domain.Document{
		OrdersCollection: randomOrders(rand.New(rand.NewSource(2)), 10),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CustomerRevenue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func ExampleSalesRevenue() {
	r, _ := ParseDateRange("2022-01-01", "2022-01-31")
	report := SalesRevenue(r)
	for _, stage := range report.Pipeline {
		fmt.Println(stage.Kind())
	}
	// Output:
	// $match
	// $group
	// $lookup
	// $unwind
	// $project
}
