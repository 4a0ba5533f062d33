package stats

import (
	"context"
	"log"
	"net/http"
	"time"

	"heliox/cache"
	"heliox/db"
	"heliox/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

const statsCacheKey = "admin_stats"

// Service serves the admin stats page through a TTL cache so the
// aggregation pipelines don't run on every request.
type Service struct {
	cache *cache.Store
}

func NewService(clock cache.Clock) *Service {
	return &Service{cache: cache.New(60*time.Second, clock)}
}

type overview struct {
	OrdersByStatus   map[string]int64 `json:"ordersByStatus"`
	OrdersByPayment  map[string]int64 `json:"ordersByPayment"`
	UsageLogCount    int64            `json:"usageLogCount"`
	TotalUsageWatts  float64          `json:"totalUsageWatts"`
	CatalogItemCount int64            `json:"catalogItemCount"`
}

// GetStats returns aggregate counts for the admin dashboard.
// GET /api/stats
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if cached, ok := s.cache.Get(statsCacheKey); ok {
		utils.RespondWithJSON(w, http.StatusOK, cached)
		return
	}

	ov, err := collect(r.Context())
	if err != nil {
		log.Printf("GetStats: aggregation failed: %v", err)
		utils.RespondWithInternalError(w, err)
		return
	}

	s.cache.Set(statsCacheKey, ov)
	utils.RespondWithJSON(w, http.StatusOK, ov)
}

func collect(ctx context.Context) (*overview, error) {
	ov := &overview{
		OrdersByStatus:  map[string]int64{},
		OrdersByPayment: map[string]int64{},
	}

	if err := groupCounts(ctx, "$status", ov.OrdersByStatus); err != nil {
		return nil, err
	}
	if err := groupCounts(ctx, "$paymentStatus", ov.OrdersByPayment); err != nil {
		return nil, err
	}

	var err error
	ov.CatalogItemCount, err = db.CatalogCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	cur, err := db.UsageLogsCollection.Aggregate(ctx, []bson.M{
		{"$group": bson.M{
			"_id":   nil,
			"count": bson.M{"$sum": 1},
			"watts": bson.M{"$sum": "$wattage"},
		}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		var row struct {
			Count int64   `bson:"count"`
			Watts float64 `bson:"watts"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ov.UsageLogCount = row.Count
		ov.TotalUsageWatts = row.Watts
	}

	return ov, nil
}

func groupCounts(ctx context.Context, field string, out map[string]int64) error {
	cur, err := db.OrdersCollection.Aggregate(ctx, []bson.M{
		{"$group": bson.M{"_id": field, "count": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return err
		}
		out[row.ID] = row.Count
	}
	return cur.Err()
}
