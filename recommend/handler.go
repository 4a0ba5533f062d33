package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"heliox/db"
	"heliox/metrics"
	"heliox/models"
	"heliox/utils"

	"github.com/julienschmidt/httprouter"
)

type recommendRequest struct {
	Items json.RawMessage `json:"items"`
}

type recommendResponse struct {
	TotalWattage    float64  `json:"totalWattage"`
	TotalDayHours   float64  `json:"totalDayHours"`
	TotalNightHours float64  `json:"totalNightHours"`
	TotalHours      float64  `json:"totalHours"`
	Recommendations []Bundle `json:"recommendations"`
	OutOfRange      bool     `json:"outOfRange"`
}

// GetRecommendations computes the aggregate power profile of the
// submitted appliances and returns the matching bundle band.
// POST /api/recommend
func GetRecommendations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entries, err := parseEntries(req.Items)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	totals, err := Compute(entries)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Log the aggregated usage row. A failed write must never deny the
	// caller a quote, so the error only goes to the log.
	if err := persistUsageLog(r.Context(), entries[0].Name, totals); err != nil {
		log.Printf("GetRecommendations: usage log write failed: %v", err)
	}

	recs, bandName, outOfRange := Lookup(totals)
	if outOfRange {
		metrics.RecommendationsTotal.WithLabelValues("out_of_range").Inc()
	} else {
		metrics.RecommendationsTotal.WithLabelValues(bandName).Inc()
	}

	utils.RespondWithJSON(w, http.StatusOK, recommendResponse{
		TotalWattage:    totals.TotalWattage,
		TotalDayHours:   totals.TotalDayHours,
		TotalNightHours: totals.TotalNightHours,
		TotalHours:      totals.TotalHours,
		Recommendations: recs,
		OutOfRange:      outOfRange,
	})
}

var errMalformedItems = errors.New("items must be an appliance entry or a list of appliance entries")

// parseEntries accepts either a single object or an array, the way the
// route has always behaved for older clients. A present-but-malformed
// payload is reported as such, not as missing items.
func parseEntries(raw json.RawMessage) ([]Entry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNoEntries
	}

	var entries []Entry
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, errMalformedItems
		}
	} else {
		var single Entry
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, errMalformedItems
		}
		entries = []Entry{single}
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	return entries, nil
}

func persistUsageLog(ctx context.Context, name string, t Totals) error {
	entry := models.UsageLog{
		LogID:      utils.GetUUID(),
		Name:       name,
		Quantity:   t.TotalQuantity,
		Wattage:    t.TotalWattage,
		DayHours:   t.TotalDayHours,
		NightHours: t.TotalNightHours,
		CreatedAt:  time.Now(),
	}
	_, err := db.UsageLogsCollection.InsertOne(ctx, entry)
	return err
}
