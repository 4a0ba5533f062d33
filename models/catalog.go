package models

import "time"

// CatalogItem is a sellable appliance/component with its power profile.
type CatalogItem struct {
	ItemID     string    `json:"itemId" bson:"itemId"`
	Name       string    `json:"name" bson:"name"`
	Quantity   int       `json:"quantity" bson:"quantity"`
	Wattage    float64   `json:"wattage" bson:"wattage"`
	DayHours   float64   `json:"dayHours" bson:"dayHours"`
	NightHours float64   `json:"nightHours" bson:"nightHours"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// UsageLog is the aggregated row persisted as a side effect of a
// recommendation request. Same attribute shape as CatalogItem but a
// separate entity with its own collection.
type UsageLog struct {
	LogID      string    `json:"logId" bson:"logId"`
	Name       string    `json:"name" bson:"name"`
	Quantity   int       `json:"quantity" bson:"quantity"`
	Wattage    float64   `json:"wattage" bson:"wattage"`
	DayHours   float64   `json:"dayHours" bson:"dayHours"`
	NightHours float64   `json:"nightHours" bson:"nightHours"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}
