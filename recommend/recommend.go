package recommend

import (
	"errors"
	"fmt"
)

// Entry is one appliance usage row submitted for a recommendation.
// Pointer fields distinguish "missing" from zero during validation.
type Entry struct {
	Name       string   `json:"name"`
	Wattage    *float64 `json:"wattage"`
	Quantity   *float64 `json:"quantity"`
	DayHours   *float64 `json:"dayHours"`
	NightHours *float64 `json:"nightHours"`
}

// Totals is the aggregate power profile of an entry list.
type Totals struct {
	TotalWattage    float64 `json:"totalWattage"`
	TotalDayHours   float64 `json:"totalDayHours"`
	TotalNightHours float64 `json:"totalNightHours"`
	TotalHours      float64 `json:"totalHours"`
	TotalQuantity   int     `json:"-"`
}

// Bundle is a canned panel/inverter/battery recommendation tied to a
// wattage band. Amounts are fixed catalog prices in major units.
type Bundle struct {
	Description          string  `json:"description"`
	Panels               string  `json:"panels"`
	Inverter             string  `json:"inverter"`
	Battery              string  `json:"battery"`
	MinWattage           float64 `json:"minWattage"`
	MaxWattage           float64 `json:"maxWattage"`
	ItemsAndInstallation float64 `json:"itemsAndInstallation"`
	VAT                  float64 `json:"vat"`
	TotalAmount          float64 `json:"totalAmount"`
	DailyConsumption     string  `json:"dailyConsumption"`
}

type band struct {
	min, max float64
	name     string
	bundles  []Bundle
}

// The wattage bands are disjoint and intentionally non-exhaustive: a
// total outside every band is a valid "no bundle fits" result.
var bands = []band{
	{
		min: 0, max: 3125, name: "starter",
		bundles: []Bundle{
			{
				Description:          "Starter bundle: 1.5kVA inverter with 1.8kWh storage",
				Panels:               "4 x 300W monocrystalline panels",
				Inverter:             "1.5kVA pure sine wave inverter",
				Battery:              "1.8kWh lithium battery",
				ItemsAndInstallation: 2958000,
				VAT:                  150000,
				TotalAmount:          3108000,
			},
		},
	},
	{
		min: 3126, max: 3750, name: "home",
		bundles: []Bundle{
			{
				Description:          "Home bundle: 2.5kVA inverter with 2.4kWh storage",
				Panels:               "6 x 350W monocrystalline panels",
				Inverter:             "2.5kVA pure sine wave inverter",
				Battery:              "2.4kWh lithium battery",
				ItemsAndInstallation: 4300000,
				VAT:                  215000,
				TotalAmount:          4515000,
			},
			{
				Description:          "Home plus bundle: 2.5kVA inverter with 3.6kWh storage",
				Panels:               "6 x 350W monocrystalline panels",
				Inverter:             "2.5kVA pure sine wave inverter",
				Battery:              "3.6kWh lithium battery",
				ItemsAndInstallation: 4600000,
				VAT:                  230000,
				TotalAmount:          4830000,
			},
		},
	},
	{
		min: 3751, max: 6250, name: "family",
		bundles: []Bundle{
			{
				Description:          "Family bundle: 5kVA inverter with 5kWh storage",
				Panels:               "10 x 400W monocrystalline panels",
				Inverter:             "5kVA hybrid inverter",
				Battery:              "5kWh lithium battery",
				ItemsAndInstallation: 7000000,
				VAT:                  350000,
				TotalAmount:          7350000,
			},
		},
	},
	{
		min: 6251, max: 12500, name: "estate",
		bundles: []Bundle{
			{
				Description:          "Estate bundle: 10kVA inverter with 10kWh storage",
				Panels:               "16 x 450W monocrystalline panels",
				Inverter:             "10kVA hybrid inverter",
				Battery:              "10kWh lithium battery",
				ItemsAndInstallation: 12000000,
				VAT:                  600000,
				TotalAmount:          12600000,
			},
			{
				Description:          "Estate plus bundle: 10kVA inverter with 15kWh storage",
				Panels:               "16 x 450W monocrystalline panels",
				Inverter:             "10kVA hybrid inverter",
				Battery:              "15kWh lithium battery",
				ItemsAndInstallation: 13500000,
				VAT:                  675000,
				TotalAmount:          14175000,
			},
		},
	},
}

var ErrNoEntries = errors.New("items are required")

// Compute validates the entries and aggregates the power profile.
// Validation fails before any computation: either every entry is
// complete or nothing is computed.
func Compute(entries []Entry) (Totals, error) {
	if len(entries) == 0 {
		return Totals{}, ErrNoEntries
	}

	for i, e := range entries {
		if e.Name == "" || e.Wattage == nil || e.Quantity == nil || e.DayHours == nil || e.NightHours == nil {
			return Totals{}, fmt.Errorf("item %d must have name, quantity, wattage, dayHours and nightHours", i)
		}
		if *e.Wattage < 0 || *e.Quantity < 0 || *e.DayHours < 0 || *e.NightHours < 0 {
			return Totals{}, fmt.Errorf("item %d has a negative value", i)
		}
	}

	var t Totals
	for _, e := range entries {
		qty := *e.Quantity
		if qty == 0 {
			qty = 1
		}
		t.TotalWattage += *e.Wattage * qty
		t.TotalDayHours += *e.DayHours
		t.TotalNightHours += *e.NightHours
		t.TotalQuantity += int(qty)
	}
	t.TotalHours = t.TotalDayHours + t.TotalNightHours
	return t, nil
}

// Lookup maps the aggregate wattage onto the band table. An empty
// result with outOfRange=true means no bundle fits; callers surface it
// as a normal response, not an error.
func Lookup(t Totals) (recs []Bundle, bandName string, outOfRange bool) {
	daily := fmt.Sprintf("%.2f kWh", t.TotalWattage*t.TotalHours/1000)

	for _, b := range bands {
		if t.TotalWattage >= b.min && t.TotalWattage <= b.max {
			for _, bu := range b.bundles {
				bu.MinWattage = b.min
				bu.MaxWattage = b.max
				bu.DailyConsumption = daily
				recs = append(recs, bu)
			}
			return recs, b.name, false
		}
	}
	return nil, "", true
}
