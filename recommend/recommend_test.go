package recommend

import (
	"encoding/json"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestComputeAggregatesWithQuantity(t *testing.T) {
	entries := []Entry{
		{Name: "Freezer", Wattage: f(1000), Quantity: f(3), DayHours: f(2), NightHours: f(1)},
	}

	totals, err := Compute(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.TotalWattage != 3000 {
		t.Errorf("TotalWattage = %v, want 3000", totals.TotalWattage)
	}
	if totals.TotalHours != 3 {
		t.Errorf("TotalHours = %v, want 3", totals.TotalHours)
	}
	if totals.TotalQuantity != 3 {
		t.Errorf("TotalQuantity = %v, want 3", totals.TotalQuantity)
	}
}

func TestComputeMultipleEntries(t *testing.T) {
	entries := []Entry{
		{Name: "TV", Wattage: f(150), Quantity: f(2), DayHours: f(4), NightHours: f(2)},
		{Name: "Fan", Wattage: f(70), Quantity: f(3), DayHours: f(1), NightHours: f(5)},
	}

	totals, err := Compute(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := 150.0*2 + 70.0*3; totals.TotalWattage != want {
		t.Errorf("TotalWattage = %v, want %v", totals.TotalWattage, want)
	}
	if totals.TotalDayHours != 5 || totals.TotalNightHours != 7 {
		t.Errorf("day/night = %v/%v, want 5/7", totals.TotalDayHours, totals.TotalNightHours)
	}
	if totals.TotalHours != 12 {
		t.Errorf("TotalHours = %v, want 12", totals.TotalHours)
	}
}

func TestComputeZeroQuantityDefaultsToOne(t *testing.T) {
	entries := []Entry{
		{Name: "Bulb", Wattage: f(60), Quantity: f(0), DayHours: f(0), NightHours: f(6)},
	}

	totals, err := Compute(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals.TotalWattage != 60 {
		t.Errorf("TotalWattage = %v, want 60", totals.TotalWattage)
	}
}

func TestComputeValidation(t *testing.T) {
	cases := []struct {
		name    string
		entries []Entry
	}{
		{"empty list", nil},
		{"missing wattage", []Entry{{Name: "TV", Quantity: f(1), DayHours: f(1), NightHours: f(1)}}},
		{"missing name", []Entry{{Wattage: f(100), Quantity: f(1), DayHours: f(1), NightHours: f(1)}}},
		{"negative hours", []Entry{{Name: "TV", Wattage: f(100), Quantity: f(1), DayHours: f(-1), NightHours: f(1)}}},
	}

	for _, tc := range cases {
		if _, err := Compute(tc.entries); err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestLookupStarterBand(t *testing.T) {
	totals, err := Compute([]Entry{
		{Name: "Freezer", Wattage: f(1000), Quantity: f(3), DayHours: f(2), NightHours: f(1)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recs, bandName, outOfRange := Lookup(totals)
	if outOfRange {
		t.Fatal("3000W should fall inside the starter band")
	}
	if bandName != "starter" {
		t.Errorf("band = %q, want starter", bandName)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(recs))
	}
	if recs[0].TotalAmount != 3108000 {
		t.Errorf("TotalAmount = %v, want 3108000", recs[0].TotalAmount)
	}
	if recs[0].DailyConsumption != "9.00 kWh" {
		t.Errorf("DailyConsumption = %q, want \"9.00 kWh\"", recs[0].DailyConsumption)
	}
}

func TestLookupBandsAreDisjoint(t *testing.T) {
	// Every boundary value must land in at most one band.
	for _, w := range []float64{0, 3125, 3126, 3750, 3751, 6250, 6251, 12500} {
		matches := 0
		for _, b := range bands {
			if w >= b.min && w <= b.max {
				matches++
			}
		}
		if matches != 1 {
			t.Errorf("wattage %v matched %d bands, want exactly 1", w, matches)
		}
	}
}

func TestLookupBundleAmountsAreConsistent(t *testing.T) {
	for _, b := range bands {
		for _, bu := range b.bundles {
			if bu.ItemsAndInstallation+bu.VAT != bu.TotalAmount {
				t.Errorf("bundle %q: %v + %v != %v",
					bu.Description, bu.ItemsAndInstallation, bu.VAT, bu.TotalAmount)
			}
		}
	}
}

func TestLookupOutOfRange(t *testing.T) {
	recs, _, outOfRange := Lookup(Totals{TotalWattage: 20000, TotalHours: 4})
	if !outOfRange {
		t.Fatal("20000W is outside every band, expected outOfRange")
	}
	if len(recs) != 0 {
		t.Errorf("got %d recommendations, want 0", len(recs))
	}
}

func TestParseEntriesAcceptsSingleObject(t *testing.T) {
	raw := json.RawMessage(`{"name":"TV","wattage":150,"quantity":1,"dayHours":2,"nightHours":3}`)

	entries, err := parseEntries(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "TV" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestParseEntriesRejectsEmpty(t *testing.T) {
	if _, err := parseEntries(json.RawMessage(`[]`)); err == nil {
		t.Error("empty array should be rejected")
	}
	if _, err := parseEntries(nil); err == nil {
		t.Error("missing items should be rejected")
	}
}

func TestParseEntriesReportsMalformedItems(t *testing.T) {
	for _, raw := range []string{
		`[1, 2, 3]`,
		`[{"name":"TV","wattage":"lots"}]`,
		`"freezer"`,
	} {
		_, err := parseEntries(json.RawMessage(raw))
		if err == nil {
			t.Errorf("%s: expected error, got nil", raw)
			continue
		}
		if err == ErrNoEntries {
			t.Errorf("%s: malformed payload reported as missing items", raw)
		}
	}
}
