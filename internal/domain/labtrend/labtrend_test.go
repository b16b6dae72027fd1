package labtrend

import (
	"testing"
)

func dates(series []LabResult) []string {
	out := make([]string, len(series))
	for i, r := range series {
		out[i] = r.Date
	}
	return out
}

func TestMerge_CreatesSeries(t *testing.T) {
	trends := Trends{}
	Merge(trends, "ldl", LabResult{Date: "2024-06-01", Value: 100, Unit: "mg/dL"})
	if len(trends["ldl"]) != 1 {
		t.Fatalf("expected 1 point, got %d", len(trends["ldl"]))
	}
}

func TestMergeBatch_HistoricalThenCurrent(t *testing.T) {
	trends := Trends{}
	MergeBatch(trends, "ldl", []LabResult{
		{Date: "2023-01-01", Value: 150, Unit: "mg/dL"},
		{Date: "2023-12-01", Value: 120, Unit: "mg/dL"},
	})
	Merge(trends, "ldl", LabResult{Date: "2024-06-01", Value: 100, Unit: "mg/dL"})

	got := trends["ldl"]
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	wantDates := []string{"2023-01-01", "2023-12-01", "2024-06-01"}
	wantValues := []float64{150, 120, 100}
	for i := range got {
		if got[i].Date != wantDates[i] {
			t.Errorf("point %d: expected date %s, got %s", i, wantDates[i], got[i].Date)
		}
		if got[i].Value != wantValues[i] {
			t.Errorf("point %d: expected value %v, got %v", i, wantValues[i], got[i].Value)
		}
	}
}

func TestMerge_OutOfOrderInsertIsSorted(t *testing.T) {
	trends := Trends{}
	Merge(trends, "bnp", LabResult{Date: "2024-06-01", Value: 300})
	Merge(trends, "bnp", LabResult{Date: "2022-03-15", Value: 900})
	Merge(trends, "bnp", LabResult{Date: "2023-08-20", Value: 500})

	got := dates(trends["bnp"])
	want := []string{"2022-03-15", "2023-08-20", "2024-06-01"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMerge_SameDayKeepsInsertionOrder(t *testing.T) {
	trends := Trends{}
	Merge(trends, "potassium", LabResult{Date: "2024-01-01", Value: 4.1})
	Merge(trends, "potassium", LabResult{Date: "2024-01-01", Value: 5.3})
	Merge(trends, "potassium", LabResult{Date: "2023-01-01", Value: 3.9})
	Merge(trends, "potassium", LabResult{Date: "2024-01-01", Value: 4.1})

	got := trends["potassium"]
	if len(got) != 4 {
		t.Fatalf("expected same-day points to accumulate, got %d", len(got))
	}
	wantValues := []float64{3.9, 4.1, 5.3, 4.1}
	for i, v := range wantValues {
		if got[i].Value != v {
			t.Errorf("point %d: expected %v, got %v", i, v, got[i].Value)
		}
	}
}

func TestMergeBatch_Empty(t *testing.T) {
	trends := Trends{}
	MergeBatch(trends, "ldl", nil)
	if _, ok := trends["ldl"]; ok {
		t.Error("expected no series for an empty batch")
	}
}

func TestObservation(t *testing.T) {
	obs, err := Observation("2024-06-01", map[string]any{"value": 100.0, "unit": "mg/dL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Value != 100 || obs.Unit != "mg/dL" || obs.Date != "2024-06-01" {
		t.Errorf("unexpected observation %+v", obs)
	}
}

func TestObservation_TimestampTruncated(t *testing.T) {
	obs, err := Observation("2024-06-01T10:30:00Z", 5.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Date != "2024-06-01" {
		t.Errorf("expected 2024-06-01, got %s", obs.Date)
	}
}

func TestObservation_Malformed(t *testing.T) {
	if _, err := Observation("yesterday", 5.0); err == nil {
		t.Error("expected error for bad date")
	}
	if _, err := Observation("2024-06-01", "pending"); err == nil {
		t.Error("expected error for missing value")
	}
	if _, err := Observation("2024-06-01", map[string]any{"value": nil}); err == nil {
		t.Error("expected error for null value")
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := Trends{"ldl": {{Date: "2024-01-01", Value: 1}}}
	cp := orig.Clone()
	cp["ldl"][0].Value = 99
	Merge(cp, "hdl", LabResult{Date: "2024-01-01", Value: 50})
	if orig["ldl"][0].Value != 1 {
		t.Error("clone shares series storage with original")
	}
	if _, ok := orig["hdl"]; ok {
		t.Error("clone shares map with original")
	}
}
