package risk

import (
	"testing"

	"github.com/hcevision/cardio/internal/domain/normalize"
)

func ldl(v float64) map[string]any {
	return map[string]any{"ldl": map[string]any{"value": v, "unit": "mg/dL"}}
}

func TestCalculate_NoAFibOmitsAFibScores(t *testing.T) {
	for _, ante := range []map[string]bool{
		{},
		{normalize.Hypertension: true, normalize.Stroke: true, normalize.HeartFailure: true},
		{normalize.AtrialFibrillation: false, normalize.BleedingHistory: true},
	} {
		got := Calculate(Input{Age: 80, Sex: "F", Antecedents: ante})
		if got.CHA2DS2VASc != nil {
			t.Errorf("expected no CHA2DS2-VASc for %v, got %d", ante, *got.CHA2DS2VASc)
		}
		if got.HASBLED != nil {
			t.Errorf("expected no HAS-BLED for %v, got %d", ante, *got.HASBLED)
		}
		if _, ok := got.Details[DetailCHA2DS2VASc]; ok {
			t.Error("expected no CHA2DS2-VASc detail")
		}
	}
}

func TestCalculate_CHA2DS2VAScElderlyHypertensiveFemale(t *testing.T) {
	got := Calculate(Input{
		Age: 75,
		Sex: "F",
		Antecedents: map[string]bool{
			normalize.Hypertension:       true,
			normalize.AtrialFibrillation: true,
		},
	})
	if got.CHA2DS2VASc == nil {
		t.Fatal("expected CHA2DS2-VASc to be computed")
	}
	if *got.CHA2DS2VASc != 4 {
		t.Errorf("expected 4, got %d", *got.CHA2DS2VASc)
	}
	d := got.Details[DetailCHA2DS2VASc]
	if d.Risk != "high risk, anticoagulate" || d.Value != 4 {
		t.Errorf("unexpected detail %+v", d)
	}
}

func TestCHA2DS2VASc_AgeBracketsDoNotStack(t *testing.T) {
	a := normalize.Antecedents{}
	cases := map[int]int{64: 0, 65: 1, 74: 1, 75: 2, 90: 2}
	for age, want := range cases {
		if got := CHA2DS2VASc(age, "M", a); got != want {
			t.Errorf("age %d: expected %d, got %d", age, want, got)
		}
	}
}

func TestCHA2DS2VASc_Maximum(t *testing.T) {
	a := normalize.Antecedents{
		normalize.HeartFailure:    true,
		normalize.Hypertension:    true,
		normalize.Diabetes:        true,
		normalize.Stroke:          true,
		normalize.VascularDisease: true,
	}
	if got := CHA2DS2VASc(80, "F", a); got != 9 {
		t.Errorf("expected 9, got %d", got)
	}
}

func TestCHA2DS2VAScRisk(t *testing.T) {
	if got := CHA2DS2VAScRisk(0); got != "low risk" {
		t.Errorf("0: got %q", got)
	}
	if got := CHA2DS2VAScRisk(1); got != "consider anticoagulation" {
		t.Errorf("1: got %q", got)
	}
	if got := CHA2DS2VAScRisk(2); got != "high risk, anticoagulate" {
		t.Errorf("2: got %q", got)
	}
}

func TestHASBLED(t *testing.T) {
	a := normalize.Antecedents{
		normalize.Hypertension:     true,
		normalize.LabileINR:        true,
		normalize.AlcoholOrDrugUse: true,
	}
	if got := HASBLED(65, a); got != 3 {
		t.Errorf("age 65 is not > 65: expected 3, got %d", got)
	}
	if got := HASBLED(66, a); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
	if HASBLEDRisk(3) != "high bleeding risk" || HASBLEDRisk(2) != "low bleeding risk" {
		t.Error("unexpected HAS-BLED labels")
	}
}

func TestCalculate_SCORE2OnlyForAges40To69(t *testing.T) {
	for _, age := range []int{0, 39, 70, 85} {
		got := Calculate(Input{Age: age, Sex: "M", Antecedents: map[string]bool{normalize.Smoking: true}})
		if got.SCORE2 != nil {
			t.Errorf("age %d: expected no SCORE2, got %v", age, *got.SCORE2)
		}
	}
	for _, age := range []int{40, 55, 69} {
		got := Calculate(Input{Age: age, Sex: "M"})
		if got.SCORE2 == nil {
			t.Errorf("age %d: expected SCORE2", age)
		}
	}
}

func TestSCORE2_Heuristic(t *testing.T) {
	a := normalize.Antecedents{
		normalize.Smoking:      true,
		normalize.Diabetes:     true,
		normalize.Hypertension: true,
	}
	// 2.0 * 1.5 * 1.3 = 3.9, age factor 1 + 2.5 = 3.5 -> 13.65 -> 13.7
	got, ok := SCORE2(65, a)
	if !ok {
		t.Fatal("expected SCORE2 to apply")
	}
	if got != 13.7 {
		t.Errorf("expected 13.7, got %v", got)
	}
	if SCORE2Risk(got) != "very high" {
		t.Errorf("expected very high, got %q", SCORE2Risk(got))
	}

	base, _ := SCORE2(40, normalize.Antecedents{})
	if base != 1.0 || SCORE2Risk(base) != "low" {
		t.Errorf("expected 1.0 low, got %v %q", base, SCORE2Risk(base))
	}
}

func TestSCORE2Risk_Thresholds(t *testing.T) {
	cases := map[float64]string{2.4: "low", 2.5: "moderate", 4.9: "moderate", 5: "high", 9.9: "high", 10: "very high"}
	for v, want := range cases {
		if got := SCORE2Risk(v); got != want {
			t.Errorf("SCORE2Risk(%v) = %q, want %q", v, got, want)
		}
	}
}

func TestCalculate_LipidsRequireLDL(t *testing.T) {
	got := Calculate(Input{Age: 50, Sex: "M", Labs: map[string]any{"hdl": 40.0}})
	if got.LipidManagement != nil {
		t.Error("expected no lipid management without LDL")
	}
	got = Calculate(Input{Age: 50, Sex: "M", Labs: map[string]any{"ldl": "n/a"}})
	if got.LipidManagement != nil {
		t.Error("expected no lipid management for unparseable LDL")
	}
	got = Calculate(Input{Age: 50, Sex: "M", Labs: map[string]any{"ldl": "LDL 150 mg/dL"}})
	if got.LipidManagement == nil || got.LipidManagement.LDLCurrent != 150 {
		t.Errorf("expected lipid management from dirty string, got %+v", got.LipidManagement)
	}
}

func TestLipidCategory_Priority(t *testing.T) {
	tests := []struct {
		name     string
		age      int
		ante     normalize.Antecedents
		category string
		target   float64
	}{
		{"low", 30, normalize.Antecedents{}, CategoryLow, 116},
		{"moderate", 55, normalize.Antecedents{normalize.Obesity: true}, CategoryModerate, 100},
		{"moderate needs age over 50", 50, normalize.Antecedents{normalize.Obesity: true}, CategoryLow, 116},
		{"high", 30, normalize.Antecedents{normalize.Dyslipidemia: true}, CategoryHigh, 70},
		{"very high", 30, normalize.Antecedents{normalize.Stroke: true}, CategoryVeryHigh, 55},
		{"prior acs alone", 30, normalize.Antecedents{normalize.PriorACS: true}, CategoryVeryHigh, 55},
		{"extreme", 30, normalize.Antecedents{normalize.PriorACS: true, normalize.Smoking: true}, CategoryExtreme, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, target := LipidCategory(tt.age, tt.ante)
			if cat != tt.category || target != tt.target {
				t.Errorf("got (%s, %v), want (%s, %v)", cat, target, tt.category, tt.target)
			}
		})
	}
}

func TestLipidTargets_MonotonicallyNonIncreasing(t *testing.T) {
	targets := []float64{TargetLow, TargetModerate, TargetHigh, TargetVeryHigh, TargetExtreme}
	for i := 1; i < len(targets); i++ {
		if targets[i] > targets[i-1] {
			t.Errorf("target %v at step %d exceeds previous %v", targets[i], i, targets[i-1])
		}
	}
}

func TestLipids_Recommendations(t *testing.T) {
	none := normalize.Antecedents{}
	tests := []struct {
		ldl       float64
		reduction float64
		want      string
	}{
		{100, 0, RecommendGoalMet},
		{116, 0, RecommendGoalMet},
		{150, 22.7, RecommendLow},
		{170, 31.8, RecommendModerate},
		{240, 51.7, RecommendHigh},
	}
	for _, tt := range tests {
		got := Lipids(30, none, tt.ldl)
		if got.Recommendation != tt.want {
			t.Errorf("ldl %v: expected %q, got %q", tt.ldl, tt.want, got.Recommendation)
		}
		if got.ReductionNeededPct != tt.reduction {
			t.Errorf("ldl %v: expected reduction %v, got %v", tt.ldl, tt.reduction, got.ReductionNeededPct)
		}
	}
}

func TestCalculate_NothingApplicable(t *testing.T) {
	got := Calculate(Input{Age: 30, Sex: "M"})
	if !got.Empty() {
		t.Errorf("expected empty scores, got %+v", got)
	}
	if got.Details != nil {
		t.Errorf("expected nil details, got %v", got.Details)
	}
}
