// Package risk computes the cardiovascular scores shown on a patient summary:
// CHA2DS2-VASc and HAS-BLED for atrial fibrillation, an approximate SCORE2
// and the LDL goal used for lipid management.
//
// Every score is independent and has its own gate. A score whose gate fails is
// left out of the result.
package risk

import (
	"math"
	"strings"

	"github.com/hcevision/cardio/internal/domain/normalize"
)

// Calculate computes every applicable score for in.
func Calculate(in Input) RiskScores {
	ante := normalize.FromBools(in.Antecedents)
	sex := strings.ToUpper(strings.TrimSpace(in.Sex))
	out := RiskScores{Details: map[string]ScoreDetail{}}

	if ante.Has(normalize.AtrialFibrillation) {
		cha := CHA2DS2VASc(in.Age, sex, ante)
		out.CHA2DS2VASc = &cha
		out.Details[DetailCHA2DS2VASc] = ScoreDetail{Value: float64(cha), Risk: CHA2DS2VAScRisk(cha)}

		hb := HASBLED(in.Age, ante)
		out.HASBLED = &hb
		out.Details[DetailHASBLED] = ScoreDetail{Value: float64(hb), Risk: HASBLEDRisk(hb)}
	}

	if s2, ok := SCORE2(in.Age, ante); ok {
		out.SCORE2 = &s2
		out.Details[DetailSCORE2] = ScoreDetail{Value: s2, Risk: SCORE2Risk(s2)}
	}

	if ldl, _ := normalize.LabValue(in.Labs["ldl"]); ldl != nil {
		lm := Lipids(in.Age, ante, *ldl)
		out.LipidManagement = &lm
	}

	if len(out.Details) == 0 {
		out.Details = nil
	}
	return out
}

// CHA2DS2VASc scores stroke risk. The caller is responsible for the atrial
// fibrillation gate. Age brackets do not stack.
func CHA2DS2VASc(age int, sex string, a normalize.Antecedents) int {
	score := 0
	if a.Has(normalize.HeartFailure) {
		score++
	}
	if a.Has(normalize.Hypertension) {
		score++
	}
	switch {
	case age >= 75:
		score += 2
	case age >= 65:
		score++
	}
	if a.Has(normalize.Diabetes) {
		score++
	}
	if a.Has(normalize.Stroke) {
		score += 2
	}
	if a.Has(normalize.VascularDisease) {
		score++
	}
	if sex == "F" {
		score++
	}
	return score
}

func CHA2DS2VAScRisk(score int) string {
	switch {
	case score >= 2:
		return "high risk, anticoagulate"
	case score == 1:
		return "consider anticoagulation"
	default:
		return "low risk"
	}
}

// HASBLED scores bleeding risk on anticoagulation.
func HASBLED(age int, a normalize.Antecedents) int {
	score := 0
	for _, k := range []string{
		normalize.Hypertension,
		normalize.RenalDisease,
		normalize.LiverDisease,
		normalize.Stroke,
		normalize.BleedingHistory,
		normalize.LabileINR,
		normalize.AlcoholOrDrugUse,
	} {
		if a.Has(k) {
			score++
		}
	}
	if age > 65 {
		score++
	}
	return score
}

func HASBLEDRisk(score int) string {
	if score >= 3 {
		return "high bleeding risk"
	}
	return "low bleeding risk"
}

// SCORE2 returns the 10-year risk estimate for ages 40 to 69. This is a
// multiplicative approximation, not the calibrated regional SCORE2 tables;
// changing it changes clinical output and needs product sign-off.
func SCORE2(age int, a normalize.Antecedents) (float64, bool) {
	if age < 40 || age > 69 {
		return 0, false
	}
	base := 1.0
	if a.Has(normalize.Smoking) {
		base *= 2.0
	}
	if a.Has(normalize.Diabetes) {
		base *= 1.5
	}
	if a.Has(normalize.Hypertension) {
		base *= 1.3
	}
	ageFactor := float64(age-40) / 10.0
	return round1(base * (1 + ageFactor)), true
}

func SCORE2Risk(v float64) string {
	switch {
	case v >= 10:
		return "very high"
	case v >= 5:
		return "high"
	case v >= 2.5:
		return "moderate"
	default:
		return "low"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
