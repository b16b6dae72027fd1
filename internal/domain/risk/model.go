package risk

// Detail names used in RiskScores.Details.
const (
	DetailCHA2DS2VASc = "CHA2DS2-VASc"
	DetailHASBLED     = "HAS-BLED"
	DetailSCORE2      = "SCORE2"
)

// Lipid risk categories, lowest to highest.
const (
	CategoryLow      = "Low"
	CategoryModerate = "Moderate"
	CategoryHigh     = "High"
	CategoryVeryHigh = "Very High"
	CategoryExtreme  = "Extreme"
)

// ScoreDetail pairs a score value with its human-readable risk label.
type ScoreDetail struct {
	Value float64 `json:"value"`
	Risk  string  `json:"risk"`
}

// LipidManagement is the LDL goal assessment.
type LipidManagement struct {
	LDLCurrent         float64 `json:"ldl_current"`
	RiskCategory       string  `json:"risk_category"`
	LDLTarget          float64 `json:"ldl_target"`
	ReductionNeededPct float64 `json:"reduction_needed_pct"`
	Recommendation     string  `json:"recommendation"`
}

// RiskScores is one computed snapshot. A nil field means the score does not
// apply to the patient (its gate failed), not that it scored zero.
type RiskScores struct {
	CHA2DS2VASc     *int                   `json:"chads2vasc,omitempty"`
	HASBLED         *int                   `json:"has_bled,omitempty"`
	SCORE2          *float64               `json:"score2,omitempty"`
	LipidManagement *LipidManagement       `json:"lipid_management,omitempty"`
	Details         map[string]ScoreDetail `json:"details,omitempty"`
}

// Empty reports whether no score applied.
func (s RiskScores) Empty() bool {
	return s.CHA2DS2VASc == nil && s.HASBLED == nil && s.SCORE2 == nil && s.LipidManagement == nil
}

// Input is everything the calculator needs about a patient.
type Input struct {
	Age         int
	Sex         string
	Antecedents map[string]bool
	// Labs holds raw lab entries keyed by analyte; only "ldl" is read.
	Labs map[string]any
}
