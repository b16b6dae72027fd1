package normalize

import "strings"

// Antecedent keys understood by the risk engine.
const (
	Hypertension       = "hypertension"
	Diabetes           = "diabetes"
	HeartFailure       = "heart_failure"
	AtrialFibrillation = "atrial_fibrillation"
	PriorACS           = "prior_acs"
	Stroke             = "stroke"
	VascularDisease    = "vascular_disease"
	RenalDisease       = "renal_disease"
	LiverDisease       = "liver_disease"
	BleedingHistory    = "bleeding_history"
	LabileINR          = "labile_inr"
	AlcoholOrDrugUse   = "alcohol_or_drug_use"
	Smoking            = "smoking"
	Obesity            = "obesity"
	Sedentary          = "sedentary"
	Dyslipidemia       = "dyslipidemia"
)

// AntecedentKeys is the fixed vocabulary, in display order.
var AntecedentKeys = []string{
	Hypertension, Diabetes, HeartFailure, AtrialFibrillation, PriorACS, Stroke,
	VascularDisease, RenalDisease, LiverDisease, BleedingHistory, LabileINR,
	AlcoholOrDrugUse, Smoking, Obesity, Sedentary, Dyslipidemia,
}

// antecedentAliases maps keys emitted by older extraction prompts onto the
// canonical vocabulary.
var antecedentAliases = map[string]string{
	"hta":           Hypertension,
	"acs_history":   PriorACS,
	"alcohol_drugs": AlcoholOrDrugUse,
}

// Antecedents is a patient's condition set. Missing keys read as false.
type Antecedents map[string]bool

// Has reports whether the condition is present.
func (a Antecedents) Has(key string) bool {
	return a[key]
}

// Any reports whether at least one of the conditions is present.
func (a Antecedents) Any(keys ...string) bool {
	for _, k := range keys {
		if a[k] {
			return true
		}
	}
	return false
}

// CanonicalKey lowercases key and resolves legacy aliases.
func CanonicalKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := antecedentAliases[k]; ok {
		return alias
	}
	return k
}

// AntecedentSet coerces every value of raw through Boolean and canonicalizes
// the keys. When an alias and its canonical key are both present, true wins.
func AntecedentSet(raw map[string]any) Antecedents {
	out := make(Antecedents, len(raw))
	for k, v := range raw {
		key := CanonicalKey(k)
		if key == "" {
			continue
		}
		out[key] = out[key] || Boolean(v)
	}
	return out
}

// FromBools is AntecedentSet for an already boolean map.
func FromBools(raw map[string]bool) Antecedents {
	out := make(Antecedents, len(raw))
	for k, v := range raw {
		key := CanonicalKey(k)
		if key == "" {
			continue
		}
		out[key] = out[key] || v
	}
	return out
}
