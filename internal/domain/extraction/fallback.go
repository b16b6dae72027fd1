package extraction

import (
	"context"
	"time"

	"github.com/hcevision/cardio/internal/domain/labtrend"
	"github.com/hcevision/cardio/internal/platform/metrics"
)

const (
	FallbackTitle       = "Simulated analysis (fallback)"
	FallbackDescription = "The AI service could not be reached. Review the document and enter the findings manually."
)

// Fallback is the draft returned when extraction fails. It carries no
// clinical content and is flagged so the client can tell it apart from a
// real result.
func Fallback(reason string) Draft {
	return Draft{
		Date:                 now().Format(labtrend.DateLayout),
		Type:                 TypeOther,
		Title:                FallbackTitle,
		Description:          FallbackDescription,
		Antecedents:          map[string]any{},
		Labs:                 map[string]any{},
		Diagnostics:          []string{},
		Medications:          []string{},
		HistoricalData:       []HistoricalLab{},
		GlobalTimelineEvents: []GlobalEvent{},
		Fallback:             true,
		FallbackReason:       reason,
	}
}

// Static returns the same draft for every call. It backs the "static"
// provider in development and stands in for the model in tests.
type Static struct {
	Draft Draft
}

func NewStatic(d Draft) *Static {
	return &Static{Draft: d}
}

func (s *Static) Extract(ctx context.Context, docs []Document) Draft {
	start := time.Now()
	d := s.Draft
	switch {
	case ctx.Err() != nil:
		d = Fallback(ctx.Err().Error())
	case len(docs) == 0:
		d = Fallback("no documents")
	}
	metrics.RecordExtraction("static", d.Fallback, time.Since(start))
	return d
}

// SampleDraft is the draft served by the static provider when none is
// configured: a lipid panel with one earlier LDL reading.
func SampleDraft() Draft {
	return Draft{
		Date:        now().Format(labtrend.DateLayout),
		Type:        TypeLab,
		Title:       "Lipid panel",
		Description: "Sample lipid panel served by the static extraction provider.",
		Antecedents: map[string]any{"hypertension": true},
		Labs: map[string]any{
			"ldl":               map[string]any{"value": 142.0, "unit": "mg/dL"},
			"hdl":               map[string]any{"value": 48.0, "unit": "mg/dL"},
			"total_cholesterol": map[string]any{"value": 221.0, "unit": "mg/dL"},
		},
		Diagnostics: []string{},
		Medications: []string{"Atorvastatin 20 mg"},
		HistoricalData: []HistoricalLab{
			{Date: "2024-01-15", Labs: map[string]any{"ldl": map[string]any{"value": 165.0, "unit": "mg/dL"}}},
		},
		GlobalTimelineEvents: []GlobalEvent{},
	}
}
