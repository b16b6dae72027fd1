package patient

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hcevision/cardio/internal/domain/extraction"
	"github.com/hcevision/cardio/internal/domain/labtrend"
	"github.com/hcevision/cardio/internal/domain/risk"
)

var (
	ErrNotFound   = errors.New("patient not found")
	ErrValidation = errors.New("validation failed")
)

// Event provenance tags.
const (
	SourcePending   = "AI pending"
	SourceConfirmed = "AI + clinical review"
	SourceManual    = "manual"

	// ProvisionalEventID marks an event that has not been confirmed yet.
	ProvisionalEventID = "temp_id"

	SummaryRegistered = "Patient registered."
)

type (
	GlobalEvent   = extraction.GlobalEvent
	HistoricalLab = extraction.HistoricalLab
)

type Demographics struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
	Sex  string `json:"sex"`
}

// Validate normalizes Sex to upper case.
func (d *Demographics) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.Sex = strings.ToUpper(strings.TrimSpace(d.Sex))
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if d.Age < 0 || d.Age > 130 {
		return fmt.Errorf("%w: invalid age: %d", ErrValidation, d.Age)
	}
	if d.Sex != "M" && d.Sex != "F" {
		return fmt.Errorf("%w: sex must be M or F", ErrValidation)
	}
	return nil
}

// ClinicalEvent is one timeline entry. Events are never modified after they
// are confirmed.
type ClinicalEvent struct {
	ID          string         `json:"id"`
	Date        string         `json:"date"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Source      string         `json:"source"`
	Labs        map[string]any `json:"labs,omitempty"`
	Diagnostics []string       `json:"diagnostics,omitempty"`
}

type Medication struct {
	Name     string `json:"name"`
	Dose     string `json:"dose,omitempty"`
	Schedule string `json:"schedule,omitempty"`
	Route    string `json:"route,omitempty"`
}

type BloodPressureRecord struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	HeartRate *int   `json:"heart_rate,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

func (b BloodPressureRecord) takenAt() string {
	return strings.TrimSpace(b.Date + " " + b.Time)
}

// Record is the aggregate persisted for one patient. It is always loaded and
// saved whole.
type Record struct {
	PatientID            string                `json:"patient_id"`
	Demographics         Demographics          `json:"demographics"`
	Timeline             []ClinicalEvent       `json:"timeline"`
	Medications          []Medication          `json:"medications"`
	RiskScores           risk.RiskScores       `json:"risk_scores"`
	LabTrends            labtrend.Trends       `json:"lab_trends"`
	Antecedents          map[string]bool       `json:"antecedents"`
	ClinicalSummary      string                `json:"clinical_summary"`
	Alerts               []string              `json:"alerts"`
	BloodPressureHistory []BloodPressureRecord `json:"blood_pressure_history"`
	GlobalTimelineEvents []GlobalEvent         `json:"global_timeline_events"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// ensureCollections replaces nil collections so they encode as empty JSON
// values. Records written by older clients may lack some of them.
func (r *Record) ensureCollections() {
	if r.Timeline == nil {
		r.Timeline = []ClinicalEvent{}
	}
	if r.Medications == nil {
		r.Medications = []Medication{}
	}
	if r.LabTrends == nil {
		r.LabTrends = labtrend.Trends{}
	}
	if r.Antecedents == nil {
		r.Antecedents = map[string]bool{}
	}
	if r.Alerts == nil {
		r.Alerts = []string{}
	}
	if r.BloodPressureHistory == nil {
		r.BloodPressureHistory = []BloodPressureRecord{}
	}
	if r.GlobalTimelineEvents == nil {
		r.GlobalTimelineEvents = []GlobalEvent{}
	}
}

type CreateRequest struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
	Sex  string `json:"sex"`
}

// Proposal is the unsaved result of analyzing documents for a patient.
type Proposal struct {
	Event                ClinicalEvent   `json:"event"`
	Medications          []string        `json:"medications"`
	Antecedents          map[string]bool `json:"antecedents"`
	RiskScores           risk.RiskScores `json:"risk_scores"`
	HistoricalData       []HistoricalLab `json:"historical_data"`
	GlobalTimelineEvents []GlobalEvent   `json:"global_timeline_events"`
	Fallback             bool            `json:"fallback"`
	FallbackReason       string          `json:"fallback_reason,omitempty"`
}

// SubmitRequest is a proposal after clinical review. Antecedent values are
// coerced, so "yes" or 1 count as true.
type SubmitRequest struct {
	PatientID            string          `json:"patient_id"`
	Event                ClinicalEvent   `json:"event"`
	Medications          []string        `json:"medications"`
	Antecedents          map[string]any  `json:"antecedents"`
	HistoricalData       []HistoricalLab `json:"historical_data"`
	GlobalTimelineEvents []GlobalEvent   `json:"global_timeline_events"`
}

// UpdateRequest is a manual edit. A nil field leaves the stored value
// untouched; a present field replaces it wholesale.
type UpdateRequest struct {
	Demographics         *Demographics         `json:"demographics,omitempty"`
	Antecedents          map[string]any        `json:"antecedents,omitempty"`
	RiskScores           *risk.RiskScores      `json:"risk_scores,omitempty"`
	Medications          []Medication          `json:"medications,omitempty"`
	ClinicalSummary      *string               `json:"clinical_summary,omitempty"`
	LabTrends            labtrend.Trends       `json:"lab_trends,omitempty"`
	BloodPressureHistory []BloodPressureRecord `json:"blood_pressure_history,omitempty"`
	Timeline             []ClinicalEvent       `json:"timeline,omitempty"`
	GlobalTimelineEvents []GlobalEvent         `json:"global_timeline_events,omitempty"`
}
