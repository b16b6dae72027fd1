package patient

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/segmentio/ksuid"

	"github.com/hcevision/cardio/internal/domain/extraction"
	"github.com/hcevision/cardio/internal/domain/labtrend"
	"github.com/hcevision/cardio/internal/domain/normalize"
	"github.com/hcevision/cardio/internal/domain/risk"
	"github.com/hcevision/cardio/internal/platform/metrics"
)

// Alert texts rebuilt on every confirmed analysis.
const (
	AlertStrokeRisk      = "high stroke-risk, consider anticoagulation"
	alertDyslipidemiaFmt = "dyslipidemia risk: %s"
)

// Service owns every mutation of a patient record. Each operation loads the
// full snapshot, changes it and stores it back.
type Service struct {
	store     Store
	extractor extraction.Adapter
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(store Store, extractor extraction.Adapter, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		logger:    logger.With().Str("component", "patient").Logger(),
		now:       time.Now,
	}
}

func (s *Service) load(ctx context.Context, id string) (*Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load patient %s: %w", id, err)
	}
	rec.ensureCollections()
	return rec, nil
}

func (s *Service) save(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("patient_id", rec.PatientID).Msg("save patient failed")
		return fmt.Errorf("save patient %s: %w", rec.PatientID, err)
	}
	return nil
}

// Create registers a patient. A patient whose name matches an existing one,
// ignoring case and surrounding space, is returned unchanged instead.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Record, bool, error) {
	demo := Demographics{Name: req.Name, Age: req.Age, Sex: req.Sex}
	if err := demo.Validate(); err != nil {
		return nil, false, err
	}

	existing, err := s.store.FindByName(ctx, demo.Name)
	switch {
	case err == nil:
		existing.ensureCollections()
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, fmt.Errorf("find patient by name: %w", err)
	}

	ts := s.now().UTC()
	rec := &Record{
		PatientID:       uuid.New().String(),
		Demographics:    demo,
		ClinicalSummary: SummaryRegistered,
		CreatedAt:       ts,
	}
	rec.ensureCollections()
	if err := s.save(ctx, rec); err != nil {
		return nil, false, err
	}
	metrics.RecordPatientCreated()
	s.logger.Info().Str("patient_id", rec.PatientID).Msg("patient registered")
	return rec, true, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.load(ctx, id)
}

// List returns every record, most recently created first.
func (s *Service) List(ctx context.Context) ([]*Record, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	out := lo.Values(all)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].PatientID < out[j].PatientID
	})
	for _, rec := range out {
		rec.ensureCollections()
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete patient %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	s.logger.Info().Str("patient_id", id).Msg("patient deleted")
	return nil
}

// Propose analyzes documents for a patient and returns the draft event with
// the scores it would produce. Nothing is persisted.
func (s *Service) Propose(ctx context.Context, patientID string, docs []extraction.Document) (*Proposal, error) {
	rec, err := s.load(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: at least one document is required", ErrValidation)
	}
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	draft := s.extractor.Extract(ctx, docs)
	ante := normalize.AntecedentSet(draft.Antecedents)

	event := ClinicalEvent{
		ID:          ProvisionalEventID,
		Date:        draft.Date,
		Type:        extraction.EventType(draft.Type),
		Title:       draft.Title,
		Description: draft.Description,
		Source:      SourcePending,
		Labs:        draft.Labs,
		Diagnostics: draft.Diagnostics,
	}

	return &Proposal{
		Event:       event,
		Medications: draft.Medications,
		Antecedents: ante,
		RiskScores: risk.Calculate(risk.Input{
			Age:         rec.Demographics.Age,
			Sex:         rec.Demographics.Sex,
			Antecedents: ante,
			Labs:        draft.Labs,
		}),
		HistoricalData:       draft.HistoricalData,
		GlobalTimelineEvents: draft.GlobalTimelineEvents,
		Fallback:             draft.Fallback,
		FallbackReason:       draft.FallbackReason,
	}, nil
}

// Submit merges a reviewed proposal into the patient record. A lab entry that
// cannot be normalized is skipped and logged; it never fails the submission.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Record, error) {
	rec, err := s.load(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	log := s.logger.With().Str("patient_id", rec.PatientID).Logger()

	event := req.Event
	event.ID = ksuid.New().String()
	event.Source = SourceConfirmed
	event.Type = extraction.EventType(event.Type)
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" {
		event.Title = extraction.DefaultTitle
	}
	event.Date = strings.TrimSpace(event.Date)
	if event.Date == "" {
		event.Date = s.now().Format(labtrend.DateLayout)
	} else if d, err := labtrend.CalendarDate(event.Date); err == nil {
		event.Date = d
	}
	rec.Timeline = append([]ClinicalEvent{event}, rec.Timeline...)

	rec.Medications = mergeMedications(rec.Medications, req.Medications)

	ante := normalize.AntecedentSet(req.Antecedents)
	rec.RiskScores = risk.Calculate(risk.Input{
		Age:         rec.Demographics.Age,
		Sex:         rec.Demographics.Sex,
		Antecedents: ante,
		Labs:        event.Labs,
	})
	rec.Antecedents = ante

	batch := make(map[string][]labtrend.LabResult)
	collect := func(source, date string, labs map[string]any) {
		for _, key := range sortedKeys(labs) {
			raw := labs[key]
			analyte := strings.ToLower(strings.TrimSpace(key))
			if analyte == "" || raw == nil {
				continue
			}
			obs, err := labtrend.Observation(date, raw)
			if err != nil {
				metrics.RecordLabEntrySkipped(source)
				log.Warn().Err(err).
					Str("analyte", analyte).
					Str("source", source).
					Str("date", date).
					Msg("skipping malformed lab entry")
				continue
			}
			batch[analyte] = append(batch[analyte], obs)
		}
	}
	collect("event", event.Date, event.Labs)
	for _, h := range req.HistoricalData {
		collect("historical", h.Date, h.Labs)
	}
	for _, analyte := range sortedKeys(batch) {
		labtrend.MergeBatch(rec.LabTrends, analyte, batch[analyte])
	}

	rec.GlobalTimelineEvents = mergeGlobalEvents(rec.GlobalTimelineEvents, req.GlobalTimelineEvents)
	rec.Alerts = buildAlerts(rec.RiskScores, ante)
	rec.ClinicalSummary = fmt.Sprintf("Patient with %d events. Latest: %s.", len(rec.Timeline), event.Title)

	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	metrics.RecordSubmission()
	log.Info().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Int("analytes", len(batch)).
		Int("alerts", len(rec.Alerts)).
		Msg("analysis submitted")
	return rec, nil
}

// Update applies a manual edit. Present fields replace the stored ones
// wholesale and nothing is recomputed.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Record, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Demographics != nil {
		demo := *req.Demographics
		if err := demo.Validate(); err != nil {
			return nil, err
		}
		rec.Demographics = demo
	}
	if req.Antecedents != nil {
		rec.Antecedents = normalize.AntecedentSet(req.Antecedents)
	}
	if req.RiskScores != nil {
		rec.RiskScores = *req.RiskScores
	}
	if req.Medications != nil {
		rec.Medications = req.Medications
	}
	if req.ClinicalSummary != nil {
		rec.ClinicalSummary = *req.ClinicalSummary
	}
	if req.LabTrends != nil {
		rec.LabTrends = req.LabTrends
	}
	if req.BloodPressureHistory != nil {
		rec.BloodPressureHistory = req.BloodPressureHistory
	}
	if req.Timeline != nil {
		rec.Timeline = req.Timeline
	}
	if req.GlobalTimelineEvents != nil {
		rec.GlobalTimelineEvents = req.GlobalTimelineEvents
	}

	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// AddBloodPressure appends a reading and keeps the history newest first.
func (s *Service) AddBloodPressure(ctx context.Context, id string, bp BloodPressureRecord) (*Record, error) {
	if bp.Systolic <= 0 || bp.Diastolic <= 0 {
		return nil, fmt.Errorf("%w: systolic and diastolic must be positive", ErrValidation)
	}
	date, err := labtrend.CalendarDate(bp.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	bp.Date = date
	bp.Time = strings.TrimSpace(bp.Time)
	bp.Notes = strings.TrimSpace(bp.Notes)

	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.BloodPressureHistory = append(rec.BloodPressureHistory, bp)
	slices.SortStableFunc(rec.BloodPressureHistory, func(a, b BloodPressureRecord) int {
		return strings.Compare(b.takenAt(), a.takenAt())
	})

	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// mergeMedications appends names not already present, compared without case.
// Existing entries keep their dose and schedule.
func mergeMedications(current []Medication, names []string) []Medication {
	seen := lo.SliceToMap(current, func(m Medication) (string, struct{}) {
		return strings.ToLower(strings.TrimSpace(m.Name)), struct{}{}
	})
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		current = append(current, Medication{Name: name})
	}
	return current
}

// mergeGlobalEvents appends events that are not exact duplicates and sorts the
// timeline newest first.
func mergeGlobalEvents(current, incoming []GlobalEvent) []GlobalEvent {
	for _, ev := range incoming {
		ev.Date = strings.TrimSpace(ev.Date)
		ev.Category = strings.TrimSpace(ev.Category)
		ev.Description = strings.TrimSpace(ev.Description)
		if ev.Description == "" || slices.Contains(current, ev) {
			continue
		}
		current = append(current, ev)
	}
	slices.SortStableFunc(current, func(a, b GlobalEvent) int {
		return strings.Compare(b.Date, a.Date)
	})
	return current
}

func buildAlerts(scores risk.RiskScores, ante normalize.Antecedents) []string {
	alerts := []string{}
	if scores.CHA2DS2VASc != nil && *scores.CHA2DS2VASc >= 2 && ante.Has(normalize.AtrialFibrillation) {
		alerts = append(alerts, AlertStrokeRisk)
	}
	if lm := scores.LipidManagement; lm != nil {
		switch lm.RiskCategory {
		case risk.CategoryHigh, risk.CategoryVeryHigh, risk.CategoryExtreme:
			alerts = append(alerts, fmt.Sprintf(alertDyslipidemiaFmt, lm.RiskCategory))
		}
	}
	return alerts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
