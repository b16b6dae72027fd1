package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hcevision/cardio/internal/domain/labtrend"
)

// DefaultTitle is used when the model returns no title.
const DefaultTitle = "Analyzed document"

var now = time.Now

// eventTypes maps every accepted spelling to the event type enum. The Spanish
// names come from drafts produced by the earlier prompt.
var eventTypes = map[string]string{
	TypeLab:              TypeLab,
	TypeImaging:          TypeImaging,
	TypeMedication:       TypeMedication,
	TypeDischargeSummary: TypeDischargeSummary,
	TypeProcedure:        TypeProcedure,
	TypeConsult:          TypeConsult,
	TypeOther:            TypeOther,
	"laboratorio":        TypeLab,
	"imagen":             TypeImaging,
	"medicacion":         TypeMedication,
	"medicación":         TypeMedication,
	"epicrisis":          TypeDischargeSummary,
	"procedimiento":      TypeProcedure,
	"consulta":           TypeConsult,
	"otro":               TypeOther,
}

// EventType maps raw to the event type enum. Unknown values are "other".
func EventType(raw string) string {
	if t, ok := eventTypes[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return TypeOther
}

// Parse decodes model output into a Draft. It accepts the JSON wrapped in a
// markdown fence or surrounded by prose, and tolerates wrongly typed fields by
// dropping them. It fails only when no JSON object can be decoded.
func Parse(text string) (Draft, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(jsonObject(text)), &m); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	if m == nil {
		return Draft{}, fmt.Errorf("decode draft: not an object")
	}

	d := Draft{
		Date:        asString(m["date"]),
		Type:        EventType(asString(m["type"])),
		Title:       asString(m["title"]),
		Description: asString(m["description"]),
		Antecedents: asObject(m["antecedents"]),
		Labs:        labs(m["labs"]),
		Diagnostics: stringList(m["diagnostics"]),
		Medications: medications(m["medications"]),
	}
	d.Date = eventDate(d.Date)
	d.HistoricalData = []HistoricalLab{}
	d.GlobalTimelineEvents = []GlobalEvent{}
	if d.Title == "" {
		d.Title = DefaultTitle
	}

	for _, item := range asList(m["historical_data"]) {
		rec := asObject(item)
		date := asString(rec["date"])
		l := labs(rec["labs"])
		if date == "" || len(l) == 0 {
			continue
		}
		d.HistoricalData = append(d.HistoricalData, HistoricalLab{Date: date, Labs: l})
	}

	for _, item := range asList(m["global_timeline_events"]) {
		rec := asObject(item)
		ev := GlobalEvent{
			Date:        asString(rec["date"]),
			Category:    asString(rec["category"]),
			Description: asString(rec["description"]),
		}
		if ev.Description == "" {
			continue
		}
		d.GlobalTimelineEvents = append(d.GlobalTimelineEvents, ev)
	}

	return d, nil
}

// jsonObject strips a ``` fence and any text around the outermost object.
func jsonObject(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	if i, j := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); i >= 0 && j > i {
		s = s[i : j+1]
	}
	return strings.TrimSpace(s)
}

// eventDate defaults an empty date to today. A date that is present but not a
// calendar date is kept as written so the reviewer can correct it.
func eventDate(raw string) string {
	if raw == "" {
		return now().Format(labtrend.DateLayout)
	}
	if d, err := labtrend.CalendarDate(raw); err == nil {
		return d
	}
	return raw
}

func labs(v any) map[string]any {
	obj := asObject(v)
	out := make(map[string]any, len(obj))
	for k, val := range obj {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || val == nil {
			continue
		}
		out[k] = val
	}
	return out
}

// medications accepts plain names and objects carrying a name.
func medications(v any) []string {
	out := []string{}
	for _, item := range asList(v) {
		var name string
		switch x := item.(type) {
		case string:
			name = x
		case map[string]any:
			name = asString(x["name"])
		}
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func stringList(v any) []string {
	out := []string{}
	for _, item := range asList(v) {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return fmt.Sprint(x)
	default:
		return ""
	}
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}
