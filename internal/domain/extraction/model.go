package extraction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MaxDocumentSize is the per-document upload limit.
const MaxDocumentSize = 20 << 20

// Event types accepted on a clinical event.
const (
	TypeLab              = "lab"
	TypeImaging          = "imaging"
	TypeMedication       = "medication"
	TypeDischargeSummary = "discharge_summary"
	TypeProcedure        = "procedure"
	TypeConsult          = "consult"
	TypeOther            = "other"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrTooLarge        = errors.New("document exceeds size limit")
	ErrEmptyDocument   = errors.New("document is empty")
)

var supportedMIMETypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"image/heic":      true,
	"application/pdf": true,
}

// Adapter turns a set of documents into a draft. Implementations never fail:
// on any internal error they return a Fallback draft.
type Adapter interface {
	Extract(ctx context.Context, docs []Document) Draft
}

// Document is one uploaded file.
type Document struct {
	Name     string
	MimeType string
	Data     []byte
}

// Validate checks the size and resolves the MIME type, sniffing the content
// when the declared type is missing or generic.
func (d *Document) Validate() error {
	if len(d.Data) == 0 {
		return fmt.Errorf("%s: %w", d.Name, ErrEmptyDocument)
	}
	if len(d.Data) > MaxDocumentSize {
		return fmt.Errorf("%s: %w", d.Name, ErrTooLarge)
	}
	mt := strings.ToLower(strings.TrimSpace(d.MimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "image/jpg" {
		mt = "image/jpeg"
	}
	if mt == "" || mt == "application/octet-stream" {
		mt = strings.SplitN(http.DetectContentType(d.Data), ";", 2)[0]
	}
	if !supportedMIMETypes[mt] {
		return fmt.Errorf("%s (%s): %w", d.Name, mt, ErrUnsupportedType)
	}
	d.MimeType = mt
	return nil
}

// Draft is the unconfirmed output of an extraction. Every field comes from an
// untrusted source; antecedents and labs are kept raw so that the caller
// normalizes them.
type Draft struct {
	Date                 string          `json:"date"`
	Type                 string          `json:"type"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	Antecedents          map[string]any  `json:"antecedents"`
	Labs                 map[string]any  `json:"labs"`
	Diagnostics          []string        `json:"diagnostics"`
	Medications          []string        `json:"medications"`
	HistoricalData       []HistoricalLab `json:"historical_data"`
	GlobalTimelineEvents []GlobalEvent   `json:"global_timeline_events"`
	Fallback             bool            `json:"fallback,omitempty"`
	FallbackReason       string          `json:"fallback_reason,omitempty"`
}

// HistoricalLab is a dated group of lab values found in a table or in the
// narrative of a document.
type HistoricalLab struct {
	Date string         `json:"date"`
	Labs map[string]any `json:"labs"`
}

// GlobalEvent is a non-cardiac history entry.
type GlobalEvent struct {
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description"`
}
