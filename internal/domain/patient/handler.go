package patient

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hcevision/cardio/internal/domain/extraction"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id/summary", h.GetSummary)
	api.PATCH("/patients/:id", h.UpdatePatient)
	api.DELETE("/patients/:id", h.DeletePatient)
	api.POST("/patients/:id/blood_pressure", h.AddBloodPressure)
	api.GET("/patients/:id/lab_trends/export", h.ExportLabTrends)

	// Analysis workflow
	api.POST("/extract_data", h.ExtractData)
	api.POST("/submit_analysis", h.SubmitAnalysis)
}

// httpError maps service errors onto HTTP statuses. Anything unexpected keeps
// the original error as the internal cause so it reaches the error log.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, created, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	if created {
		return c.JSON(http.StatusCreated, rec)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListPatients(c echo.Context) error {
	recs, err := h.svc.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) GetSummary(c echo.Context) error {
	rec, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.svc.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddBloodPressure(c echo.Context) error {
	var bp BloodPressureRecord
	if err := c.Bind(&bp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.svc.AddBloodPressure(c.Request().Context(), c.Param("id"), bp)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ExportLabTrends(c echo.Context) error {
	rec, data, err := h.svc.ExportWorkbook(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="lab_trends_%s.xlsx"`, rec.PatientID))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

// ExtractData accepts a multipart form with patient_id and one or more
// documents under "files" (or a single "file") and returns the proposal.
func (h *Handler) ExtractData(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "multipart form required")
	}
	patientID := c.FormValue("patient_id")
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	headers := form.File["files"]
	headers = append(headers, form.File["file"]...)
	if len(headers) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one file is required")
	}

	docs := make([]extraction.Document, 0, len(headers))
	for _, fh := range headers {
		doc, err := readDocument(fh)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		docs = append(docs, doc)
	}

	proposal, err := h.svc.Propose(c.Request().Context(), patientID, docs)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, proposal)
}

func (h *Handler) SubmitAnalysis(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.svc.Submit(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func readDocument(fh *multipart.FileHeader) (extraction.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return extraction.Document{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, extraction.MaxDocumentSize+1))
	if err != nil {
		return extraction.Document{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return extraction.Document{
		Name:     fh.Filename,
		MimeType: fh.Header.Get(echo.HeaderContentType),
		Data:     data,
	}, nil
}
