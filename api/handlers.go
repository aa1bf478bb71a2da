/*
handlers.go - HTTP API handlers for the vacation ledger

PURPOSE:
  Exposes ledger.Service and the report views over REST. Handles request
  decoding and validation, resolves the actor, and maps domain errors to
  HTTP statuses. No balance arithmetic happens here.

ENDPOINTS:
  Collaborators:
    GET    /api/collaborators               List collaborators
    POST   /api/collaborators               Create collaborator
    GET    /api/collaborators/{id}          Get collaborator
    PUT    /api/collaborators/{id}          Replace collaborator
    DELETE /api/collaborators/{id}          Delete collaborator (entries stay)
    GET    /api/collaborators/{id}/balance  Balance breakdown
    GET    /api/collaborators/{id}/report   Individual report

  Entries:
    GET    /api/entries?collaborator_id=    List entries, newest first
    POST   /api/entries                     Create entry
    GET    /api/entries/{id}                Get entry
    PUT    /api/entries/{id}                Replace entry
    DELETE /api/entries/{id}                Delete entry
    GET    /api/kinds                       Entry kinds and labels
    POST   /api/calculator                  Live metrics preview

  Holidays:
    GET    /api/holidays                    List registry
    POST   /api/holidays                    Create holiday
    PUT    /api/holidays/{id}               Replace holiday
    DELETE /api/holidays/{id}               Delete holiday
    POST   /api/holidays/defaults           Seed default holidays of a year

  Reports:
    GET    /api/balances                    One row per collaborator
    GET    /api/analytics                   Filtered totals and top-N
    GET    /api/dashboard                   Headline counters and movements

  Import and audit:
    POST   /api/import?dry_run=true         Import a CSV file
    GET    /api/import/history              Recent imports
    GET    /api/import/template             Downloadable CSV template
    GET    /api/audit?limit=&actor_id=      Audit trail, optionally one actor's

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid range, zero duration, bad file
  - 403: Mutation attempted by a read-only actor
  - 404: Resource not found
  - 500: Internal errors (logged, details withheld)

SEE ALSO:
  - dto.go: Request/response types
  - server.go: Route wiring
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opsdesk/vacation-ledger/calendar"
	"github.com/opsdesk/vacation-ledger/importer"
	"github.com/opsdesk/vacation-ledger/ledger"
	"github.com/opsdesk/vacation-ledger/report"
)

// MaxImportBytes bounds uploaded import files.
const MaxImportBytes = 5 << 20

// DefaultAuditLimit is how many audit entries GET /api/audit returns.
const DefaultAuditLimit = 100

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Service     *ledger.Service
	Logger      *zap.Logger
	Metrics     *Metrics
	Pinger      Pinger
	Thresholds  report.Thresholds
	RecentLimit int
	TopN        int

	validate *validator.Validate
}

// NewHandler creates a handler with report defaults. Metrics and Pinger are
// optional.
func NewHandler(svc *ledger.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		Service:     svc,
		Logger:      logger.Named("api"),
		Thresholds:  report.DefaultThresholds,
		RecentLimit: report.DefaultRecentLimit,
		TopN:        report.DefaultTopN,
		validate:    v,
	}
}

// =============================================================================
// HEALTH
// =============================================================================

// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Pinger != nil {
		if err := h.Pinger.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// COLLABORATOR ENDPOINTS
// =============================================================================

// GET /api/collaborators
func (h *Handler) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	collaborators, err := h.Service.ListCollaborators(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(collaborators))
}

// POST /api/collaborators
func (h *Handler) CreateCollaborator(w http.ResponseWriter, r *http.Request) {
	var req CollaboratorRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Service.CreateCollaborator(r.Context(), ActorFrom(r.Context()), req.toCollaborator())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GET /api/collaborators/{id}
func (h *Handler) GetCollaborator(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetCollaborator(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// PUT /api/collaborators/{id}
func (h *Handler) UpdateCollaborator(w http.ResponseWriter, r *http.Request) {
	var req CollaboratorRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Service.UpdateCollaborator(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), req.toCollaborator())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DELETE /api/collaborators/{id}
func (h *Handler) DeleteCollaborator(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteCollaborator(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/collaborators/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Service.GetCollaborator(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	s, err := h.Service.Balance(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(s))
}

// GET /api/collaborators/{id}/report
func (h *Handler) GetIndividualReport(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.Snapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	rep, err := report.Individual(snap, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// =============================================================================
// ENTRY ENDPOINTS
// =============================================================================

// GET /api/entries
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.ListEntries(r.Context(), r.URL.Query().Get("collaborator_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}

// POST /api/entries
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	entry, err := h.Service.CreateEntry(r.Context(), ActorFrom(r.Context()), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.Metrics.entryWritten(string(entry.Kind))
	writeJSON(w, http.StatusCreated, entry)
}

// GET /api/entries/{id}
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Service.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// PUT /api/entries/{id}
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	entry, err := h.Service.UpdateEntry(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.Metrics.entryWritten(string(entry.Kind))
	writeJSON(w, http.StatusOK, entry)
}

// DELETE /api/entries/{id}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteEntry(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/kinds
func (h *Handler) ListKinds(w http.ResponseWriter, r *http.Request) {
	type kindDTO struct {
		Code  ledger.Kind `json:"code"`
		Label string      `json:"label"`
	}
	out := make([]kindDTO, 0, len(ledger.Kinds))
	for _, k := range ledger.Kinds {
		out = append(out, kindDTO{Code: k, Label: k.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/calculator
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculatorRequest
	if !h.decode(w, r, &req) {
		return
	}

	j := calendar.NewJurisdiction(req.State, req.SubUnit)
	if j.IsZero() && req.CollaboratorID != "" {
		c, err := h.Service.GetCollaborator(r.Context(), req.CollaboratorID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		j = c.Jurisdiction()
	}

	holidays, err := h.Service.ListHolidays(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp := CalculatorResponse{
		Metrics:  calendar.PreviewMetrics(req.StartDate, req.EndDate, j, holidays),
		Holidays: []calendar.Holiday{},
	}
	if !resp.Metrics.IsZero() {
		start, _ := calendar.ParseDate(req.StartDate)
		end, _ := calendar.ParseDate(req.EndDate)
		resp.Holidays = nonNil(calendar.ApplicableHolidays(start, end, j, holidays))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (req EntryRequest) toInput() (ledger.EntryInput, error) {
	kind, err := ledger.ParseKind(req.Kind)
	if err != nil {
		return ledger.EntryInput{}, err
	}
	in := ledger.EntryInput{
		CollaboratorID: req.CollaboratorID,
		Kind:           kind,
		ManualDays:     req.ManualDays,
		Note:           req.Note,
		AttachmentRef:  req.AttachmentRef,
	}
	if in.Start, err = optionalDate("start_date", req.StartDate); err != nil {
		return ledger.EntryInput{}, err
	}
	if in.End, err = optionalDate("end_date", req.EndDate); err != nil {
		return ledger.EntryInput{}, err
	}
	if req.State != "" || req.SubUnit != "" {
		in.Jurisdiction = calendar.NewJurisdiction(req.State, req.SubUnit)
	}
	return in, nil
}

func optionalDate(field, s string) (calendar.Date, error) {
	if strings.TrimSpace(s) == "" {
		return calendar.Date{}, nil
	}
	d, err := calendar.ParseDate(s)
	if err != nil {
		return calendar.Date{}, &ledger.ValidationError{Field: field, Message: err.Error()}
	}
	return d, nil
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Service.ListHolidays(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(holidays))
}

// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if !h.decode(w, r, &req) {
		return
	}
	holiday, err := req.toHoliday()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	created, err := h.Service.CreateHoliday(r.Context(), ActorFrom(r.Context()), holiday)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// PUT /api/holidays/{id}
func (h *Handler) UpdateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if !h.decode(w, r, &req) {
		return
	}
	holiday, err := req.toHoliday()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	updated, err := h.Service.UpdateHoliday(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), holiday)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteHoliday(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/holidays/defaults
// Body is optional; the year defaults to the current one.
func (h *Handler) SeedHolidays(w http.ResponseWriter, r *http.Request) {
	var req SeedHolidaysRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	year := req.Year
	if year == 0 {
		year = h.Service.Today().Year()
	}
	n, err := h.Service.SeedDefaultHolidays(r.Context(), ActorFrom(r.Context()), year)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"year": year, "seeded": n})
}

func (req HolidayRequest) toHoliday() (calendar.Holiday, error) {
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		return calendar.Holiday{}, &ledger.ValidationError{Field: "date", Message: err.Error()}
	}
	scope, err := calendar.ParseScope(req.Scope)
	if err != nil {
		return calendar.Holiday{}, &ledger.ValidationError{Field: "scope", Message: err.Error()}
	}
	return calendar.Holiday{
		Name:    req.Name,
		Date:    date,
		Scope:   scope,
		State:   req.State,
		SubUnit: req.SubUnit,
	}, nil
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// GET /api/balances
func (h *Handler) ListBalances(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.Snapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Balances(snap))
}

// GET /api/analytics?collaborator_id=&state=&sub_unit=&top=
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	top, ok := queryInt(w, r, "top", h.TopN)
	if !ok {
		return
	}
	snap, err := h.Service.Snapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	filter := report.Filter{
		CollaboratorID: q.Get("collaborator_id"),
		State:          q.Get("state"),
		SubUnit:        q.Get("sub_unit"),
	}
	writeJSON(w, http.StatusOK, report.Analytics(snap, filter, top))
}

// GET /api/dashboard?limit=
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", h.RecentLimit)
	if !ok {
		return
	}
	snap, err := h.Service.Snapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Dashboard(snap, limit, h.Thresholds))
}

// =============================================================================
// IMPORT AND AUDIT ENDPOINTS
// =============================================================================

// POST /api/import?dry_run=true
// Accepts multipart/form-data with a "file" part, or the raw CSV as the
// body (file name from ?file_name=). A dry run plans against the current
// ledger without writing and is open to read-only actors.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImportBytes)

	fileName, body, err := importSource(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload", err)
		return
	}
	defer body.Close()

	records, err := importer.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file", err)
		return
	}
	plan := importer.NewPlan(importer.Validate(records), h.Service.Today(), h.Service.NewID)

	if dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run")); dryRun {
		snap, err := h.Service.Snapshot(r.Context())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		batch, err := plan.Build(snap)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ImportResponse{
			FileName: fileName,
			DryRun:   true,
			Imported: len(batch.Entries),
			Rejected: batch.Rejected,
			Rows:     plan.Results,
		})
		return
	}

	rec, err := h.Service.Import(r.Context(), ActorFrom(r.Context()), fileName, plan.Build)
	resp := ImportResponse{
		FileName: fileName,
		Status:   rec.Status,
		Imported: rec.Imported,
		Rejected: rec.Rejected,
		Rows:     plan.Results,
	}
	switch {
	case err == nil:
		h.Metrics.importOutcome(rec.Imported, rec.Rejected)
		writeJSON(w, http.StatusOK, resp)
	case ledger.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, resp)
	default:
		h.writeServiceError(w, r, err)
	}
}

func importSource(r *http.Request) (string, io.ReadCloser, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("missing file part: %w", err)
		}
		return header.Filename, file, nil
	}
	name := strings.TrimSpace(r.URL.Query().Get("file_name"))
	if name == "" {
		name = "upload.csv"
	}
	return name, r.Body, nil
}

// GET /api/import/history
func (h *Handler) ImportHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", ledger.ImportHistoryRetention)
	if !ok {
		return
	}
	records, err := h.Service.ImportHistory(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

// GET /api/import/template
func (h *Handler) ImportTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", importer.TemplateFileName))
	if err := importer.WriteTemplate(w); err != nil {
		h.Logger.Warn("failed to write import template", zap.Error(err))
	}
}

// GET /api/audit?limit=&actor_id=
func (h *Handler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", DefaultAuditLimit)
	if !ok {
		return
	}
	var (
		entries []ledger.AuditEntry
		err     error
	)
	if actorID := r.URL.Query().Get("actor_id"); actorID != "" {
		entries, err = h.Service.AuditTrailBy(r.Context(), actorID, limit)
	} else {
		entries, err = h.Service.AuditTrail(r.Context(), limit)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst and validates it. On failure it writes
// a 400 and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		resp := ErrorResponse{Error: "validation failed", Details: err.Error()}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				resp.Fields = append(resp.Fields, fe.Field()+": "+fe.Tag())
			}
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case ledger.IsUnauthorized(err):
		writeError(w, http.StatusForbidden, "forbidden", err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, "invalid request", err)
	default:
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid "+key, err)
		return 0, false
	}
	return n, true
}

// nonNil keeps empty collections as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
