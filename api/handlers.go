package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"census-grid/census"
	"census-grid/i18n"
	"census-grid/internal/master"
	gerrors "census-grid/pkg/errors"
)

// =============================================================================
// HEALTH ENDPOINTS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"version":     Version,
		"uptime":      time.Since(s.startedAt).Round(time.Second).String(),
		"master_rows": s.service.Store().Len(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if s.source != nil {
		if err := s.source.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("driver", string(s.source.Driver())).Msg("readiness check failed")
			s.jsonError(w, http.StatusServiceUnavailable, "database not ready")
			return
		}
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"version": Version,
	})
}

// =============================================================================
// EXECUTE ENDPOINT
// =============================================================================

// ExecuteResponse carries either a rendered view or the placeholder shown
// when the table could not be built.
type ExecuteResponse struct {
	View        *ViewResponse `json:"view,omitempty"`
	Placeholder bool          `json:"placeholder"`
	Message     string        `json:"message,omitempty"`
}

// ViewResponse is a view plus its column headers in the request language.
type ViewResponse struct {
	master.View
	Headers []string `json:"headers"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	lang := i18n.FromContext(r.Context())

	var sel census.Selection
	if err := s.decode(w, r, &sel); err != nil {
		s.jsonGridError(w, http.StatusBadRequest, gerrors.NewInvalidPayloadError(err.Error()))
		return
	}

	view, err := s.service.Execute(r.Context(), sel)
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("carrier", sel.Carrier).
			Str("plan_sponsor", sel.PlanSponsor).
			Str("member_status", sel.MemberStatus).
			Msg("execute failed, returning placeholder")
		s.jsonResponse(w, http.StatusOK, ExecuteResponse{
			Placeholder: true,
			Message:     s.catalog.Label(lang, i18n.KeyExecuteFailed),
		})
		return
	}

	resp := ExecuteResponse{View: &ViewResponse{
		View:    view,
		Headers: s.catalog.Headers(lang, view.Columns),
	}}
	if len(view.Rows) == 0 {
		resp.Message = s.catalog.Label(lang, i18n.KeyEmptyResult)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.service.Options(r.Context()))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.jsonGridError(w, http.StatusBadRequest, gerrors.NewInvalidPayloadError("invalid view id"))
		return
	}
	info, err := s.service.Describe(id)
	if err != nil {
		s.jsonGridError(w, http.StatusNotFound, &gerrors.GridError{
			Code:     gerrors.ErrCodeUnknownView,
			Message:  err.Error(),
			Severity: gerrors.SeverityInfo,
		})
		return
	}
	s.jsonResponse(w, http.StatusOK, info)
}

// =============================================================================
// MERGE ENDPOINT
// =============================================================================

// MergePayload commits an edited view back to the master table.
type MergePayload struct {
	ViewID    string              `json:"view_id" validate:"omitempty,uuid"`
	Selection census.Selection    `json:"selection"`
	Rows      census.Table        `json:"rows"`
	Policy    *census.MergePolicy `json:"policy,omitempty"`
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if !s.config.EnableMerge {
		s.jsonGridError(w, http.StatusForbidden, &gerrors.GridError{
			Code:     gerrors.ErrCodeMergeDisabled,
			Message:  "merging edits is disabled on this server",
			Severity: gerrors.SeverityInfo,
		})
		return
	}
	lang := i18n.FromContext(r.Context())

	var payload MergePayload
	if err := s.decode(w, r, &payload); err != nil {
		s.jsonGridError(w, http.StatusBadRequest, gerrors.NewInvalidPayloadError(err.Error()))
		return
	}
	if err := s.catalog.Validate(lang, payload); err != nil {
		s.jsonGridError(w, http.StatusBadRequest, gerrors.NewInvalidPayloadError(err.Error()))
		return
	}

	req := master.MergeRequest{
		Selection: payload.Selection,
		Rows:      payload.Rows,
		Policy:    payload.Policy,
	}
	if payload.ViewID != "" {
		req.ViewID = uuid.MustParse(payload.ViewID)
	}

	report, err := s.service.Merge(r.Context(), req)
	switch {
	case err == nil:
		s.jsonResponse(w, http.StatusOK, report)
	case errors.Is(err, master.ErrUnknownView):
		s.jsonGridError(w, http.StatusNotFound, &gerrors.GridError{
			Code:     gerrors.ErrCodeUnknownView,
			Message:  err.Error(),
			Severity: gerrors.SeverityInfo,
		})
	case errors.Is(err, census.ErrDuplicateID):
		s.jsonGridError(w, http.StatusBadRequest, gerrors.NewInvalidPayloadError(err.Error()))
	case gerrors.CodeOf(err) == gerrors.ErrCodeMergeConflict:
		s.jsonGridError(w, http.StatusConflict, err)
	default:
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("merge failed")
		s.jsonError(w, http.StatusInternalServerError, "internal server error")
	}
}

// =============================================================================
// WEBHOOK ENDPOINT
// =============================================================================

// WebhookPayload is the notification body posted by the upstream system.
type WebhookPayload struct {
	GUID string `json:"guid" validate:"required"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	lang := i18n.FromContext(r.Context())

	var payload WebhookPayload
	if err := s.decode(w, r, &payload); err != nil {
		s.jsonGridError(w, http.StatusBadRequest, gerrors.NewInvalidPayloadError(err.Error()))
		return
	}
	if err := s.catalog.Validate(lang, payload); err != nil {
		s.jsonGridError(w, http.StatusBadRequest, gerrors.NewInvalidPayloadError(err.Error()))
		return
	}

	d := s.inbox.Add(payload.GUID, time.Now())
	log.Info().Str("guid", d.GUID).Msg("webhook received")
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status": "success",
	})
}

// handleDeliveries lists the retained webhook deliveries, oldest first.
func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string][]Delivery{
		"deliveries": s.inbox.List(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body. An empty body leaves v at its zero value.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{
		"error": message,
	})
}

func (s *Server) jsonGridError(w http.ResponseWriter, status int, err error) {
	var ge *gerrors.GridError
	if !errors.As(err, &ge) {
		s.jsonError(w, status, err.Error())
		return
	}
	s.jsonResponse(w, status, map[string]string{
		"error":    ge.Message,
		"code":     ge.Code,
		"severity": ge.Severity.String(),
	})
}
