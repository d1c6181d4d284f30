package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/aristath/kellyfolio/internal/events"
	"github.com/aristath/kellyfolio/internal/history"
	"github.com/aristath/kellyfolio/internal/kelly"
)

// decodeBody accepts either YAML or JSON, selecting by Content-Type; YAML
// unmarshals JSON fine too since JSON is a YAML subset, so an unset or
// unrecognized Content-Type defaults to YAML.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Header.Get("Content-Type") == "application/json" {
		return json.NewDecoder(r.Body).Decode(v)
	}
	return yaml.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	if kerr, ok := err.(*kelly.Error); ok {
		writeJSON(w, status, kerr)
		return
	}
	writeJSON(w, status, map[string]string{"code": "internal-error", "message": err.Error()})
}

// asKellyError normalizes any error into the stable {code, message} shape,
// so the response envelope's error field is always structured the same way
// regardless of where the failure originated.
func asKellyError(err error) *kelly.Error {
	if kerr, ok := err.(*kelly.Error); ok {
		return kerr
	}
	return &kelly.Error{Code: "internal-error", Message: err.Error()}
}

// blockedAllocateEnvelope is the wire shape for an /allocate call that never
// produced a result: either ERROR-severity validation problems blocked the
// solver from running at all (ValidationProblems set, Error nil), or
// filtering/solving itself failed after validation passed (Error set,
// ValidationProblems nil). The two are never both set.
type blockedAllocateEnvelope struct {
	RunID              string                 `json:"run_id"`
	Result             interface{}            `json:"result"`
	ValidationProblems kelly.ValidationResult `json:"validation_problems,omitempty"`
	Error              *kelly.Error           `json:"error"`
}

func digestOf(input kelly.AllocationInput) string {
	canonical, _ := yaml.Marshal(input)
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	var input kelly.AllocationInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	runID := uuid.NewString()
	s.bus.Emit(events.AllocationStarted, "httpapi", map[string]interface{}{"run_id": runID})

	response, validation, err := kelly.Allocate(input, s.solverCfg)

	run := history.Run{
		ID:          runID,
		RequestedAt: time.Now().UTC(),
		InputDigest: digestOf(input),
	}

	if err != nil {
		code := "internal-error"
		if kerr, ok := err.(*kelly.Error); ok {
			code = kerr.Code
		}
		run.ErrorCode = &code
		s.saveRun(r, run)
		s.bus.Emit(events.AllocationFailed, "httpapi", map[string]interface{}{"run_id": runID, "detail": code})
		log.Warn().Err(err).Str("run_id", runID).Msg("allocation failed")
		writeJSON(w, http.StatusUnprocessableEntity, blockedAllocateEnvelope{
			RunID: runID,
			Error: asKellyError(err),
		})
		return
	}

	if validation.HasErrors() {
		code := "validation-blocked"
		run.ErrorCode = &code
		s.saveRun(r, run)
		s.bus.Emit(events.AllocationFailed, "httpapi", map[string]interface{}{"run_id": runID, "detail": code})
		log.Warn().Str("run_id", runID).Msg("allocation blocked by validation")
		writeJSON(w, http.StatusUnprocessableEntity, blockedAllocateEnvelope{
			RunID:              runID,
			ValidationProblems: validation,
		})
		return
	}

	fractions := make(map[string]float64, len(response.Allocations))
	for _, a := range response.Allocations {
		fractions[a.Ticker] = a.Fraction
	}
	run.Fractions = fractions
	run.ExpectedReturn = &response.ExpectedReturn
	s.saveRun(r, run)
	s.archiveRun(r, runID, input, response)

	s.bus.Emit(events.AllocationCompleted, "httpapi", map[string]interface{}{"run_id": runID, "response": response})
	writeJSON(w, http.StatusOK, struct {
		RunID string `json:"run_id"`
		*kelly.AllocationResponse
	}{RunID: runID, AllocationResponse: response})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var portfolio kelly.Portfolio
	if err := decodeBody(r, &portfolio); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	response, err := kelly.Analyze(portfolio)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if run == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	report, err := s.healthInfo.Report(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) saveRun(r *http.Request, run history.Run) {
	if err := s.store.Save(r.Context(), run); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("run_id", run.ID).Msg("failed to persist allocation run")
	}
}

func (s *Server) archiveRun(r *http.Request, runID string, input kelly.AllocationInput, response *kelly.AllocationResponse) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.Archive(r.Context(), runID, input, response); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("run_id", runID).Msg("archival failed; response was not retained")
	}
}
