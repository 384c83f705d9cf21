package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/poa/pkg/buildinfo"
	"github.com/matzehuels/poa/pkg/buildup"
	"github.com/matzehuels/poa/pkg/errors"
	"github.com/matzehuels/poa/pkg/pipeline"
	"github.com/matzehuels/poa/pkg/score"
	"github.com/matzehuels/poa/pkg/store"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// AlignResponse is the body of a successful POST /v1/align.
type AlignResponse struct {
	JobID      string                   `json:"job_id"`
	RecordID   string                   `json:"record_id,omitempty"`
	InputHash  string                   `json:"input_hash"`
	Cached     bool                     `json:"cached"`
	Sequences  int                      `json:"sequences"`
	Nodes      int                      `json:"nodes"`
	Edges      int                      `json:"edges"`
	Columns    int                      `json:"columns"`
	Bundles    []BundleSummary          `json:"bundles,omitempty"`
	Premature  bool                     `json:"premature,omitempty"`
	Identities []buildup.IdentityReport `json:"identities,omitempty"`
	Artifacts  map[string]string        `json:"artifacts"`
}

// BundleSummary describes one bundle in an AlignResponse.
type BundleSummary struct {
	ID        int    `json:"id"`
	Consensus string `json:"consensus"`
	Members   int    `json:"members"`
	Length    int    `json:"length"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handleMatrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"matrices": score.BuiltinNames()})
}

func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if opts.MaxAlloc <= 0 || opts.MaxAlloc > s.cfg.MaxAlloc {
		opts.MaxAlloc = s.cfg.MaxAlloc
	}
	opts.Logger = s.logger

	jobID := store.NewID()
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	res, err := s.execute(ctx, opts)
	if err != nil {
		s.logger.Warn("job failed", "job", jobID, "err", err)
		writeError(w, err)
		return
	}

	resp := AlignResponse{
		JobID:      jobID,
		RecordID:   res.RecordID,
		InputHash:  res.InputHash,
		Cached:     res.CacheInfo.JobHit,
		Sequences:  res.Stats.Sequences,
		Nodes:      res.Stats.NodeCount,
		Edges:      res.Stats.EdgeCount,
		Columns:    res.Stats.Columns,
		Identities: res.Identities,
		Artifacts:  make(map[string]string, len(res.Artifacts)),
	}
	if res.Bundles != nil {
		resp.Premature = res.Bundles.Premature
		for _, b := range res.Bundles.Bundles {
			resp.Bundles = append(resp.Bundles, BundleSummary{
				ID:        b.ID,
				Consensus: res.Graph.Sources[b.Consensus].Name,
				Members:   len(b.Members),
				Length:    len(b.Path),
			})
		}
	}
	for f, data := range res.Artifacts {
		resp.Artifacts[f] = string(data)
	}
	s.logger.Info("job done", "job", jobID, "sequences", resp.Sequences, "cached", resp.Cached)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) execute(ctx context.Context, opts pipeline.Options) (res *pipeline.Result, err error) {
	defer errors.Recover(&err)
	return s.runner.Execute(ctx, opts)
}

func (s *Server) record(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	if s.runner.Store == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "no alignment store configured"))
		return nil, false
	}
	id := chi.URLParam(r, "id")
	rec, err := s.runner.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if rec == nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "alignment %q not found", id))
		return nil, false
	}
	return rec, true
}

func (s *Server) handleGetAlignment(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		writeJSON(w, http.StatusOK, rec)
		return
	}

	g, err := rec.Graph()
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := pipeline.RenderFormat(r.Context(), g, nil, pipeline.Options{}, format)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = bytes.NewReader(data).WriteTo(w)
}

func (s *Server) handleDeleteAlignment(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.record(w, r); !ok {
		return
	}
	if err := s.runner.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func contentType(format string) string {
	switch format {
	case pipeline.FormatJSON:
		return "application/json"
	case pipeline.FormatSVG:
		return "image/svg+xml"
	}
	return "text/plain; charset=utf-8"
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidMatrix,
		errors.ErrCodeInvalidFormat, errors.ErrCodeEmptyInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeBudget:
		return http.StatusRequestEntityTooLarge
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	code := string(errors.GetCode(err))
	msg := errors.UserMessage(err)
	if code == "" {
		code = string(errors.ErrCodeInternal)
	}
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
