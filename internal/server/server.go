package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/reorder-policy/internal/config"
	"github.com/iwvelando/reorder-policy/internal/solver"
	"github.com/iwvelando/reorder-policy/pkg/constants"
	"github.com/iwvelando/reorder-policy/pkg/normal"
	"github.com/iwvelando/reorder-policy/pkg/output"
	"github.com/iwvelando/reorder-policy/pkg/policy"
	"github.com/iwvelando/reorder-policy/pkg/ztable"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Error kinds reported alongside error messages.
const (
	kindInvalidRequest = "invalid_request"
	kindInvalidParams  = "invalid_parameters"
	kindDomain         = "domain"
	kindNonConvergence = "non_convergence"
	kindNonFinite      = "non_finite"
	kindInternal       = "internal"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	batchLimit    int
	version       string
	table         []ztable.Record
}

// NewHandler constructs the HTTP handler that serves the solver API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, batchLimit int, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}
	if batchLimit <= 0 {
		batchLimit = constants.DefaultBatchConcurrency
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	table, err := ztable.Generate(constants.ZTableMin, constants.ZTableMax, constants.ZTableStep)
	if err != nil {
		panic(fmt.Sprintf("failed to generate z-table: %v", err))
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		batchLimit:    batchLimit,
		version:       trimmedVersion,
		table:         table,
	}

	mux := http.NewServeMux()

	// Solve one configuration posted as JSON or YAML
	mux.HandleFunc("/api/solve", h.handleSolve)

	// Solve one configuration uploaded as a file
	mux.HandleFunc("/api/solve/upload", h.handleSolveUpload)

	// Solve independent configurations concurrently
	mux.HandleFunc("/api/solve/batch", h.handleSolveBatch)

	// Standard normal table lookup
	mux.HandleFunc("/api/ztable", h.handleZTable)

	// Version endpoint
	mux.HandleFunc("/api/version", h.handleVersion)

	return mux
}

type solveResponse struct {
	Params     policy.Params  `json:"params"`
	Options    solver.Options `json:"options"`
	Summary    solver.Summary `json:"summary"`
	Trace      []solver.State `json:"trace"`
	Final      solver.State   `json:"final"`
	FillRate   float64        `json:"fillRate"`
	Converged  bool           `json:"converged"`
	Iterations int            `json:"iterations"`
	CSV        string         `json:"csv"`
	Warnings   []string       `json:"warnings,omitempty"`
	Duration   string         `json:"duration"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type batchItemResponse struct {
	Name   string         `json:"name,omitempty"`
	Result *solveResponse `json:"result,omitempty"`
	Error  *errorResponse `json:"error,omitempty"`
}

type batchResponse struct {
	Items    []batchItemResponse `json:"items"`
	Duration string              `json:"duration"`
}

type zTableResponse struct {
	Probability float64       `json:"probability"`
	Quantile    float64       `json:"quantile"`
	Nearest     ztable.Record `json:"nearest"`
}

func (h *handler) handleSolve(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSolve"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondReadError(w, err, op)
		return
	}

	h.solve(w, data, start, op)
}

func (h *handler) handleSolveUpload(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSolveUpload"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.respondReadError(w, err, op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, kindInvalidRequest, "missing configuration file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondError(w, http.StatusInternalServerError, kindInternal, fmt.Sprintf("failed to read configuration: %v", err), op)
		return
	}

	h.solve(w, buf.Bytes(), start, op)
}

func (h *handler) solve(w http.ResponseWriter, data []byte, start time.Time, op string) {
	conf, err := loadConfiguration(data)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, kindInvalidRequest, err.Error(), op)
		return
	}
	if err := conf.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, classify(err), err.Error(), op)
		return
	}

	result, err := solver.Solve(h.logger, conf.Policy, conf.Solver.Options())
	if err != nil {
		h.respondError(w, statusFor(err), classify(err), err.Error(), op)
		return
	}

	elapsed := time.Since(start)
	response := buildSolveResponse(result, conf.ValidateConfiguration(), elapsed)

	h.logger.Info("policy solved",
		zap.String("op", op),
		zap.Int("iterations", response.Iterations),
		zap.Float64("Q", response.Final.OrderQuantity),
		zap.Float64("R", response.Final.ReorderPoint),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleSolveBatch(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSolveBatch"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondReadError(w, err, op)
		return
	}

	payload, err := decodeYAMLToMap(data)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, kindInvalidRequest, fmt.Sprintf("failed to decode batch: %v", err), op)
		return
	}
	rawItems, ok := payload["items"].([]interface{})
	if !ok || len(rawItems) == 0 {
		h.respondError(w, http.StatusBadRequest, kindInvalidRequest, "batch requires a non-empty items list", op)
		return
	}
	if len(rawItems) > constants.MaxBatchItems {
		h.respondError(w, http.StatusBadRequest, kindInvalidRequest,
			fmt.Sprintf("batch of %d items exceeds limit of %d", len(rawItems), constants.MaxBatchItems), op)
		return
	}

	items := make([]batchItemResponse, len(rawItems))
	confs := make([]*config.Configuration, len(rawItems))
	var jobs []solver.Job
	var jobIndex []int
	for i, raw := range rawItems {
		itemMap, ok := raw.(map[string]interface{})
		if !ok {
			items[i].Error = &errorResponse{Error: "batch item must be an object", Kind: kindInvalidRequest}
			continue
		}
		if name, ok := itemMap["name"].(string); ok {
			items[i].Name = name
		}
		delete(itemMap, "name")

		itemBytes, err := yaml.Marshal(itemMap)
		if err != nil {
			items[i].Error = &errorResponse{Error: err.Error(), Kind: kindInvalidRequest}
			continue
		}
		conf, err := loadConfiguration(itemBytes)
		if err != nil {
			items[i].Error = &errorResponse{Error: err.Error(), Kind: kindInvalidRequest}
			continue
		}
		if err := conf.Validate(); err != nil {
			items[i].Error = &errorResponse{Error: err.Error(), Kind: classify(err)}
			continue
		}
		confs[i] = conf
		jobs = append(jobs, solver.Job{Name: items[i].Name, Params: conf.Policy, Options: conf.Solver.Options()})
		jobIndex = append(jobIndex, i)
	}

	results, err := solver.SolveBatch(r.Context(), h.logger, jobs, h.batchLimit)
	if err != nil {
		h.respondError(w, http.StatusServiceUnavailable, kindInternal, fmt.Sprintf("batch interrupted: %v", err), op)
		return
	}

	for j, res := range results {
		i := jobIndex[j]
		if res.Err != nil {
			items[i].Error = &errorResponse{Error: res.Err.Error(), Kind: classify(res.Err)}
			continue
		}
		resp := buildSolveResponse(res.Result, confs[i].ValidateConfiguration(), 0)
		items[i].Result = &resp
	}

	elapsed := time.Since(start)
	h.logger.Info("batch solved",
		zap.String("op", op),
		zap.Int("items", len(items)),
		zap.Int("solved", len(jobs)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, batchResponse{Items: items, Duration: elapsed.String()})
}

func (h *handler) handleZTable(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleZTable"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("p"))
	if raw == "" {
		h.respondError(w, http.StatusBadRequest, kindInvalidRequest, "missing probability parameter p", op)
		return
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, kindInvalidRequest, fmt.Sprintf("invalid probability %q", raw), op)
		return
	}

	quantile, err := normal.Quantile(p)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, kindDomain, err.Error(), op)
		return
	}
	nearest, err := ztable.Nearest(h.table, p)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, kindInternal, err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, zTableResponse{Probability: p, Quantile: quantile, Nearest: nearest})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func buildSolveResponse(result *solver.Result, warnings []string, elapsed time.Duration) solveResponse {
	final := result.Final()
	return solveResponse{
		Params:     result.Params,
		Options:    result.Options,
		Summary:    result.Summary,
		Trace:      result.Trace,
		Final:      final,
		FillRate:   result.FillRate(),
		Converged:  result.Converged,
		Iterations: final.Iteration,
		CSV:        output.CsvString(result),
		Warnings:   warnings,
		Duration:   elapsed.String(),
	}
}

// loadConfiguration accepts JSON or YAML, since JSON is valid YAML.
func loadConfiguration(data []byte) (*config.Configuration, error) {
	return config.LoadConfigurationFromReader(bytes.NewReader(data))
}

func decodeYAMLToMap(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return make(map[string]interface{}), nil
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return result, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, policy.ErrInvalidParams):
		return kindInvalidParams
	case errors.Is(err, normal.ErrDomain):
		return kindDomain
	case errors.Is(err, solver.ErrNonConvergence):
		return kindNonConvergence
	case errors.Is(err, solver.ErrNonFinite):
		return kindNonFinite
	default:
		return kindInvalidRequest
	}
}

func statusFor(err error) int {
	if errors.Is(err, policy.ErrInvalidParams) {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

func (h *handler) respondReadError(w http.ResponseWriter, err error, op string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.respondError(w, http.StatusRequestEntityTooLarge, kindInvalidRequest,
			fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
		return
	}
	h.respondError(w, http.StatusBadRequest, kindInvalidRequest, fmt.Sprintf("failed to read request: %v", err), op)
}

func (h *handler) respondError(w http.ResponseWriter, status int, kind, msg, op string) {
	h.logger.Error("solve request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("kind", kind),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
