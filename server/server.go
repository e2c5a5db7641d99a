// Package server 提供预测服务的 HTTP JSON 接口。
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/service"
)

// PredictRequest 是 POST /predict 的请求体。record 与 student_id 二选一。
type PredictRequest struct {
	Model     string              `json:"model"`
	Extent    string              `json:"extent"` // local（默认）/ none
	Record    *core.StudentRecord `json:"record,omitempty"`
	StudentID string              `json:"student_id,omitempty"`
}

// GlobalRequest 是 POST /explain/global 的请求体；records 为空时使用整个数据集。
type GlobalRequest struct {
	Model   string               `json:"model"`
	Records []core.StudentRecord `json:"records,omitempty"`
	TopN    int                  `json:"top_n,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler 组装路由
type Handler struct {
	predictor *service.Predictor
	metrics   http.Handler
	logger    *slog.Logger
}

// New 创建 HTTP 处理器，metrics 为 /metrics 的处理器（可为 nil）
func New(p *service.Predictor, metrics http.Handler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{predictor: p, metrics: metrics, logger: logger}
}

// Routes 返回路由表
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict", h.predict)
	mux.HandleFunc("POST /explain/global", h.explainGlobal)
	mux.HandleFunc("GET /schema/{model}", h.schema)
	mux.HandleFunc("GET /models", h.models)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
	return mux
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, core.WrapDomainError(core.ModuleService, core.ErrorCodeInvalidInput, err, "decode request"))
		return
	}
	extent, err := core.ParseExplainExtent(req.Extent)
	if err != nil {
		h.fail(w, err)
		return
	}

	var record core.StudentRecord
	switch {
	case req.Record != nil:
		record = *req.Record
	case req.StudentID != "":
		recs, err := h.predictor.RecordsByID(r.Context(), []string{req.StudentID})
		if err != nil {
			h.fail(w, err)
			return
		}
		record = recs[0]
	default:
		h.fail(w, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "record or student_id is required"))
		return
	}

	res, err := h.predictor.RunPrediction(r.Context(), record, req.Model, extent)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) explainGlobal(w http.ResponseWriter, r *http.Request) {
	var req GlobalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, core.WrapDomainError(core.ModuleService, core.ErrorCodeInvalidInput, err, "decode request"))
		return
	}
	out, err := h.predictor.ExplainGlobal(r.Context(), req.Model, req.Records)
	if err != nil {
		h.fail(w, err)
		return
	}
	if req.TopN > 0 && req.TopN < len(out) {
		out = out[:req.TopN]
	}
	writeJSON(w, http.StatusOK, map[string]any{"model": req.Model, "importance": out})
}

func (h *Handler) schema(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("model")
	schema, err := h.predictor.SchemaFor(name)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"model": name, "features": schema})
}

func (h *Handler) models(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": h.predictor.Models()})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", slog.Any("error", err))
	}
	code := core.ErrorCodeInternalError
	if de := core.GetDomainError(err); de != nil {
		code = de.Code
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

// statusOf 把领域错误码映射为 HTTP 状态码
func statusOf(err error) int {
	switch {
	case core.IsInvalidInput(err), core.IsSchemaMismatch(err):
		return http.StatusBadRequest
	case core.IsNotFound(err):
		return http.StatusNotFound
	case core.IsNotSupported(err):
		return http.StatusNotImplemented
	case core.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case core.IsExplainerConstruction(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
