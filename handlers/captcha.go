package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"captchaSolver/dto"
	"captchaSolver/middleware"
	"captchaSolver/models"
	"captchaSolver/service"
	"captchaSolver/store"
)

// imageMethod is the one supported submission encoding: a base64 image in the
// "body" form field.
const imageMethod = "base64"

// challengeMethods are interactive challenge-response captcha kinds. They are
// never attempted; the fixed unsupported error is returned and no task is
// created.
var challengeMethods = map[string]bool{
	"userrecaptcha": true,
	"hcaptcha":      true,
	"geetest":       true,
	"turnstile":     true,
	"funcaptcha":    true,
}

// TaskAPI is the service surface the protocol layer consumes.
type TaskAPI interface {
	Submit(ctx context.Context, traceID, body string) (string, error)
	Poll(ctx context.Context, taskID string) (*models.Task, error)
	Health(ctx context.Context) *dto.HealthResponse
	Stats(ctx context.Context) (*dto.StatsResponse, error)
}

type CaptchaHandler struct {
	service TaskAPI
	logger  *zap.Logger
}

func NewCaptchaHandler(service TaskAPI, logger *zap.Logger) *CaptchaHandler {
	return &CaptchaHandler{service: service, logger: logger}
}

// Submit implements POST /in.php. All protocol-level rejections answer 200
// with {status:0,error:...}, matching the reference API.
func (h *CaptchaHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	traceID := middleware.GetTraceID(r.Context())

	if err := r.ParseForm(); err != nil {
		h.respondJSON(w, http.StatusOK, dto.Fail(dto.ErrCodeNoImage))
		return
	}

	method := r.FormValue("method")
	if challengeMethods[method] {
		h.respondJSON(w, http.StatusOK, dto.Fail(dto.ErrCodeNotSupported))
		return
	}
	if method != imageMethod {
		h.respondJSON(w, http.StatusOK, dto.Fail(dto.ErrCodeWrongMethod))
		return
	}

	body := r.FormValue("body")
	if body == "" {
		h.respondJSON(w, http.StatusOK, dto.Fail(dto.ErrCodeNoImage))
		return
	}

	taskID, err := h.service.Submit(r.Context(), traceID, body)
	if err != nil {
		if errors.Is(err, service.ErrImageType) {
			h.respondJSON(w, http.StatusOK, dto.Fail(dto.ErrCodeImageType))
			return
		}
		h.logger.Error("Submit failed",
			zap.String("trace_id", traceID),
			zap.Error(err),
		)
		h.respondJSON(w, http.StatusInternalServerError, dto.Fail("ERROR_INTERNAL"))
		return
	}

	h.respondJSON(w, http.StatusOK, dto.OK(taskID))
}

// Result implements GET /res.php for the get and getbalance actions.
func (h *CaptchaHandler) Result(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	switch r.URL.Query().Get("action") {
	case "getbalance":
		h.respondJSON(w, http.StatusOK, dto.OK(dto.RequestDummyBalance))
	case "get":
		taskID := r.URL.Query().Get("id")
		task, err := h.service.Poll(r.Context(), taskID)
		if err != nil {
			if errors.Is(err, store.ErrTaskNotFound) {
				h.respondJSON(w, http.StatusOK, dto.Fail(dto.ErrCodeUnknownTask))
				return
			}
			h.logger.Error("Poll failed",
				zap.String("trace_id", traceID),
				zap.String("task_id", taskID),
				zap.Error(err),
			)
			h.respondJSON(w, http.StatusInternalServerError, dto.Fail("ERROR_INTERNAL"))
			return
		}

		switch task.Status {
		case models.StatusReady:
			h.respondJSON(w, http.StatusOK, dto.OK(task.Result))
		case models.StatusError:
			h.respondJSON(w, http.StatusOK, dto.Fail(task.ErrorCode))
		default:
			h.respondJSON(w, http.StatusOK, dto.NotReady())
		}
	default:
		h.respondJSON(w, http.StatusOK, dto.Fail(dto.ErrCodeWrongMethod))
	}
}

func (h *CaptchaHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := h.service.Health(r.Context())
	status := http.StatusOK
	if resp.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	h.respondJSON(w, status, resp)
}

func (h *CaptchaHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("Stats failed", zap.Error(err))
		h.respondJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			TraceID: middleware.GetTraceID(r.Context()),
		})
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *CaptchaHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
