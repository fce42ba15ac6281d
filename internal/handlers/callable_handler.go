package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"familytasks/internal/models"
	"familytasks/internal/service"
	"familytasks/internal/validation"
)

// callableCode is the wire name and HTTP status of a callable error code
type callableCode struct {
	name       string
	httpStatus int
}

var callableCodes = map[codes.Code]callableCode{
	codes.Unauthenticated: {"UNAUTHENTICATED", http.StatusUnauthorized},
	codes.InvalidArgument: {"INVALID_ARGUMENT", http.StatusBadRequest},
	codes.NotFound:        {"NOT_FOUND", http.StatusNotFound},
	codes.Unknown:         {"UNKNOWN", http.StatusInternalServerError},
}

type callableRequest struct {
	Data json.RawMessage `json:"data"`
}

type callableResult struct {
	Result any `json:"result"`
}

type callableErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type callableErrorResponse struct {
	Error callableErrorBody `json:"error"`
}

type callableProc func(ctx context.Context, user *models.User, data json.RawMessage) (any, error)

// CallableHandler serves remote procedures at POST /callable/{name}
type CallableHandler struct {
	middleware  *Middleware
	taskService *service.TaskService
	procs       map[string]callableProc
}

// NewCallableHandler creates a new callable handler
func NewCallableHandler(middleware *Middleware, taskService *service.TaskService) *CallableHandler {
	h := &CallableHandler{
		middleware:  middleware,
		taskService: taskService,
	}
	h.procs = map[string]callableProc{
		"addTask":    h.addTask,
		"getTasks":   h.getTasks,
		"updateTask": h.updateTask,
		"deleteTask": h.deleteTask,
	}
	return h
}

// Serve authenticates the caller, decodes {"data": ...} and dispatches to
// the named procedure
func (h *CallableHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	proc, ok := h.procs[name]
	if !ok {
		h.respondWithStatus(w, r, status.Newf(codes.NotFound, "unknown procedure %q", name), nil)
		return
	}

	identity, err := h.middleware.authenticate(r)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			h.respondWithStatus(w, r, status.New(codes.Unauthenticated, "The function must be called while authenticated."), nil)
			return
		}
		h.respondWithStatus(w, r, status.New(codes.Unknown, "Internal error"), err)
		return
	}
	r = withIdentity(r, identity)

	var req callableRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondWithStatus(w, r, status.New(codes.InvalidArgument, "Request body must be JSON with a data field"), nil)
		return
	}

	result, err := proc(r.Context(), identity.User, req.Data)
	if err != nil {
		h.respondWithStatus(w, r, callableStatus(err), err)
		return
	}
	respondWithJSON(w, http.StatusOK, callableResult{Result: result})
}

// callableStatus converts a service error into a callable status
func callableStatus(err error) *status.Status {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.New(codes.InvalidArgument, verr.Message)
	case errors.Is(err, service.ErrInvalidStatus):
		return status.New(codes.InvalidArgument, "Invalid task status")
	case errors.Is(err, service.ErrNoFamily):
		return status.New(codes.InvalidArgument, "You are not part of a family")
	case errors.Is(err, service.ErrTaskNotFound):
		return status.New(codes.NotFound, "Task not found")
	case errors.Is(err, service.ErrUnauthorized):
		return status.New(codes.Unauthenticated, "The function must be called while authenticated.")
	default:
		return status.New(codes.Unknown, "Internal error")
	}
}

func (h *CallableHandler) respondWithStatus(w http.ResponseWriter, r *http.Request, st *status.Status, err error) {
	code, ok := callableCodes[st.Code()]
	if !ok {
		code = callableCodes[codes.Unknown]
	}
	if err != nil {
		entry := LoggerFromContext(r.Context()).WithError(err).WithField("callable_status", code.name)
		if code.httpStatus >= http.StatusInternalServerError {
			entry.Error("callable failed")
		} else {
			entry.Warn("callable rejected")
		}
	}
	respondWithJSON(w, code.httpStatus, callableErrorResponse{
		Error: callableErrorBody{Status: code.name, Message: st.Message()},
	})
}

// decodeData unmarshals a procedure's data payload. Missing data decodes
// as the zero value.
func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return validation.ValidationError{Field: "data", Message: "data has the wrong shape"}
	}
	return nil
}

func (h *CallableHandler) addTask(ctx context.Context, user *models.User, data json.RawMessage) (any, error) {
	var req taskRequest
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	return h.taskService.AddTask(ctx, user, req.input())
}

type getTasksData struct {
	Status string `json:"status"`
}

func (h *CallableHandler) getTasks(ctx context.Context, user *models.User, data json.RawMessage) (any, error) {
	var req getTasksData
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	return h.taskService.ListTasks(ctx, user, req.Status)
}

type updateTaskData struct {
	TaskID string `json:"taskId"`
	taskPatchRequest
}

func (h *CallableHandler) updateTask(ctx context.Context, user *models.User, data json.RawMessage) (any, error) {
	var req updateTaskData
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.TaskID) == "" {
		return nil, validation.ValidationError{Field: "taskId", Message: "taskId is required"}
	}
	return h.taskService.UpdateTask(ctx, user, req.TaskID, req.update())
}

type deleteTaskData struct {
	TaskID string `json:"taskId"`
}

func (h *CallableHandler) deleteTask(ctx context.Context, user *models.User, data json.RawMessage) (any, error) {
	var req deleteTaskData
	if err := decodeData(data, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.TaskID) == "" {
		return nil, validation.ValidationError{Field: "taskId", Message: "taskId is required"}
	}
	if err := h.taskService.DeleteTask(ctx, user, req.TaskID); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "taskId": req.TaskID}, nil
}
