package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// MsgTaskNotFound is the detail returned with every 404 for a task id.
const MsgTaskNotFound = "Tarefa não encontrada"

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResponse struct {
	Detail string       `json:"detail"`
	Errors []fieldError `json:"errors,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RegisterRoutes mounts the task endpoints under /tasks.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", createTask(svc))
		r.Get("/", listTasks(svc))
		r.Get("/{id}", getTask(svc))
		r.Patch("/{id}", updateTask(svc))
		r.Delete("/{id}", deleteTask(svc))
	})
}

func createTask(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req CreateTask
		if errResp := decodeJSON(r, &req); errResp != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errResp)
			return
		}

		if vErrs := validateCreateTask(req); len(vErrs) > 0 {
			writeValidationError(w, vErrs...)
			return
		}

		t, err := svc.CreateTask(r.Context(), req)
		if err != nil {
			if errors.Is(err, ErrTitleRequired) {
				writeValidationError(w, fieldError{Field: "title", Message: "title is required"})
				return
			}
			serverError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, t)
	}
}

func listTasks(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		completed, fErr := completedFilter(r)
		if fErr != nil {
			writeValidationError(w, *fErr)
			return
		}

		tasks, err := svc.ListTasks(r.Context(), completed)
		if err != nil {
			serverError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

func getTask(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		id, fErr := taskID(r)
		if fErr != nil {
			writeValidationError(w, *fErr)
			return
		}

		t, ok, err := svc.GetTask(r.Context(), id)
		if err != nil {
			serverError(w, r, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, errResponse{Detail: MsgTaskNotFound})
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func updateTask(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		id, fErr := taskID(r)
		if fErr != nil {
			writeValidationError(w, *fErr)
			return
		}

		var patch UpdateTask
		if errResp := decodeJSON(r, &patch); errResp != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errResp)
			return
		}
		if vErrs := validateUpdateTask(patch); len(vErrs) > 0 {
			writeValidationError(w, vErrs...)
			return
		}

		t, ok, err := svc.UpdateTask(r.Context(), id, patch)
		if err != nil {
			if errors.Is(err, ErrInvalidPatch) {
				writeJSON(w, http.StatusUnprocessableEntity, errResponse{Detail: err.Error()})
				return
			}
			serverError(w, r, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, errResponse{Detail: MsgTaskNotFound})
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func deleteTask(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, fErr := taskID(r)
		if fErr != nil {
			w.Header().Set("Content-Type", "application/json")
			writeValidationError(w, *fErr)
			return
		}

		ok, err := svc.DeleteTask(r.Context(), id)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			serverError(w, r, err)
			return
		}
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			writeJSON(w, http.StatusNotFound, errResponse{Detail: MsgTaskNotFound})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func validateCreateTask(req CreateTask) []fieldError {
	var errs []fieldError

	var vErrs validator.ValidationErrors
	if err := validate.Struct(req); errors.As(err, &vErrs) {
		for _, fe := range vErrs {
			errs = append(errs, fieldError{
				Field:   fe.Field(),
				Message: validationMessage(fe),
			})
		}
	}
	if req.Completed.Set && req.Completed.Null {
		errs = append(errs, fieldError{Field: "completed", Message: "completed must not be null"})
	}

	return errs
}

func validateUpdateTask(p UpdateTask) []fieldError {
	var errs []fieldError

	if p.Title.Set {
		switch {
		case p.Title.Null:
			errs = append(errs, fieldError{Field: "title", Message: "title must not be null"})
		case p.Title.Value == "":
			errs = append(errs, fieldError{Field: "title", Message: "title is required"})
		}
	}
	if p.Completed.Set && p.Completed.Null {
		errs = append(errs, fieldError{Field: "completed", Message: "completed must not be null"})
	}

	return errs
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	default:
		return fmt.Sprintf("%s failed the %q rule", fe.Field(), fe.Tag())
	}
}

// completedFilter returns nil when the query parameter is absent.
func completedFilter(r *http.Request) (*bool, *fieldError) {
	q := r.URL.Query()
	if !q.Has("completed") {
		return nil, nil
	}
	v, ok := parseBool(q.Get("completed"))
	if !ok {
		return nil, &fieldError{Field: "completed", Message: "completed must be a boolean"}
	}
	return &v, nil
}

// parseBool accepts strconv.ParseBool's forms plus yes/no and on/off.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on", "y":
		return true, true
	case "no", "off", "n":
		return false, true
	}
	v, err := strconv.ParseBool(s)
	return v, err == nil
}

func taskID(r *http.Request) (int64, *fieldError) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, &fieldError{Field: "id", Message: "id must be an integer"}
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) *errResponse {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return &errResponse{
				Detail: "validation_error",
				Errors: []fieldError{{Field: field, Message: field + " must be of type " + typeErr.Type.String()}},
			}
		}
		return &errResponse{Detail: "invalid_json"}
	}
	// the body must hold exactly one JSON value
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &errResponse{Detail: "invalid_json"}
	}
	return nil
}

func writeValidationError(w http.ResponseWriter, errs ...fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, errResponse{
		Detail: "validation_error",
		Errors: errs,
	})
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "task_handler_error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, errResponse{Detail: "unexpected_error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
