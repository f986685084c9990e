// Package tasks implements the task collection API and its storage accessor.
package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"tasklist-backend/internal/middleware"
)

// maxBodyBytes caps request bodies at 1 MiB.
const maxBodyBytes = 1 << 20

var (
	createFields = map[string]struct{}{"title": {}, "description": {}, "dueDate": {}}
	updateFields = map[string]struct{}{"title": {}, "description": {}, "dueDate": {}, "done": {}}
)

// Handler serves the task endpoints.
type Handler struct {
	store  *Store
	logger *logrus.Logger
}

func NewHandler(store *Store, logger *logrus.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// problem is the application/problem+json error body.
type problem struct {
	Type   string       `json:"type"`
	Title  string       `json:"title"`
	Status int          `json:"status"`
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, detail string, fieldErrors []FieldError) {
	w.Header().Set("Content-Type", "application/problem+json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Errors: fieldErrors,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// serverError hides the internal cause from the client and logs it instead.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, action string, err error) {
	h.logger.WithFields(logrus.Fields{
		"request_id": middleware.GetRequestID(r.Context()),
		"error":      err.Error(),
	}).Errorf("%s failed", action)
	writeProblem(w, http.StatusInternalServerError, "An unexpected error occurred.", nil)
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func invalidID(w http.ResponseWriter) {
	writeProblem(w, http.StatusBadRequest, "Invalid task ID.",
		[]FieldError{{Field: "id", Message: "id must be a positive integer"}})
}

// readObject decodes the body into a raw-keyed map so unknown fields and
// per-field types can be checked explicitly.
func readObject(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	var body map[string]json.RawMessage
	if err := dec.Decode(&body); err != nil || body == nil {
		writeProblem(w, http.StatusBadRequest, "Request body must be a JSON object.", nil)
		return nil, false
	}
	// Decode stops at the end of the first value; anything after it is garbage.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeProblem(w, http.StatusBadRequest, "Request body must be a JSON object.", nil)
		return nil, false
	}
	return body, true
}

func unknownFields(body map[string]json.RawMessage, allowed map[string]struct{}) []FieldError {
	var errs []FieldError
	for key := range body {
		if _, ok := allowed[key]; !ok {
			errs = append(errs, FieldError{Field: key, Message: "unknown field"})
		}
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}

// stringField reads a present body key as a string. A non-string value,
// including null, is a per-field validation error.
func stringField(body map[string]json.RawMessage, name string) (string, bool, *FieldError) {
	raw, ok := body[name]
	if !ok {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", true, &FieldError{Field: name, Message: name + " must be a string"}
	}
	return s, true, nil
}

// List handles GET /api/tasks.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var done *bool
	if q := r.URL.Query(); q.Has("done") {
		switch q.Get("done") {
		case "true":
			v := true
			done = &v
		case "false":
			v := false
			done = &v
		default:
			writeProblem(w, http.StatusBadRequest, "Invalid done filter.",
				[]FieldError{{Field: "done", Message: "done must be true or false"}})
			return
		}
	}

	list, err := h.store.List(r.Context(), done)
	if err != nil {
		h.serverError(w, r, "list tasks", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/tasks/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		invalidID(w)
		return
	}

	task, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Task not found.", nil)
		return
	}
	if err != nil {
		h.serverError(w, r, "get task", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, task)
}

// Create handles POST /api/tasks.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	body, ok := readObject(w, r)
	if !ok {
		return
	}
	if errs := unknownFields(body, createFields); len(errs) > 0 {
		writeProblem(w, http.StatusBadRequest, "Request contains unknown fields.", errs)
		return
	}

	var fieldErrs []FieldError
	var title, description, dueDate string

	if raw, present, fe := stringField(body, "title"); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	} else if !present {
		fieldErrs = append(fieldErrs, FieldError{Field: "title", Message: "title is required"})
	} else if v, fe := validateTitle(raw); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	} else {
		title = v
	}

	if raw, present, fe := stringField(body, "description"); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	} else if present {
		if v, fe := validateDescription(raw); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		} else {
			description = v
		}
	}

	if raw, present, fe := stringField(body, "dueDate"); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	} else if present {
		if v, fe := validateDueDate(raw); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		} else {
			dueDate = v
		}
	}

	if len(fieldErrs) > 0 {
		writeProblem(w, http.StatusUnprocessableEntity, "Validation failed.", fieldErrs)
		return
	}

	id, err := h.store.Insert(r.Context(), title, description, dueDate, time.Now().UTC())
	if err != nil {
		h.serverError(w, r, "create task", err)
		return
	}
	task, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.serverError(w, r, "create task", err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", task.ID))
	writeJSON(w, http.StatusCreated, task)
}

// Update handles PATCH /api/tasks/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		invalidID(w)
		return
	}
	body, ok := readObject(w, r)
	if !ok {
		return
	}
	if errs := unknownFields(body, updateFields); len(errs) > 0 {
		writeProblem(w, http.StatusBadRequest, "Request contains unknown fields.", errs)
		return
	}
	if len(body) == 0 {
		writeProblem(w, http.StatusBadRequest, "Request must include at least one field to update.", nil)
		return
	}

	var fieldErrs []FieldError
	var upd Update

	if raw, present, fe := stringField(body, "title"); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	} else if present {
		if v, fe := validateTitle(raw); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		} else {
			upd.Title = &v
		}
	}

	if raw, present, fe := stringField(body, "description"); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	} else if present {
		if v, fe := validateDescription(raw); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		} else {
			upd.Description = &v
		}
	}

	if raw, present, fe := stringField(body, "dueDate"); fe != nil {
		fieldErrs = append(fieldErrs, *fe)
	} else if present {
		if v, fe := validateDueDate(raw); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
		} else {
			upd.DueDate = &v
		}
	}

	if raw, present := body["done"]; present {
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			fieldErrs = append(fieldErrs, FieldError{Field: "done", Message: "done must be a boolean"})
		} else {
			upd.Done = &v
		}
	}

	if len(fieldErrs) > 0 {
		writeProblem(w, http.StatusUnprocessableEntity, "Validation failed.", fieldErrs)
		return
	}

	affected, err := h.store.Update(r.Context(), id, upd, time.Now().UTC())
	if err != nil {
		h.serverError(w, r, "update task", err)
		return
	}
	if affected == 0 {
		writeProblem(w, http.StatusNotFound, "Task not found.", nil)
		return
	}

	task, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		// Deleted between the write and the re-read.
		writeProblem(w, http.StatusNotFound, "Task not found.", nil)
		return
	}
	if err != nil {
		h.serverError(w, r, "update task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		invalidID(w)
		return
	}

	affected, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.serverError(w, r, "delete task", err)
		return
	}
	if affected == 0 {
		writeProblem(w, http.StatusNotFound, "Task not found.", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
