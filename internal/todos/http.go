package todos

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	msgMissingFields = "Title or Description is not provided"
	msgInvalidJSON   = "invalid JSON"
	msgInternal      = "Something went wrong"
	msgDeleted       = "Todo deleted successfully"
)

type createTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   *bool  `json:"completed"`
}

type updateTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   *bool  `json:"completed"`
}

type createdResponse struct {
	ID string `json:"id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errResponse struct {
	Error string `json:"error"`
}

type handler struct {
	store  Store
	logger *slog.Logger
	newID  func() string
}

func RegisterRoutes(r chi.Router, store Store, logger *slog.Logger) {
	h := &handler{
		store:  store,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
	}
	h.register(r)
}

func (h *handler) register(r chi.Router) {
	r.Route("/todos", func(r chi.Router) {
		r.Get("/", h.listTodos)
		r.Post("/", h.createTodo)
		r.Get("/{id}", h.getTodo)
		r.Put("/{id}", h.updateTodo)
		r.Delete("/{id}", h.deleteTodo)
	})
}

func (h *handler) listTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.store.ListAll(r.Context())
	if err != nil {
		h.internalError(w, r, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *handler) getTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.storeError(w, r, "get", id, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) createTodo(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: msgInvalidJSON})
		return
	}

	if len(req.Title) <= 0 || len(req.Description) <= 0 {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: msgMissingFields})
		return
	}

	t := Todo{
		ID:          h.newID(),
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}

	if err := h.store.Append(r.Context(), t); err != nil {
		h.internalError(w, r, "append", err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: t.ID})
}

func (h *handler) updateTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateTodoRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: msgInvalidJSON})
		return
	}

	t, err := h.store.Update(r.Context(), id, func(t *Todo) {
		if req.Title != "" {
			t.Title = req.Title
		}
		if req.Description != "" {
			t.Description = req.Description
		}
		if req.Completed != nil {
			t.Completed = *req.Completed
		}
	})
	if err != nil {
		h.storeError(w, r, "update", id, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) deleteTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.RemoveByID(r.Context(), id); err != nil {
		h.storeError(w, r, "remove", id, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgDeleted})
}

func (h *handler) storeError(w http.ResponseWriter, r *http.Request, op, id string, err error) {
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errResponse{Error: notFoundMessage(id)})
		return
	}
	h.internalError(w, r, op, err)
}

func (h *handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error("store_error",
		slog.String("op", op),
		slog.String("req_id", chimw.GetReqID(r.Context())),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, errResponse{Error: msgInternal})
}

func notFoundMessage(id string) string {
	return fmt.Sprintf("Todo not found with id %s", id)
}

// decodeBody treats an empty body as an empty JSON object.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
