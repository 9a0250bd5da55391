package students

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/google/uuid"

	"campuscore/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeServiceError maps the service error taxonomy to HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrEmailInUse),
		errors.Is(err, ErrMissingOldPassword):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrIncorrectPassword):
		writeMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	default:
		logger.Error("student operation failed", "err", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Course   string `json:"course"`
}

// RegisterHandler handles self-service signup. The created account is
// always a student.
type RegisterHandler struct {
	Service *Service
	Logger  *slog.Logger
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profile, err := h.Service.Register(r.Context(), req.Name, req.Email, req.Password, req.Course)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// ProfileHandler serves the caller's own profile: GET to read, PUT to update.
type ProfileHandler struct {
	Service *Service
	Logger  *slog.Logger
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		profile, err := h.Service.OwnProfile(r.Context(), account.ID)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPut:
		var req struct {
			Name        string `json:"name"`
			Email       string `json:"email"`
			Course      string `json:"course"`
			OldPassword string `json:"oldPassword"`
			Password    string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		profile, err := h.Service.UpdateOwnProfile(r.Context(), account.ID, Update{
			Name:        req.Name,
			Email:       req.Email,
			Course:      req.Course,
			OldPassword: req.OldPassword,
			NewPassword: req.Password,
		})
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// CollectionHandler is the admin view of all students: GET lists them,
// POST registers one on a student's behalf.
type CollectionHandler struct {
	Service *Service
	Logger  *slog.Logger
}

func (h *CollectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		profiles, err := h.Service.ListStudents(r.Context())
		if err != nil {
			h.Logger.Error("list students", "err", err)
			writeMessage(w, http.StatusInternalServerError, "internal error")
			return
		}
		if profiles == nil {
			profiles = []Profile{}
		}
		writeJSON(w, http.StatusOK, profiles)
	case http.MethodPost:
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		profile, err := h.Service.Register(r.Context(), req.Name, req.Email, req.Password, req.Course)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, profile)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DetailHandler operates on a single student by id: PUT updates, DELETE
// removes the account/profile pair.
type DetailHandler struct {
	Service *Service
	Logger  *slog.Logger
}

func (h *DetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Path is /api/students/{id}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 || parts[2] == "" {
		writeMessage(w, http.StatusBadRequest, "missing student id")
		return
	}
	id := parts[2]
	// Reject garbage ids here; the id column is a UUID and the store
	// would otherwise surface the bad input as a storage failure.
	if _, err := uuid.Parse(id); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid student id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req struct {
			Name   string `json:"name"`
			Email  string `json:"email"`
			Course string `json:"course"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		profile, err := h.Service.AdminUpdateStudent(r.Context(), id, req.Name, req.Email, req.Course)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodDelete:
		if err := h.Service.DeleteStudent(r.Context(), id); err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "student removed"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
