// Package httpserver exposes the Daybook REST API.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ekropotin/daybook/internal/document"
	"github.com/ekropotin/daybook/internal/errs"
	"github.com/ekropotin/daybook/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth    service.AuthService
	entries service.EntryService
	log     *zap.Logger
}

// New constructs a server with injected services.
func New(auth service.AuthService, entries service.EntryService, log *zap.Logger) *Server {
	return &Server{auth: auth, entries: entries, log: log}
}

// Routes builds the chi router with middleware and all API routes.
func (s *Server) Routes(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(s.log))
	r.Use(Logging(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handleRoot)
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.RequireAuth)
			r.Put("/entry", s.handlePutEntry)
			r.Get("/entry/dates", s.handleEntryDates)
			r.Get("/entry/{date}", s.handleGetEntry)
			r.Delete("/entry/{date}", s.handleDeleteEntry)
		})
	})
	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "works"})
}

// --- Auth ---

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in signupRequest
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Password = strings.TrimSpace(in.Password)
	if msg, ok := validateCredentials(in.Email, in.Password); !ok {
		errorJSON(w, http.StatusBadRequest, msg)
		return
	}
	if in.Name == "" {
		errorJSON(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := s.auth.Signup(r.Context(), in.Email, in.Name, in.Password); err != nil {
		// Duplicate email deliberately surfaces the same way as any other
		// store failure, so signup cannot be used to probe for accounts.
		s.log.Error("signup", zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "error signing up")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	if msg, ok := validateCredentials(in.Email, in.Password); !ok {
		errorJSON(w, http.StatusBadRequest, msg)
		return
	}

	tok, u, err := s.auth.LoginWithIP(r.Context(), in.Email, in.Password, r.RemoteAddr)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrUnauthorized):
			errorJSON(w, http.StatusUnauthorized, "Incorrect email or password")
		case errors.Is(err, errs.ErrRateLimited):
			errorJSON(w, http.StatusTooManyRequests, "too many attempts, try again later")
		default:
			s.log.Error("login", zap.Error(err))
			internalError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token: tok.Value,
		User: userResponse{
			ID:        u.ID.String(),
			Email:     u.Email,
			Name:      u.Name,
			CreatedAt: u.CreatedAt,
		},
	})
}

// validateCredentials checks the shared email/password shape for signup and login.
func validateCredentials(email, password string) (string, bool) {
	if email == "" {
		return "email is required", false
	}
	if a, err := mail.ParseAddress(email); err != nil || a.Address != email {
		return "invalid email", false
	}
	if len(password) < 8 {
		return "password must be at least 8 characters long", false
	}
	if len(password) > 40 {
		return "password must be at most 40 characters long", false
	}
	return "", true
}

// --- Entries ---

type putEntryRequest struct {
	Date string          `json:"date"`
	Text json.RawMessage `json:"text"`
}

func (s *Server) handlePutEntry(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromCtx(r.Context())
	if !ok {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var in putEntryRequest
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(in.Text) == 0 {
		errorJSON(w, http.StatusBadRequest, "text is required")
		return
	}

	if err := s.entries.Put(r.Context(), u.ID, in.Date, in.Text); err != nil {
		if !errors.Is(err, errs.ErrInvalidInput) {
			s.log.Error("put entry", zap.Error(err))
		}
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type entryResponse struct {
	UserID    string          `json:"userId"`
	Date      string          `json:"date"`
	Text      json.RawMessage `json:"text"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	WordCount int             `json:"wordCount"`
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromCtx(r.Context())
	if !ok {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	e, err := s.entries.Get(r.Context(), u.ID, chi.URLParam(r, "date"))
	if err != nil {
		// Absence is an expected state for the calendar client, not a failure.
		if !errors.Is(err, errs.ErrNotFound) && !errors.Is(err, errs.ErrInvalidInput) {
			s.log.Error("get entry", zap.Error(err))
		}
		mapError(w, err)
		return
	}

	words := 0
	if doc, perr := document.Parse(e.Text); perr == nil {
		words = doc.WordCount()
	}
	writeJSON(w, http.StatusOK, entryResponse{
		UserID:    e.UserID.String(),
		Date:      e.DateString(),
		Text:      e.Text,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
		WordCount: words,
	})
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromCtx(r.Context())
	if !ok {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.entries.Delete(r.Context(), u.ID, chi.URLParam(r, "date")); err != nil {
		if !errors.Is(err, errs.ErrInvalidInput) {
			s.log.Error("delete entry", zap.Error(err))
		}
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEntryDates(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromCtx(r.Context())
	if !ok {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	dates, err := s.entries.ListDates(r.Context(), u.ID)
	if err != nil {
		s.log.Error("list entry dates", zap.Error(err))
		internalError(w)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, dates)
}
