package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"scibrain/internal/app"
	"scibrain/internal/extract"
	"scibrain/internal/ratelimit"
	"scibrain/internal/util"
	"scibrain/pkg/ai"
	"scibrain/pkg/auth"
	"scibrain/pkg/domain"
)

const maxJSONBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// Redis, when set, makes rate limits shared across instances.
	Redis                    redis.UniversalClient
	BackendName              string
	SignupRateLimitPerMinute int
	LoginRateLimitPerMinute  int
	MaxUploadBytes           int64
	TrustedProxyCIDRs        []string
}

// Server exposes the HTTP API.
type Server struct {
	app            *app.App
	backend        string
	mux            *http.ServeMux
	maxUploadBytes int64
	trusted        *util.TrustedProxies
	signupLimiter  ratelimit.Limiter
	loginLimiter   ratelimit.Limiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	signupLimit := cfg.SignupRateLimitPerMinute
	if signupLimit <= 0 {
		signupLimit = 5
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 10
	}
	newLimiter := func(name string, limit int) (ratelimit.Limiter, error) {
		limiter, err := ratelimit.New(cfg.Redis, "scibrain:ratelimit:"+name, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	signupLimiter, err := newLimiter("signup", signupLimit)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", loginLimit)
	if err != nil {
		return nil, err
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	backend := cfg.BackendName
	if backend == "" {
		backend = "unknown"
	}
	s := &Server{
		app:            cfg.App,
		backend:        backend,
		mux:            http.NewServeMux(),
		maxUploadBytes: normalizeMaxBytes(cfg.MaxUploadBytes),
		trusted:        trusted,
		signupLimiter:  signupLimiter,
		loginLimiter:   loginLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.Chain(s.mux,
		util.WithRequestID,
		util.WithRequestLog,
		util.WithSecurityHeaders,
		util.WithCORS,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	s.mux.Handle("GET /api/auth/me", s.authenticated(s.handleMe))

	// study material
	s.mux.Handle("GET /api/documents", s.authenticated(s.handleListDocuments))
	s.mux.Handle("POST /api/documents", s.authenticated(s.handleCreateDocument))
	s.mux.Handle("GET /api/documents/{id}", s.authenticated(s.handleGetDocument))
	s.mux.Handle("DELETE /api/documents/{id}", s.authenticated(s.handleDeleteDocument))
	s.mux.Handle("GET /api/documents/{id}/source", s.authenticated(s.handleDocumentSource))
	s.mux.Handle("GET /api/reviewers", s.authenticated(s.handleListReviewers))
	s.mux.Handle("POST /api/reviewers", s.authenticated(s.handleGenerateReviewer))
	s.mux.Handle("GET /api/reviewers/{id}", s.authenticated(s.handleGetReviewer))
	s.mux.Handle("DELETE /api/reviewers/{id}", s.authenticated(s.handleDeleteReviewer))
	s.mux.Handle("GET /api/reviewers/{id}/quiz", s.authenticated(s.handleGetQuiz))
	s.mux.Handle("POST /api/reviewers/{id}/quiz", s.authenticated(s.handleGenerateQuiz))
	s.mux.Handle("GET /api/attempts", s.authenticated(s.handleListAttempts))
	s.mux.Handle("POST /api/attempts", s.authenticated(s.handleSubmitAttempt))
	s.mux.Handle("GET /api/stats", s.authenticated(s.handleStats))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Ready(r.Context()); err != nil {
		util.LoggerFromContext(r.Context()).Error("health check failed", "backend", s.backend, "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "backend": s.backend})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": s.backend})
}

type authHandler func(http.ResponseWriter, *http.Request, domain.Session)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok, err := s.app.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			s.audit(r, "authorize", "error")
			writeAppError(w, r, err)
			return
		}
		if !ok {
			s.audit(r, "authorize", "fail")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := util.ContextWithLogger(r.Context(), util.LoggerFromContext(r.Context()).With("user_id", sess.UserID))
		next(w, r.WithContext(ctx), sess)
	})
}

// auth handlers
type signupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string      `json:"session_token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts") {
		s.audit(r, "signup", "rate_limited")
		return
	}
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		s.audit(r, "signup", "fail", "reason", "invalid_json")
		return
	}
	user, sess, err := s.app.SignUp(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		s.audit(r, "signup", "fail", "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "signup", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "login", "rate_limited")
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		s.audit(r, "login", "fail", "reason", "invalid_json")
		return
	}
	user, sess, err := s.app.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.audit(r, "login", "fail", "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, authResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := app.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		s.audit(r, "logout", "fail", "reason", "missing_token")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(r.Context(), token); err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "logout", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	user, err := s.app.Me(r.Context(), sess.UserID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// documents
type createDocumentRequest struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	FileType string `json:"file_type"`
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.handleUploadDocument(w, r, sess)
		return
	}
	var req createDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fileType := strings.ToLower(strings.TrimSpace(req.FileType))
	if fileType != "" && fileType != extract.TypeText && fileType != extract.TypeMD {
		writeError(w, http.StatusBadRequest, "file_type must be txt or md")
		return
	}
	doc, err := s.app.CreateDocument(r.Context(), sess.UserID, req.Title, req.Text, fileType)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.ContentLength > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}
	doc, err := s.app.UploadDocument(r.Context(), sess.UserID, r.FormValue("title"), filepath.Base(header.Filename), data)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	docs, err := s.app.ListDocuments(r.Context(), sess.UserID, limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeList(w, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := s.app.GetDocument(r.Context(), sess.UserID, id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDocumentSource(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	url, ttl, err := s.app.DocumentSourceURL(r.Context(), sess.UserID, id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"expires_in": int(ttl.Seconds()),
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.app.DeleteDocument(r.Context(), sess.UserID, id); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reviewers
type generateReviewerRequest struct {
	DocumentID int64 `json:"document_id"`
}

func (s *Server) handleGenerateReviewer(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	var req generateReviewerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DocumentID <= 0 {
		writeError(w, http.StatusBadRequest, "document_id is required")
		return
	}
	rv, err := s.app.GenerateReviewer(r.Context(), sess.UserID, req.DocumentID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (s *Server) handleListReviewers(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	list, err := s.app.ListReviewers(r.Context(), sess.UserID, limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeList(w, list)
}

func (s *Server) handleGetReviewer(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rv, err := s.app.GetReviewer(r.Context(), sess.UserID, id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (s *Server) handleDeleteReviewer(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.app.DeleteReviewer(r.Context(), sess.UserID, id); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// quizzes
type generateQuizRequest struct {
	QuizType   string `json:"quiz_type"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req generateQuizRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	set, err := s.app.GenerateQuiz(r.Context(), sess.UserID, id, ai.QuizOptions{
		Type:       req.QuizType,
		Difficulty: req.Difficulty,
		Count:      req.Count,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	set, err := s.app.GetQuiz(r.Context(), sess.UserID, id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// attempts
type submitAttemptRequest struct {
	ReviewerID     int64  `json:"reviewer_id"`
	QuizType       string `json:"quiz_type"`
	Difficulty     string `json:"difficulty"`
	TotalQuestions int    `json:"total_questions"`
	CorrectAnswers int    `json:"correct_answers"`
	TimeTaken      int    `json:"time_taken"`
}

func (s *Server) handleSubmitAttempt(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	var req submitAttemptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	attempt, err := s.app.SubmitAttempt(r.Context(), sess.UserID, app.AttemptInput{
		ReviewerID:     req.ReviewerID,
		QuizType:       req.QuizType,
		Difficulty:     req.Difficulty,
		TotalQuestions: req.TotalQuestions,
		CorrectAnswers: req.CorrectAnswers,
		TimeTaken:      req.TimeTaken,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	attempts, err := s.app.ListAttempts(r.Context(), sess.UserID, limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeList(w, attempts)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	stats, err := s.app.Stats(r.Context(), sess.UserID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// helpers
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps application errors to HTTP responses. Anything not
// recognized is logged and reported as a generic internal error.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrMissingFields),
		errors.Is(err, app.ErrInvalidEmail),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooWeak),
		errors.Is(err, app.ErrEmptyDocument),
		errors.Is(err, app.ErrInvalidAttempt),
		errors.Is(err, ai.ErrInvalidQuizOptions),
		errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, extract.ErrUnreadable):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrGeneratorUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, app.ErrGenerationFailed):
		util.LoggerFromContext(r.Context()).Warn("study generation failed", "err", err)
		writeError(w, http.StatusBadGateway, app.ErrGenerationFailed.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 10 << 20
	}
	return value
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trusted),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter ratelimit.Limiter, msg string) bool {
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if limiter.Allow(r.Context(), key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}
