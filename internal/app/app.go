package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"strings"
	"time"

	"scibrain/internal/extract"
	"scibrain/internal/util"
	"scibrain/pkg/ai"
	"scibrain/pkg/auth"
	"scibrain/pkg/domain"
	"scibrain/pkg/storage"
	"scibrain/pkg/store"
)

const (
	bearerPrefix        = "Bearer "
	defaultSourceURLTTL = 15 * time.Minute
)

// StudyGenerator produces reviewers and quizzes. *ai.StudyGenerator
// implements it.
type StudyGenerator interface {
	Model() string
	GenerateReviewer(ctx context.Context, title, text string) (ai.ReviewerContent, error)
	GenerateQuiz(ctx context.Context, r domain.Reviewer, opts ai.QuizOptions) (json.RawMessage, error)
}

// Config holds the collaborators of the core application.
type Config struct {
	Store     *store.Store
	Hasher    auth.Hasher
	Generator StudyGenerator
	// Objects archives uploaded files. Nil keeps only the extracted text.
	Objects      storage.ObjectStore
	SourceURLTTL time.Duration
	SessionTTL   time.Duration
	Now          func() time.Time
}

// App is the core application service wiring together storage, auth
// primitives and study generation.
type App struct {
	store        *store.Store
	hasher       auth.Hasher
	generator    StudyGenerator
	objects      storage.ObjectStore
	sourceURLTTL time.Duration
	sessionTTL   time.Duration
	now          func() time.Time
}

// New constructs the application. Generator may be nil, in which case the
// generation endpoints report ErrGeneratorUnavailable.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Hasher == nil {
		cfg.Hasher = auth.BcryptHasher{}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = auth.DefaultSessionTTL
	}
	if cfg.SourceURLTTL <= 0 {
		cfg.SourceURLTTL = defaultSourceURLTTL
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &App{
		store:        cfg.Store,
		hasher:       cfg.Hasher,
		generator:    cfg.Generator,
		objects:      cfg.Objects,
		sourceURLTTL: cfg.SourceURLTTL,
		sessionTTL:   cfg.SessionTTL,
		now:          cfg.Now,
	}, nil
}

// Ready reports whether the storage backend answers.
func (a *App) Ready(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// SignUp registers a user and opens a session for them.
func (a *App) SignUp(ctx context.Context, fullName, email, password string) (domain.User, domain.Session, error) {
	fullName = auth.Sanitize(fullName)
	email = auth.NormalizeEmail(email)
	if fullName == "" || email == "" || password == "" {
		return domain.User{}, domain.Session{}, ErrMissingFields
	}
	if !auth.ValidEmail(email) {
		return domain.User{}, domain.Session{}, ErrInvalidEmail
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, domain.Session{}, err
	}
	hash, err := a.hasher.HashPassword(password)
	if err != nil {
		return domain.User{}, domain.Session{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := a.store.CreateUser(ctx, fullName, email, hash)
	if errors.Is(err, store.ErrEmailTaken) {
		return domain.User{}, domain.Session{}, ErrEmailAlreadyExists
	}
	if err != nil {
		return domain.User{}, domain.Session{}, fmt.Errorf("create user: %w", err)
	}
	sess, err := a.issueSession(ctx, user)
	if err != nil {
		return domain.User{}, domain.Session{}, err
	}
	util.LoggerFromContext(ctx).Info("user signed up", "user_id", user.ID)
	return user, sess, nil
}

// Login checks credentials, refreshes the last-login stamp and opens a session.
func (a *App) Login(ctx context.Context, email, password string) (domain.User, domain.Session, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, domain.Session{}, ErrInvalidCredentials
	}
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, domain.Session{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !a.hasher.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, domain.Session{}, ErrInvalidCredentials
	}
	updated, ok, err := a.store.UpdateLastLogin(ctx, user.ID)
	if err != nil {
		return domain.User{}, domain.Session{}, fmt.Errorf("update last login: %w", err)
	}
	if ok {
		user = updated
	}
	sess, err := a.issueSession(ctx, user)
	if err != nil {
		return domain.User{}, domain.Session{}, err
	}
	return user, sess, nil
}

func (a *App) issueSession(ctx context.Context, user domain.User) (domain.Session, error) {
	token, err := auth.NewSessionToken()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generate session token: %w", err)
	}
	sess, err := a.store.CreateSession(ctx, user, token, auth.SessionExpiry(a.now(), a.sessionTTL))
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Logout deletes the session behind token. Unknown tokens are ignored.
func (a *App) Logout(ctx context.Context, token string) error {
	if err := a.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// BearerToken extracts the token from an Authorization header value. It
// returns "" unless the header carries the exact "Bearer " prefix and a
// non-empty token.
func BearerToken(header string) string {
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// Authenticate resolves an Authorization header to a live session. Absent or
// malformed headers resolve to no session without touching storage.
func (a *App) Authenticate(ctx context.Context, header string) (domain.Session, bool, error) {
	token := BearerToken(header)
	if token == "" {
		return domain.Session{}, false, nil
	}
	sess, ok, err := a.store.GetSession(ctx, token)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("lookup session: %w", err)
	}
	return sess, ok, nil
}

// Me returns the user behind a session.
func (a *App) Me(ctx context.Context, userID int64) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

// CreateDocument saves pasted text as a document.
func (a *App) CreateDocument(ctx context.Context, userID int64, title, text, fileType string) (domain.Document, error) {
	return a.saveDocument(ctx, domain.Document{
		UserID:       userID,
		Title:        title,
		OriginalText: text,
		FileType:     fileType,
	})
}

func (a *App) saveDocument(ctx context.Context, doc domain.Document) (domain.Document, error) {
	if strings.TrimSpace(doc.OriginalText) == "" {
		return domain.Document{}, ErrEmptyDocument
	}
	doc.Title = auth.Sanitize(doc.Title)
	if doc.Title == "" {
		doc.Title = "Untitled document"
	}
	if doc.FileType == "" {
		doc.FileType = extract.TypeText
	}
	saved, err := a.store.SaveDocument(ctx, doc)
	if err != nil {
		return domain.Document{}, fmt.Errorf("save document: %w", err)
	}
	return saved, nil
}

// UploadDocument extracts text from an uploaded file and saves it. The title
// defaults to the file name without extension.
func (a *App) UploadDocument(ctx context.Context, userID int64, title, filename string, data []byte) (domain.Document, error) {
	text, fileType, err := extract.Text(filename, data)
	if errors.Is(err, extract.ErrNoText) {
		return domain.Document{}, ErrEmptyDocument
	}
	if err != nil {
		return domain.Document{}, err
	}
	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(filename, fileExt(filename))
	}
	doc := domain.Document{
		UserID:       userID,
		Title:        title,
		OriginalText: text,
		FileType:     fileType,
	}
	if a.objects == nil {
		return a.saveDocument(ctx, doc)
	}
	doc.SourceKey = storage.SourceKey(userID, util.NewID(), filename)
	contentType := mime.TypeByExtension(strings.ToLower(fileExt(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := a.objects.Put(ctx, doc.SourceKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return domain.Document{}, fmt.Errorf("archive upload: %w", err)
	}
	saved, err := a.saveDocument(ctx, doc)
	if err != nil {
		_ = a.objects.Delete(ctx, doc.SourceKey)
		return domain.Document{}, err
	}
	return saved, nil
}

// DocumentSourceURL returns a short-lived download URL for the archived
// upload behind a document.
func (a *App) DocumentSourceURL(ctx context.Context, userID, id int64) (string, time.Duration, error) {
	doc, err := a.GetDocument(ctx, userID, id)
	if err != nil {
		return "", 0, err
	}
	if a.objects == nil || doc.SourceKey == "" {
		return "", 0, ErrNotFound
	}
	url, err := a.objects.PresignGet(ctx, doc.SourceKey, a.sourceURLTTL)
	if err != nil {
		return "", 0, fmt.Errorf("presign source: %w", err)
	}
	return url, a.sourceURLTTL, nil
}

func fileExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}

func (a *App) ListDocuments(ctx context.Context, userID int64, limit int) ([]domain.Document, error) {
	docs, err := a.store.ListDocuments(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (a *App) GetDocument(ctx context.Context, userID, id int64) (domain.Document, error) {
	doc, ok, err := a.store.GetDocument(ctx, id, userID)
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	if !ok {
		return domain.Document{}, ErrNotFound
	}
	return doc, nil
}

// DeleteDocument removes a document and its archived upload. Reviewers
// generated from it are kept.
func (a *App) DeleteDocument(ctx context.Context, userID, id int64) error {
	doc, err := a.GetDocument(ctx, userID, id)
	if err != nil {
		return err
	}
	ok, err := a.store.DeleteDocument(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	if a.objects != nil && doc.SourceKey != "" {
		if err := a.objects.Delete(ctx, doc.SourceKey); err != nil {
			util.LoggerFromContext(ctx).Warn("delete archived upload failed", "key", doc.SourceKey, "err", err)
		}
	}
	return nil
}

// GenerateReviewer builds a reviewer from one of the user's documents.
func (a *App) GenerateReviewer(ctx context.Context, userID, documentID int64) (domain.Reviewer, error) {
	if a.generator == nil {
		return domain.Reviewer{}, ErrGeneratorUnavailable
	}
	doc, err := a.GetDocument(ctx, userID, documentID)
	if err != nil {
		return domain.Reviewer{}, err
	}
	content, err := a.generator.GenerateReviewer(ctx, doc.Title, doc.OriginalText)
	if err != nil {
		return domain.Reviewer{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	r, err := a.store.SaveReviewer(ctx, domain.Reviewer{
		UserID:     userID,
		DocumentID: doc.ID,
		Title:      auth.Sanitize(content.Title),
		Sections:   content.Sections,
		Concepts:   content.Concepts,
		Metadata: domain.ReviewerMetadata{
			WordCount:    doc.WordCount,
			SectionCount: len(content.Sections),
			ConceptCount: len(content.Concepts),
			Model:        a.generator.Model(),
		},
		OriginalText: doc.OriginalText,
	})
	if err != nil {
		return domain.Reviewer{}, fmt.Errorf("save reviewer: %w", err)
	}
	util.LoggerFromContext(ctx).Info("reviewer generated", "user_id", userID, "reviewer_id", r.ID, "document_id", doc.ID)
	return r, nil
}

func (a *App) ListReviewers(ctx context.Context, userID int64, limit int) ([]domain.ReviewerSummary, error) {
	list, err := a.store.ListReviewers(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviewers: %w", err)
	}
	return list, nil
}

func (a *App) GetReviewer(ctx context.Context, userID, id int64) (domain.Reviewer, error) {
	r, ok, err := a.store.GetReviewer(ctx, id, userID)
	if err != nil {
		return domain.Reviewer{}, fmt.Errorf("get reviewer: %w", err)
	}
	if !ok {
		return domain.Reviewer{}, ErrNotFound
	}
	return r, nil
}

// DeleteReviewer removes a reviewer together with its quiz.
func (a *App) DeleteReviewer(ctx context.Context, userID, id int64) error {
	ok, err := a.store.DeleteReviewer(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete reviewer: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// GenerateQuiz writes a question set for a reviewer, replacing any earlier one.
func (a *App) GenerateQuiz(ctx context.Context, userID, reviewerID int64, opts ai.QuizOptions) (domain.QuizSet, error) {
	if a.generator == nil {
		return domain.QuizSet{}, ErrGeneratorUnavailable
	}
	r, err := a.GetReviewer(ctx, userID, reviewerID)
	if err != nil {
		return domain.QuizSet{}, err
	}
	payload, err := a.generator.GenerateQuiz(ctx, r, opts)
	if errors.Is(err, ai.ErrInvalidQuizOptions) {
		return domain.QuizSet{}, err
	}
	if err != nil {
		return domain.QuizSet{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	set, err := a.store.SaveQuiz(ctx, r.ID, payload)
	if err != nil {
		return domain.QuizSet{}, fmt.Errorf("save quiz: %w", err)
	}
	return set, nil
}

// GetQuiz returns the saved question set of one of the user's reviewers.
func (a *App) GetQuiz(ctx context.Context, userID, reviewerID int64) (domain.QuizSet, error) {
	if _, err := a.GetReviewer(ctx, userID, reviewerID); err != nil {
		return domain.QuizSet{}, err
	}
	set, ok, err := a.store.GetQuiz(ctx, reviewerID)
	if err != nil {
		return domain.QuizSet{}, fmt.Errorf("get quiz: %w", err)
	}
	if !ok {
		return domain.QuizSet{}, ErrNotFound
	}
	return set, nil
}

// AttemptInput is a finished quiz as reported by the client.
type AttemptInput struct {
	ReviewerID     int64
	QuizType       string
	Difficulty     string
	TotalQuestions int
	CorrectAnswers int
	TimeTaken      int
}

// SubmitAttempt scores and records a quiz attempt. Wrong answers and the
// percentage are derived from the totals.
func (a *App) SubmitAttempt(ctx context.Context, userID int64, in AttemptInput) (domain.QuizAttempt, error) {
	if in.TotalQuestions <= 0 || in.CorrectAnswers < 0 || in.CorrectAnswers > in.TotalQuestions || in.TimeTaken < 0 {
		return domain.QuizAttempt{}, ErrInvalidAttempt
	}
	if _, err := a.GetReviewer(ctx, userID, in.ReviewerID); err != nil {
		return domain.QuizAttempt{}, err
	}
	attempt, err := a.store.SaveAttempt(ctx, domain.QuizAttempt{
		UserID:         userID,
		ReviewerID:     in.ReviewerID,
		QuizType:       auth.Sanitize(in.QuizType),
		Difficulty:     auth.Sanitize(in.Difficulty),
		TotalQuestions: in.TotalQuestions,
		CorrectAnswers: in.CorrectAnswers,
		WrongAnswers:   in.TotalQuestions - in.CorrectAnswers,
		Percentage:     math.Round(float64(in.CorrectAnswers) / float64(in.TotalQuestions) * 100),
		TimeTaken:      in.TimeTaken,
		CompletedAt:    a.now(),
	})
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("save attempt: %w", err)
	}
	return attempt, nil
}

func (a *App) ListAttempts(ctx context.Context, userID int64, limit int) ([]domain.QuizAttempt, error) {
	attempts, err := a.store.ListAttempts(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

func (a *App) Stats(ctx context.Context, userID int64) (domain.Stats, error) {
	stats, err := a.store.Stats(ctx, userID)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}
