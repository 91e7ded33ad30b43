package domain

import (
	"encoding/json"
	"time"
)

type User struct {
	ID           int64      `json:"id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"session_token"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
}

// Valid reports whether the session expires strictly after now.
func (s Session) Valid(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

type Document struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	OriginalText string    `json:"original_text"`
	FileType     string    `json:"file_type"`
	WordCount    int       `json:"word_count"`
	SourceKey    string    `json:"source_key,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type Section struct {
	Heading   string   `json:"heading"`
	Content   string   `json:"content"`
	KeyPoints []string `json:"key_points,omitempty"`
}

type Concept struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

type ReviewerMetadata struct {
	WordCount    int    `json:"word_count"`
	SectionCount int    `json:"section_count"`
	ConceptCount int    `json:"concept_count"`
	Model        string `json:"model,omitempty"`
}

// Reviewer is a generated study guide built from one document.
type Reviewer struct {
	ID           int64            `json:"id"`
	UserID       int64            `json:"user_id"`
	DocumentID   int64            `json:"document_id"`
	Title        string           `json:"title"`
	Sections     []Section        `json:"sections"`
	Concepts     []Concept        `json:"concepts"`
	Metadata     ReviewerMetadata `json:"metadata"`
	OriginalText string           `json:"original_text"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// ReviewerSummary is the listing projection of a Reviewer.
type ReviewerSummary struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	WordCount   int       `json:"word_count"`
}

// QuizSet holds the question payload generated for a reviewer. The payload is
// opaque to storage.
type QuizSet struct {
	ReviewerID int64           `json:"reviewer_id"`
	Questions  json.RawMessage `json:"questions"`
	SavedAt    time.Time       `json:"saved_at"`
}

type QuizAttempt struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	ReviewerID     int64     `json:"reviewer_id"`
	QuizType       string    `json:"quiz_type"`
	Difficulty     string    `json:"difficulty"`
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	WrongAnswers   int       `json:"wrong_answers"`
	Percentage     float64   `json:"percentage"`
	TimeTaken      int       `json:"time_taken"`
	CompletedAt    time.Time `json:"completed_at"`
}

type Stats struct {
	Documents    int     `json:"documents"`
	Reviewers    int     `json:"reviewers"`
	QuizzesTaken int     `json:"quizzesTaken"`
	AvgQuizScore float64 `json:"avgQuizScore"`
}
