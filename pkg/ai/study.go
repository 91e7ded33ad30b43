package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"scibrain/pkg/domain"
)

// maxSourceRunes caps how much document text goes into a prompt.
const maxSourceRunes = 30000

var (
	// ErrMalformedOutput is returned when the model answer is not the JSON we asked for.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrInvalidQuizOptions is returned by QuizOptions.Normalize.
	ErrInvalidQuizOptions = errors.New("invalid quiz options")

	quizTypes    = map[string]bool{"multiple_choice": true, "true_false": true, "identification": true, "mixed": true}
	difficulties = map[string]bool{"easy": true, "medium": true, "hard": true}
)

const reviewerSystemPrompt = `You turn study notes into a structured reviewer.
Answer with a single JSON object and nothing else:
{"title": string, "sections": [{"heading": string, "content": string, "key_points": [string]}], "concepts": [{"term": string, "definition": string}]}
Keep facts faithful to the notes. Use 3 to 8 sections and up to 15 concepts.`

const quizSystemPrompt = `You write quiz questions from a reviewer.
Answer with a single JSON object and nothing else:
{"questions": [{"question": string, "type": string, "options": [string], "answer": string, "explanation": string}]}
For true_false questions options are ["True","False"]. For identification questions options are empty.`

// ReviewerContent is the generated part of a reviewer.
type ReviewerContent struct {
	Title    string           `json:"title"`
	Sections []domain.Section `json:"sections"`
	Concepts []domain.Concept `json:"concepts"`
}

// QuizOptions controls quiz generation.
type QuizOptions struct {
	Type       string
	Difficulty string
	Count      int
}

// Normalize fills defaults and rejects unknown values.
func (o QuizOptions) Normalize() (QuizOptions, error) {
	o.Type = strings.ToLower(strings.TrimSpace(o.Type))
	o.Difficulty = strings.ToLower(strings.TrimSpace(o.Difficulty))
	if o.Type == "" {
		o.Type = "multiple_choice"
	}
	if o.Difficulty == "" {
		o.Difficulty = "medium"
	}
	if !quizTypes[o.Type] {
		return o, fmt.Errorf("%w: unsupported quiz type %q", ErrInvalidQuizOptions, o.Type)
	}
	if !difficulties[o.Difficulty] {
		return o, fmt.Errorf("%w: unsupported difficulty %q", ErrInvalidQuizOptions, o.Difficulty)
	}
	switch {
	case o.Count <= 0:
		o.Count = 10
	case o.Count > 50:
		o.Count = 50
	}
	return o, nil
}

// QuizQuestion is one generated question.
type QuizQuestion struct {
	Question    string   `json:"question"`
	Type        string   `json:"type"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// QuizPayload is what gets stored as a reviewer's quiz set.
type QuizPayload struct {
	QuizType   string         `json:"quiz_type"`
	Difficulty string         `json:"difficulty"`
	Questions  []QuizQuestion `json:"questions"`
}

// StudyGenerator turns text into study material with a TextGenerator.
type StudyGenerator struct {
	gen   TextGenerator
	model string
}

// NewStudyGenerator wraps gen. model is recorded in reviewer metadata.
func NewStudyGenerator(gen TextGenerator, model string) *StudyGenerator {
	return &StudyGenerator{gen: gen, model: strings.TrimSpace(model)}
}

// Model returns the configured model name.
func (s *StudyGenerator) Model() string {
	return s.model
}

// GenerateReviewer builds reviewer sections and concepts from a document.
func (s *StudyGenerator) GenerateReviewer(ctx context.Context, title, text string) (ReviewerContent, error) {
	prompt := fmt.Sprintf("Title: %s\n\nNotes:\n%s", title, truncateRunes(text, maxSourceRunes))
	out, err := s.gen.GenerateText(ctx, reviewerSystemPrompt, prompt)
	if err != nil {
		return ReviewerContent{}, fmt.Errorf("generate reviewer: %w", err)
	}
	var content ReviewerContent
	if err := decodeModelJSON(out, &content); err != nil {
		return ReviewerContent{}, err
	}
	if len(content.Sections) == 0 {
		return ReviewerContent{}, fmt.Errorf("%w: no sections", ErrMalformedOutput)
	}
	if strings.TrimSpace(content.Title) == "" {
		content.Title = title
	}
	return content, nil
}

// GenerateQuiz writes questions for a reviewer and returns the payload to store.
func (s *StudyGenerator) GenerateQuiz(ctx context.Context, r domain.Reviewer, opts QuizOptions) (json.RawMessage, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Write %d %s questions at %s difficulty.\n\nReviewer:\n%s",
		opts.Count, strings.ReplaceAll(opts.Type, "_", " "), opts.Difficulty, reviewerDigest(r))
	out, err := s.gen.GenerateText(ctx, quizSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	var payload QuizPayload
	if err := decodeModelJSON(out, &payload); err != nil {
		return nil, err
	}
	questions := payload.Questions[:0]
	for _, q := range payload.Questions {
		if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.Answer) == "" {
			continue
		}
		if q.Type == "" {
			q.Type = opts.Type
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no usable questions", ErrMalformedOutput)
	}
	if len(questions) > opts.Count {
		questions = questions[:opts.Count]
	}
	payload.QuizType = opts.Type
	payload.Difficulty = opts.Difficulty
	payload.Questions = questions
	return json.Marshal(payload)
}

func reviewerDigest(r domain.Reviewer) string {
	var b strings.Builder
	b.WriteString(r.Title)
	b.WriteString("\n")
	for _, sec := range r.Sections {
		fmt.Fprintf(&b, "\n## %s\n%s\n", sec.Heading, sec.Content)
		for _, kp := range sec.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", kp)
		}
	}
	if len(r.Concepts) > 0 {
		b.WriteString("\nConcepts:\n")
		for _, c := range r.Concepts {
			fmt.Fprintf(&b, "- %s: %s\n", c.Term, c.Definition)
		}
	}
	return truncateRunes(b.String(), maxSourceRunes)
}

// decodeModelJSON decodes the first JSON object in a model answer, tolerating
// markdown code fences and surrounding prose.
func decodeModelJSON(out string, v any) error {
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("%w: no JSON object", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(out[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
