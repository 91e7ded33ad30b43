package store

import (
	"context"
	"encoding/json"

	"scibrain/pkg/domain"
)

// SaveQuiz stores the question set for a reviewer, replacing any previous one.
func (s *Store) SaveQuiz(ctx context.Context, reviewerID int64, questions json.RawMessage) (domain.QuizSet, error) {
	if !json.Valid(questions) {
		return domain.QuizSet{}, ErrInvalidPayload
	}
	set := domain.QuizSet{
		ReviewerID: reviewerID,
		Questions:  questions,
		SavedAt:    s.now(),
	}
	if err := s.putJSON(ctx, quizKey(reviewerID), set, 0); err != nil {
		return domain.QuizSet{}, err
	}
	return set, nil
}

// GetQuiz returns the question set saved for a reviewer.
func (s *Store) GetQuiz(ctx context.Context, reviewerID int64) (domain.QuizSet, bool, error) {
	var set domain.QuizSet
	ok, err := s.getJSON(ctx, quizKey(reviewerID), &set)
	if err != nil || !ok {
		return domain.QuizSet{}, false, err
	}
	return set, true, nil
}
