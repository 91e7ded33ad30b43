package store

import (
	"context"
	"fmt"
	"strings"

	"scibrain/pkg/domain"
)

// CountWords returns the number of whitespace-delimited tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// SaveDocument assigns an id to doc, stores it and pushes it onto the owner's
// index. WordCount and UploadedAt are filled in from the text and the clock.
func (s *Store) SaveDocument(ctx context.Context, doc domain.Document) (domain.Document, error) {
	id, err := s.nextID(ctx, categoryDocuments)
	if err != nil {
		return domain.Document{}, err
	}
	doc.ID = id
	doc.WordCount = CountWords(doc.OriginalText)
	doc.UploadedAt = s.now()
	if err := s.putJSON(ctx, documentKey(id), doc, 0); err != nil {
		return domain.Document{}, err
	}
	if err := s.pushIndex(ctx, userDocumentsKey(doc.UserID), id); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

// GetDocument returns a document owned by userID. Another user's document is
// reported as not found.
func (s *Store) GetDocument(ctx context.Context, id, userID int64) (domain.Document, bool, error) {
	var doc domain.Document
	ok, err := s.getJSON(ctx, documentKey(id), &doc)
	if err != nil || !ok {
		return domain.Document{}, false, err
	}
	if doc.UserID != userID {
		return domain.Document{}, false, nil
	}
	return doc, true, nil
}

// ListDocuments returns the owner's newest documents first.
func (s *Store) ListDocuments(ctx context.Context, userID int64, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	ids, err := s.indexIDs(ctx, userDocumentsKey(userID), limit)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		var doc domain.Document
		ok, err := s.getJSON(ctx, documentKey(id), &doc)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// DeleteDocument removes a document owned by userID. Reviewers generated from
// it are left alone.
func (s *Store) DeleteDocument(ctx context.Context, id, userID int64) (bool, error) {
	if _, ok, err := s.GetDocument(ctx, id, userID); err != nil || !ok {
		return false, err
	}
	if err := s.kv.Del(ctx, documentKey(id)); err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	if err := s.removeFromIndex(ctx, userDocumentsKey(userID), id); err != nil {
		return false, err
	}
	return true, nil
}
