package store

import "fmt"

const (
	categoryUsers     = "users"
	categorySessions  = "sessions"
	categoryDocuments = "documents"
	categoryReviewers = "reviewers"
	categoryAttempts  = "attempts"
)

func counterKey(category string) string {
	return fmt.Sprintf("counter:%s", category)
}

func userIDKey(id int64) string {
	return fmt.Sprintf("user:id:%d", id)
}

func userEmailKey(email string) string {
	return fmt.Sprintf("user:email:%s", email)
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func documentKey(id int64) string {
	return fmt.Sprintf("document:%d", id)
}

func reviewerKey(id int64) string {
	return fmt.Sprintf("reviewer:%d", id)
}

func quizKey(reviewerID int64) string {
	return fmt.Sprintf("quiz:%d", reviewerID)
}

func userDocumentsKey(userID int64) string {
	return fmt.Sprintf("user:%d:documents", userID)
}

func userReviewersKey(userID int64) string {
	return fmt.Sprintf("user:%d:reviewers", userID)
}

func userAttemptsKey(userID int64) string {
	return fmt.Sprintf("user:%d:attempts", userID)
}
