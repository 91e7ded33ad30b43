package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"golang.org/x/crypto/bcrypt"
	"scibrain/pkg/domain"
	"scibrain/pkg/kv"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store *Store
	clock *fakeClock
	kv    kv.Backend
}

// eachBackend runs fn once against the memory backend and once against Redis.
func eachBackend(t *testing.T, fn func(t *testing.T, f fixture)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
		b := kv.NewMemoryBackend()
		fn(t, fixture{store: New(b, WithClock(clock.Now)), clock: clock, kv: b})
	})
	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		b, err := kv.NewRedisBackend(kv.RedisConfig{Addr: mr.Addr()})
		if err != nil {
			t.Fatalf("new redis backend: %v", err)
		}
		t.Cleanup(func() { _ = b.Close() })
		clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
		fn(t, fixture{store: New(b, WithClock(clock.Now)), clock: clock, kv: b})
	})
}

func TestCreateUserLookupByLowercasedEmail(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		hash, err := bcrypt.GenerateFromPassword([]byte("pa55word"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		created, err := f.store.CreateUser(ctx, "Ana Cruz", "  Ana@Example.COM ", string(hash))
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		if created.ID != 1 || created.Email != "ana@example.com" {
			t.Fatalf("unexpected user: %+v", created)
		}
		if created.LastLogin != nil {
			t.Fatalf("expected nil last login")
		}

		byEmail, ok, err := f.store.GetUserByEmail(ctx, "ana@example.com")
		if err != nil || !ok {
			t.Fatalf("get by email: ok=%v err=%v", ok, err)
		}
		if bcrypt.CompareHashAndPassword([]byte(byEmail.PasswordHash), []byte("pa55word")) != nil {
			t.Fatalf("stored hash does not verify")
		}
		byID, ok, err := f.store.GetUserByID(ctx, created.ID)
		if err != nil || !ok {
			t.Fatalf("get by id: ok=%v err=%v", ok, err)
		}
		if byID.Email != byEmail.Email || byID.FullName != byEmail.FullName || byID.PasswordHash != byEmail.PasswordHash {
			t.Fatalf("id and email copies differ: %+v vs %+v", byID, byEmail)
		}

		raw, _, _ := f.kv.Get(ctx, userIDKey(created.ID))
		if strings.Contains(raw, "pa55word") {
			t.Fatalf("plaintext password persisted: %s", raw)
		}
	})
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		if _, err := f.store.CreateUser(ctx, "A", "dup@example.com", "h"); err != nil {
			t.Fatalf("first create: %v", err)
		}
		if _, err := f.store.CreateUser(ctx, "B", "DUP@example.com", "h"); !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
	})
}

func TestGetUserMissing(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		if _, ok, err := f.store.GetUserByID(ctx, 42); err != nil || ok {
			t.Fatalf("get missing by id: ok=%v err=%v", ok, err)
		}
		if _, ok, err := f.store.GetUserByEmail(ctx, "nobody@example.com"); err != nil || ok {
			t.Fatalf("get missing by email: ok=%v err=%v", ok, err)
		}
		if _, ok, err := f.store.UpdateLastLogin(ctx, 42); err != nil || ok {
			t.Fatalf("update missing: ok=%v err=%v", ok, err)
		}
	})
}

func TestUpdateLastLoginRewritesBothCopies(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		u, err := f.store.CreateUser(ctx, "Ana", "ana@example.com", "h")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		f.clock.Advance(time.Hour)
		updated, ok, err := f.store.UpdateLastLogin(ctx, u.ID)
		if err != nil || !ok {
			t.Fatalf("update last login: ok=%v err=%v", ok, err)
		}
		want := f.clock.Now()
		if updated.LastLogin == nil || !updated.LastLogin.Equal(want) {
			t.Fatalf("last login = %v, want %v", updated.LastLogin, want)
		}
		byID, _, _ := f.store.GetUserByID(ctx, u.ID)
		byEmail, _, _ := f.store.GetUserByEmail(ctx, u.Email)
		if byID.LastLogin == nil || byEmail.LastLogin == nil {
			t.Fatalf("expected both copies updated: id=%v email=%v", byID.LastLogin, byEmail.LastLogin)
		}
		if !byID.LastLogin.Equal(want) || !byEmail.LastLogin.Equal(want) {
			t.Fatalf("copies disagree: id=%v email=%v", byID.LastLogin, byEmail.LastLogin)
		}
	})
}

func TestSessionLifecycleWithLazyEviction(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		u, _ := f.store.CreateUser(ctx, "Ana", "ana@example.com", "h")
		expires := f.clock.Now().Add(30 * time.Minute)
		sess, err := f.store.CreateSession(ctx, u, "tok-1", expires)
		if err != nil {
			t.Fatalf("create session: %v", err)
		}
		if sess.Email != u.Email || sess.FullName != u.FullName || sess.UserID != u.ID {
			t.Fatalf("session snapshot mismatch: %+v", sess)
		}

		got, ok, err := f.store.GetSession(ctx, "tok-1")
		if err != nil || !ok || got.ID != sess.ID {
			t.Fatalf("lookup before expiry: ok=%v err=%v got=%+v", ok, err, got)
		}

		// Exactly at expiry the session is no longer valid.
		f.clock.Advance(30 * time.Minute)
		if _, ok, err := f.store.GetSession(ctx, "tok-1"); err != nil || ok {
			t.Fatalf("lookup at expiry: ok=%v err=%v", ok, err)
		}
		if _, exists, _ := f.kv.Get(ctx, sessionKey("tok-1")); exists {
			t.Fatalf("expired session should be evicted by lookup")
		}
		if _, ok, err := f.store.GetSession(ctx, "tok-1"); err != nil || ok {
			t.Fatalf("second lookup after expiry: ok=%v err=%v", ok, err)
		}
	})
}

func TestSessionSnapshotIsNotRefreshed(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		u, _ := f.store.CreateUser(ctx, "Ana", "ana@example.com", "h")
		if _, err := f.store.CreateSession(ctx, u, "tok", f.clock.Now().Add(time.Hour)); err != nil {
			t.Fatalf("create session: %v", err)
		}
		if _, _, err := f.store.UpdateLastLogin(ctx, u.ID); err != nil {
			t.Fatalf("update last login: %v", err)
		}
		sess, ok, _ := f.store.GetSession(ctx, "tok")
		if !ok || sess.FullName != "Ana" {
			t.Fatalf("unexpected session %+v", sess)
		}
	})
}

func TestDeleteSession(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		u, _ := f.store.CreateUser(ctx, "Ana", "ana@example.com", "h")
		if _, err := f.store.CreateSession(ctx, u, "tok", f.clock.Now().Add(time.Hour)); err != nil {
			t.Fatalf("create session: %v", err)
		}
		if err := f.store.DeleteSession(ctx, "tok"); err != nil {
			t.Fatalf("delete session: %v", err)
		}
		if _, ok, _ := f.store.GetSession(ctx, "tok"); ok {
			t.Fatalf("expected session gone")
		}
		if err := f.store.DeleteSession(ctx, "unknown"); err != nil {
			t.Fatalf("delete unknown: %v", err)
		}
		if _, ok, err := f.store.GetSession(ctx, ""); ok || err != nil {
			t.Fatalf("empty token: ok=%v err=%v", ok, err)
		}
	})
}

func TestRedisSessionCarriesTTLHint(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := kv.NewRedisBackend(kv.RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("new redis backend: %v", err)
	}
	s := New(b)
	ctx := context.Background()
	// Expiry field far in the future; the 24h key TTL still evicts it.
	if _, err := s.CreateSession(ctx, domain.User{ID: 1}, "tok", time.Now().Add(72*time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if ttl := mr.TTL(sessionKey("tok")); ttl != sessionKeyTTL {
		t.Fatalf("ttl = %v, want %v", ttl, sessionKeyTTL)
	}
	mr.FastForward(sessionKeyTTL + time.Second)
	if _, ok, err := s.GetSession(ctx, "tok"); err != nil || ok {
		t.Fatalf("expected key evicted by ttl: ok=%v err=%v", ok, err)
	}
}

func TestIDsIncreasePerCategory(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		d1, _ := f.store.SaveDocument(ctx, domain.Document{UserID: 1, Title: "a", OriginalText: "x", FileType: "txt"})
		d2, _ := f.store.SaveDocument(ctx, domain.Document{UserID: 1, Title: "b", OriginalText: "y", FileType: "txt"})
		r1, _ := f.store.SaveReviewer(ctx, domain.Reviewer{UserID: 1, Title: "r"})
		if d1.ID != 1 || d2.ID != 2 || r1.ID != 1 {
			t.Fatalf("ids = %d %d %d", d1.ID, d2.ID, r1.ID)
		}
		if _, err := f.store.DeleteReviewer(ctx, r1.ID, 1); err != nil {
			t.Fatalf("delete: %v", err)
		}
		r2, _ := f.store.SaveReviewer(ctx, domain.Reviewer{UserID: 1, Title: "r2"})
		if r2.ID != 2 {
			t.Fatalf("retired id reused: %d", r2.ID)
		}
	})
}

func TestDocumentWordCount(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		doc, err := f.store.SaveDocument(ctx, domain.Document{UserID: 1, Title: "Notes", OriginalText: "one two three", FileType: "txt"})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		if doc.WordCount != 3 {
			t.Fatalf("word count = %d, want 3", doc.WordCount)
		}
		empty, err := f.store.SaveDocument(ctx, domain.Document{UserID: 1, Title: "Empty", OriginalText: "", FileType: "txt"})
		if err != nil {
			t.Fatalf("save empty: %v", err)
		}
		if empty.WordCount != 0 {
			t.Fatalf("empty word count = %d, want 0", empty.WordCount)
		}
		got, ok, err := f.store.GetDocument(ctx, doc.ID, 1)
		if err != nil || !ok || got.WordCount != 3 || got.OriginalText != "one two three" {
			t.Fatalf("round trip: ok=%v err=%v doc=%+v", ok, err, got)
		}
	})
}

func TestCountWords(t *testing.T) {
	tests := map[string]int{
		"":                    0,
		"   ":                 0,
		"one":                 1,
		"one two three":       3,
		"  spaced\tout\n  x ": 3,
	}
	for in, want := range tests {
		if got := CountWords(in); got != want {
			t.Fatalf("CountWords(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestDocumentsAreOwnerScoped(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		doc, _ := f.store.SaveDocument(ctx, domain.Document{UserID: 1, Title: "Mine", OriginalText: "text", FileType: "pdf"})
		if _, ok, err := f.store.GetDocument(ctx, doc.ID, 2); err != nil || ok {
			t.Fatalf("foreign get: ok=%v err=%v", ok, err)
		}
		if deleted, err := f.store.DeleteDocument(ctx, doc.ID, 2); err != nil || deleted {
			t.Fatalf("foreign delete: deleted=%v err=%v", deleted, err)
		}
		second, _ := f.store.SaveDocument(ctx, domain.Document{UserID: 1, Title: "Second", OriginalText: "more text", FileType: "txt"})
		docs, err := f.store.ListDocuments(ctx, 1, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(docs) != 2 || docs[0].ID != second.ID || docs[1].ID != doc.ID {
			t.Fatalf("unexpected listing %+v", docs)
		}
		if other, _ := f.store.ListDocuments(ctx, 2, 0); len(other) != 0 {
			t.Fatalf("other user sees %d documents", len(other))
		}
		deleted, err := f.store.DeleteDocument(ctx, doc.ID, 1)
		if err != nil || !deleted {
			t.Fatalf("delete: deleted=%v err=%v", deleted, err)
		}
		docs, _ = f.store.ListDocuments(ctx, 1, 0)
		if len(docs) != 1 || docs[0].ID != second.ID {
			t.Fatalf("after delete %+v", docs)
		}
	})
}

func TestSavedReviewerHeadsOwnerListingOnly(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		first, err := f.store.SaveReviewer(ctx, domain.Reviewer{UserID: 1, Title: "Cells", Metadata: domain.ReviewerMetadata{WordCount: 120}})
		if err != nil {
			t.Fatalf("save first: %v", err)
		}
		f.clock.Advance(time.Minute)
		second, err := f.store.SaveReviewer(ctx, domain.Reviewer{UserID: 1, Title: "Atoms", Metadata: domain.ReviewerMetadata{WordCount: 80}})
		if err != nil {
			t.Fatalf("save second: %v", err)
		}
		if _, err := f.store.SaveReviewer(ctx, domain.Reviewer{UserID: 2, Title: "Other"}); err != nil {
			t.Fatalf("save other: %v", err)
		}

		list, err := f.store.ListReviewers(ctx, 1, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
			t.Fatalf("unexpected order %+v", list)
		}
		if list[0].Title != "Atoms" || list[0].WordCount != 80 || !list[0].GeneratedAt.Equal(second.GeneratedAt) {
			t.Fatalf("unexpected projection %+v", list[0])
		}
		other, _ := f.store.ListReviewers(ctx, 2, 0)
		for _, s := range other {
			if s.ID == first.ID || s.ID == second.ID {
				t.Fatalf("user 2 sees user 1 reviewer %d", s.ID)
			}
		}
	})
}

func TestListReviewersLimitAndMissingRecords(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		var ids []int64
		for i := 0; i < 55; i++ {
			r, err := f.store.SaveReviewer(ctx, domain.Reviewer{UserID: 7, Title: "r"})
			if err != nil {
				t.Fatalf("save %d: %v", i, err)
			}
			ids = append(ids, r.ID)
		}
		list, err := f.store.ListReviewers(ctx, 7, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != DefaultListLimit {
			t.Fatalf("len = %d, want %d", len(list), DefaultListLimit)
		}
		if list[0].ID != ids[len(ids)-1] {
			t.Fatalf("head = %d, want newest %d", list[0].ID, ids[len(ids)-1])
		}

		// A dangling index entry is skipped, and the limit is applied before
		// materializing, so the listing shrinks instead of backfilling.
		if err := f.kv.Del(ctx, reviewerKey(ids[len(ids)-1])); err != nil {
			t.Fatalf("del: %v", err)
		}
		list, err = f.store.ListReviewers(ctx, 7, 3)
		if err != nil {
			t.Fatalf("list limited: %v", err)
		}
		if len(list) != 2 || list[0].ID != ids[len(ids)-2] {
			t.Fatalf("unexpected limited listing %+v", list)
		}
	})
}

func TestDeleteReviewerCascades(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		doc, _ := f.store.SaveDocument(ctx, domain.Document{UserID: 1, Title: "Src", OriginalText: "a b c", FileType: "txt"})
		r, _ := f.store.SaveReviewer(ctx, domain.Reviewer{UserID: 1, DocumentID: doc.ID, Title: "R"})
		if _, err := f.store.SaveQuiz(ctx, r.ID, json.RawMessage(`[{"q":"?"}]`)); err != nil {
			t.Fatalf("save quiz: %v", err)
		}

		deleted, err := f.store.DeleteReviewer(ctx, r.ID, 1)
		if err != nil || !deleted {
			t.Fatalf("delete: deleted=%v err=%v", deleted, err)
		}
		if _, ok, _ := f.store.GetReviewer(ctx, r.ID, 1); ok {
			t.Fatalf("reviewer still readable")
		}
		if list, _ := f.store.ListReviewers(ctx, 1, 0); len(list) != 0 {
			t.Fatalf("reviewer still listed: %+v", list)
		}
		if _, ok, _ := f.store.GetQuiz(ctx, r.ID); ok {
			t.Fatalf("quiz set survived reviewer deletion")
		}
		if _, ok, _ := f.store.GetDocument(ctx, doc.ID, 1); !ok {
			t.Fatalf("source document must survive reviewer deletion")
		}
		if again, err := f.store.DeleteReviewer(ctx, r.ID, 1); err != nil || again {
			t.Fatalf("second delete: deleted=%v err=%v", again, err)
		}
	})
}

func TestForeignReviewerLooksNonexistent(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		r, _ := f.store.SaveReviewer(ctx, domain.Reviewer{UserID: 1, Title: "Private"})

		foreign, foreignOK, foreignErr := f.store.GetReviewer(ctx, r.ID, 2)
		missing, missingOK, missingErr := f.store.GetReviewer(ctx, 9999, 2)
		if foreignOK != missingOK || foreignErr != nil || missingErr != nil || foreign.ID != missing.ID {
			t.Fatalf("foreign get differs from missing: %v/%v %v/%v", foreignOK, foreignErr, missingOK, missingErr)
		}

		delForeign, errForeign := f.store.DeleteReviewer(ctx, r.ID, 2)
		delMissing, errMissing := f.store.DeleteReviewer(ctx, 9999, 2)
		if delForeign != delMissing || errForeign != nil || errMissing != nil {
			t.Fatalf("foreign delete differs from missing: %v/%v %v/%v", delForeign, errForeign, delMissing, errMissing)
		}
		if _, ok, _ := f.store.GetReviewer(ctx, r.ID, 1); !ok {
			t.Fatalf("owner lost reviewer after foreign delete attempt")
		}
	})
}

func TestQuizSetOverwrite(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		if _, ok, err := f.store.GetQuiz(ctx, 5); ok || err != nil {
			t.Fatalf("missing quiz: ok=%v err=%v", ok, err)
		}
		if _, err := f.store.SaveQuiz(ctx, 5, json.RawMessage(`{"v":1}`)); err != nil {
			t.Fatalf("save: %v", err)
		}
		if _, err := f.store.SaveQuiz(ctx, 5, json.RawMessage(`{"v":2}`)); err != nil {
			t.Fatalf("resave: %v", err)
		}
		set, ok, err := f.store.GetQuiz(ctx, 5)
		if err != nil || !ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
		if string(set.Questions) != `{"v":2}` {
			t.Fatalf("questions = %s", set.Questions)
		}
		if _, err := f.store.SaveQuiz(ctx, 5, json.RawMessage(`{broken`)); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	})
}

func TestAttemptsNewestFirstAndStats(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		stats, err := f.store.Stats(ctx, 1)
		if err != nil {
			t.Fatalf("stats empty: %v", err)
		}
		if stats != (domain.Stats{}) {
			t.Fatalf("expected zero stats, got %+v", stats)
		}

		for _, pct := range []float64{80, 100, 60} {
			if _, err := f.store.SaveAttempt(ctx, domain.QuizAttempt{UserID: 1, ReviewerID: 3, Percentage: pct}); err != nil {
				t.Fatalf("save attempt: %v", err)
			}
		}
		if _, err := f.store.SaveAttempt(ctx, domain.QuizAttempt{UserID: 2, Percentage: 10}); err != nil {
			t.Fatalf("save other attempt: %v", err)
		}
		attempts, err := f.store.ListAttempts(ctx, 1, 0)
		if err != nil {
			t.Fatalf("list attempts: %v", err)
		}
		if len(attempts) != 3 || attempts[0].Percentage != 60 || attempts[2].Percentage != 80 {
			t.Fatalf("unexpected attempts %+v", attempts)
		}
		if attempts[0].ID <= attempts[1].ID {
			t.Fatalf("expected newest first: %d then %d", attempts[0].ID, attempts[1].ID)
		}
		if limited, _ := f.store.ListAttempts(ctx, 1, 2); len(limited) != 2 {
			t.Fatalf("limited attempts = %d", len(limited))
		}

		if _, err := f.store.SaveDocument(ctx, domain.Document{UserID: 1, Title: "d", OriginalText: "x", FileType: "txt"}); err != nil {
			t.Fatalf("save document: %v", err)
		}
		for i := 0; i < 2; i++ {
			if _, err := f.store.SaveReviewer(ctx, domain.Reviewer{UserID: 1}); err != nil {
				t.Fatalf("save reviewer: %v", err)
			}
		}
		stats, err = f.store.Stats(ctx, 1)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		want := domain.Stats{Documents: 1, Reviewers: 2, QuizzesTaken: 3, AvgQuizScore: 80}
		if stats != want {
			t.Fatalf("stats = %+v, want %+v", stats, want)
		}
	})
}

func TestStatsAverageIsNotRounded(t *testing.T) {
	eachBackend(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		for _, pct := range []float64{80, 85} {
			if _, err := f.store.SaveAttempt(ctx, domain.QuizAttempt{UserID: 1, Percentage: pct}); err != nil {
				t.Fatalf("save attempt: %v", err)
			}
		}
		stats, err := f.store.Stats(ctx, 1)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.AvgQuizScore != 82.5 {
			t.Fatalf("avgQuizScore = %v, want 82.5", stats.AvgQuizScore)
		}
	})
}

func TestBackendFailurePropagates(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := kv.NewRedisBackend(kv.RedisConfig{Addr: mr.Addr()}, kv.WithOpTimeout(200*time.Millisecond))
	if err != nil {
		t.Fatalf("new redis backend: %v", err)
	}
	s := New(b)
	mr.Close()
	ctx := context.Background()
	if _, _, err := s.GetUserByID(ctx, 1); err == nil {
		t.Fatalf("expected error from get")
	}
	if _, err := s.SaveDocument(ctx, domain.Document{UserID: 1, Title: "t", OriginalText: "x", FileType: "txt"}); err == nil {
		t.Fatalf("expected error from id allocation")
	}
	if _, err := s.Stats(ctx, 1); err == nil {
		t.Fatalf("expected error from stats")
	}
}
