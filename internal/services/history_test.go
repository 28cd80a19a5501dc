package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-direct-chat/internal/domain"
)

// historyService wires a fake repo to a real transaction-capable DB handle.
func historyService(t *testing.T, repo *fakeRepo) *ChatService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "svc.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewChatService(db, repo, plainCodec{}, nil)
}

func TestHistory_SweepsAndDecrypts(t *testing.T) {
	repo := newFakeRepo(
		domain.User{ID: 1, Name: "Alice"},
		domain.User{ID: 2, Name: "Bob"},
	)
	svc := historyService(t, repo)
	ctx := context.Background()

	if _, err := svc.Send(ctx, 1, 2, "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Send(ctx, 2, 1, "hi back"); err != nil {
		t.Fatal(err)
	}

	// Alice views the conversation: Bob's message to her gets swept read.
	rows, total, err := svc.History(ctx, 1, 2, 1, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("History = %d rows, total %d", len(rows), total)
	}
	if repo.markedSender != 2 || repo.markedRecipient != 1 {
		t.Fatalf("sweep direction = %d->%d, want 2->1", repo.markedSender, repo.markedRecipient)
	}
	// Newest first, decrypted, with display names attached.
	if rows[0].Message != "hi back" || rows[0].SenderName != "Bob" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Message != "hello" || rows[1].SenderName != "Alice" {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestHistory_InvalidRecipient(t *testing.T) {
	svc := historyService(t, newFakeRepo())
	if _, _, err := svc.History(context.Background(), 1, 0, 1, 10); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("History = %v, want ErrInvalidRecipient", err)
	}
}

func TestHistory_EmptyConversationStillSweeps(t *testing.T) {
	repo := newFakeRepo(
		domain.User{ID: 1, Name: "Alice"},
		domain.User{ID: 2, Name: "Bob"},
	)
	svc := historyService(t, repo)

	rows, total, err := svc.History(context.Background(), 1, 2, 1, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 0 || len(rows) != 0 {
		t.Fatalf("History of empty conversation = %d rows, total %d", len(rows), total)
	}
	if repo.markCalls != 1 {
		t.Fatalf("sweep calls = %d, want 1", repo.markCalls)
	}
}

func TestHistory_Pagination(t *testing.T) {
	repo := newFakeRepo(
		domain.User{ID: 1, Name: "Alice"},
		domain.User{ID: 2, Name: "Bob"},
	)
	svc := historyService(t, repo)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if _, err := svc.Send(ctx, 1, 2, "msg"); err != nil {
			t.Fatal(err)
		}
	}

	page1, total, err := svc.History(ctx, 2, 1, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 15 || len(page1) != 10 {
		t.Fatalf("page 1 = %d rows, total %d", len(page1), total)
	}
	page2, _, err := svc.History(ctx, 2, 1, 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 5 {
		t.Fatalf("page 2 = %d rows, want 5", len(page2))
	}
	page3, _, err := svc.History(ctx, 2, 1, 3, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page3) != 0 {
		t.Fatalf("page past end = %d rows, want 0", len(page3))
	}

	// Page and size fall back to defaults when out of range.
	deflt, _, err := svc.History(ctx, 2, 1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(deflt) != 10 {
		t.Fatalf("default page = %d rows, want 10", len(deflt))
	}
}

func TestHistory_DecryptFallback(t *testing.T) {
	repo := newFakeRepo(
		domain.User{ID: 1, Name: "Alice"},
		domain.User{ID: 2, Name: "Bob"},
	)
	svc := historyService(t, repo)
	ctx := context.Background()

	if _, err := svc.Send(ctx, 1, 2, "fine"); err != nil {
		t.Fatal(err)
	}
	// Corrupt the stored ciphertext of the first row.
	repo.messages[0].Body = "garbage"

	rows, _, err := svc.History(ctx, 2, 1, 1, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if rows[0].Message != DecryptFallback {
		t.Fatalf("corrupt row rendered %q, want fallback", rows[0].Message)
	}
}

func TestHistory_MissingUserRendersEmptyName(t *testing.T) {
	repo := newFakeRepo(
		domain.User{ID: 1, Name: "Alice"},
		domain.User{ID: 2, Name: "Bob"},
	)
	svc := historyService(t, repo)
	ctx := context.Background()

	if _, err := svc.Send(ctx, 2, 1, "from bob"); err != nil {
		t.Fatal(err)
	}
	// Bob's account disappears after sending.
	delete(repo.users, 2)

	rows, _, err := svc.History(ctx, 1, 2, 1, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if rows[0].SenderName != "" || rows[0].Message != "from bob" {
		t.Fatalf("unexpected row for deleted sender: %+v", rows[0])
	}
}

func TestMessageByID(t *testing.T) {
	repo := newFakeRepo(
		domain.User{ID: 1, Name: "Alice"},
		domain.User{ID: 2, Name: "Bob"},
	)
	svc := historyService(t, repo)
	ctx := context.Background()

	sent, err := svc.Send(ctx, 1, 2, "replayable")
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.MessageByID(ctx, sent.ID)
	if err != nil {
		t.Fatalf("MessageByID: %v", err)
	}
	if got.Message != "replayable" || got.SenderName != "Alice" || got.ID != sent.ID {
		t.Fatalf("unexpected view: %+v", got)
	}

	if _, err := svc.MessageByID(ctx, 9999); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("MessageByID missing = %v, want ErrMessageNotFound", err)
	}
}

func TestListOtherUsers(t *testing.T) {
	repo := newFakeRepo(
		domain.User{ID: 1, Name: "Alice"},
		domain.User{ID: 2, Name: "Bob"},
		domain.User{ID: 3, Name: "Cara"},
	)
	svc := historyService(t, repo)

	users, err := svc.ListOtherUsers(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListOtherUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	for _, u := range users {
		if u.ID == 1 {
			t.Fatal("caller included in directory")
		}
	}
}
