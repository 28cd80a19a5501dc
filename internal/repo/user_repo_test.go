package repo

import (
	"context"
	"testing"

	"github.com/tbourn/go-direct-chat/internal/domain"
)

func TestCreateAndGetUser(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "Alice", "alice@example.com")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("expected generated id")
	}

	got, err := GetUser(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Name != "Alice" || got.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := GetUser(ctx, db, 999); err == nil {
		t.Fatal("expected error for missing user")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()

	if _, err := CreateUser(ctx, db, "Alice", "a@example.com"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateUser(ctx, db, "Alice 2", "a@example.com"); err == nil {
		t.Fatal("expected unique violation for duplicate email")
	}
}

func TestListUsersExcept(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()

	a, _ := CreateUser(ctx, db, "Bea", "bea@example.com")
	b, _ := CreateUser(ctx, db, "Alan", "alan@example.com")
	c, _ := CreateUser(ctx, db, "Cara", "cara@example.com")

	got, err := ListUsersExcept(ctx, db, a.ID)
	if err != nil {
		t.Fatalf("ListUsersExcept: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 users, got %d", len(got))
	}
	// ordered by name: Alan before Cara
	if got[0].ID != b.ID || got[1].ID != c.ID {
		t.Fatalf("wrong order/content: %+v", got)
	}
	for _, u := range got {
		if u.ID == a.ID {
			t.Fatal("caller must be excluded from the directory")
		}
	}
}
