package app

import (
	"context"
	"errors"
	"testing"

	"legalgen/pkg/domain"
)

func TestShareBookReportsEveryUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com")
	u2 := env.register(t, "two@example.com")
	u3 := env.register(t, "three@example.com")
	book := env.book(t, owner.ID, "Contracts")

	report, err := env.app.ShareBook(ctx, owner.ID, book.ID, []string{u2.ID, "ghost", u3.ID, u2.ID, owner.ID})
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if !report.BookFound || report.SharedCount() != 2 {
		t.Fatalf("expected two grants, got %+v", report)
	}
	want := []domain.ShareResult{
		{UserID: u2.ID, Status: domain.ShareStatusShared},
		{UserID: "ghost", Status: domain.ShareStatusSkipped, Reason: domain.ShareReasonUserNotFound},
		{UserID: u3.ID, Status: domain.ShareStatusShared},
		{UserID: u2.ID, Status: domain.ShareStatusSkipped, Reason: domain.ShareReasonDuplicate},
		{UserID: owner.ID, Status: domain.ShareStatusSkipped, Reason: domain.ShareReasonOwner},
	}
	for i, res := range report.Results {
		if res != want[i] {
			t.Fatalf("result %d: got %+v want %+v", i, res, want[i])
		}
	}
	shares, err := env.app.ListShares(ctx, owner.ID, book.ID)
	if err != nil || len(shares) != 2 {
		t.Fatalf("expected exactly one grant per valid user, got %+v err=%v", shares, err)
	}

	again, err := env.app.ShareBook(ctx, owner.ID, book.ID, []string{u3.ID})
	if err != nil {
		t.Fatalf("share again: %v", err)
	}
	if again.SharedCount() != 0 || again.Results[0].Reason != domain.ShareReasonAlreadyShared {
		t.Fatalf("expected already_shared, got %+v", again)
	}
	shares, _ = env.app.ListShares(ctx, owner.ID, book.ID)
	if len(shares) != 2 {
		t.Fatalf("expected no new grants, got %d", len(shares))
	}
}

func TestShareBookMissingBook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com")
	u2 := env.register(t, "two@example.com")

	report, err := env.app.ShareBook(ctx, owner.ID, 42, []string{u2.ID})
	if err != nil {
		t.Fatalf("expected no error for missing book, got %v", err)
	}
	if report.BookFound || report.SharedCount() != 0 || report.Results[0].Reason != domain.ShareReasonBookNotFound {
		t.Fatalf("unexpected report %+v", report)
	}
	shared, _ := env.store.ListBooksSharedWith(ctx, u2.ID)
	if len(shared) != 0 {
		t.Fatalf("expected zero grants, got %+v", shared)
	}
}

func TestShareBookRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@example.com")
	grantee := env.register(t, "grantee@example.com")
	stranger := env.register(t, "stranger@example.com")
	book := env.book(t, owner.ID, "Contracts")
	if _, err := env.app.ShareBook(ctx, owner.ID, book.ID, []string{grantee.ID}); err != nil {
		t.Fatalf("share: %v", err)
	}

	if _, err := env.app.ShareBook(ctx, grantee.ID, book.ID, []string{stranger.ID}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for grantee, got %v", err)
	}
	if _, err := env.app.ShareBook(ctx, stranger.ID, book.ID, []string{stranger.ID}); !errors.Is(err, ErrResearchBookNotFound) {
		t.Fatalf("expected ErrResearchBookNotFound for stranger, got %v", err)
	}
	if _, err := env.app.ListShares(ctx, grantee.ID, book.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden listing shares as grantee, got %v", err)
	}
}
