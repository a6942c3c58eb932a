package store

import (
	"context"
	"testing"
	"time"

	"legalgen/pkg/domain"
)

func TestMemoryStoreRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.CreateUser(ctx, domain.User{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateUser(ctx, domain.User{ID: "u2", Email: "a@example.com"}); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if err := s.CreateUser(ctx, domain.User{ID: "u2", Email: "b@example.com"}); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if err := s.UpdateUser(ctx, domain.User{ID: "u2", Email: "a@example.com"}); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken on update, got %v", err)
	}
	if err := s.UpdateUser(ctx, domain.User{ID: "u2", Email: "c@example.com"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok, _ := s.GetUserByEmail(ctx, "b@example.com"); ok {
		t.Fatalf("expected old email index to be dropped")
	}
	if u, ok, _ := s.GetUserByEmail(ctx, "c@example.com"); !ok || u.ID != "u2" {
		t.Fatalf("expected new email to resolve, got %+v ok=%v", u, ok)
	}
}

func TestMemoryStoreDeleteBookCascades(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	book := &domain.ResearchBook{Name: "Contracts", UserID: "owner"}
	other := &domain.ResearchBook{Name: "Torts", UserID: "owner"}
	if err := s.CreateBook(ctx, book); err != nil {
		t.Fatalf("create book: %v", err)
	}
	if err := s.CreateBook(ctx, other); err != nil {
		t.Fatalf("create other: %v", err)
	}
	if book.ID == 0 || other.ID == book.ID {
		t.Fatalf("expected distinct generated ids, got %d and %d", book.ID, other.ID)
	}
	for _, bookID := range []int64{book.ID, other.ID} {
		li := &domain.LegalInformation{ResearchBookID: bookID, Title: "t"}
		if err := s.CreateLegalInformation(ctx, li); err != nil {
			t.Fatalf("create item: %v", err)
		}
	}
	if err := s.CreateShares(ctx, []domain.ResearchBookShare{{UserID: "friend", ResearchBookID: book.ID}}); err != nil {
		t.Fatalf("create shares: %v", err)
	}

	if err := s.DeleteBook(ctx, book.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.GetBook(ctx, book.ID); ok {
		t.Fatalf("book still present")
	}
	items, _ := s.ListAllLegalInformation(ctx)
	if len(items) != 1 || items[0].ResearchBookID != other.ID {
		t.Fatalf("expected only other book's item to remain, got %+v", items)
	}
	shared, _ := s.ListBooksSharedWith(ctx, "friend")
	if len(shared) != 0 {
		t.Fatalf("expected grants to be removed, got %+v", shared)
	}
}

func TestMemoryStoreCreateSharesSkipsExisting(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	grant := domain.ResearchBookShare{UserID: "friend", ResearchBookID: 7}
	if err := s.CreateShares(ctx, []domain.ResearchBookShare{grant, grant}); err != nil {
		t.Fatalf("create shares: %v", err)
	}
	if err := s.CreateShares(ctx, []domain.ResearchBookShare{grant}); err != nil {
		t.Fatalf("create shares again: %v", err)
	}
	shares, _ := s.ListShares(ctx, 7)
	if len(shares) != 1 {
		t.Fatalf("expected one grant, got %d", len(shares))
	}
}

func TestMemoryStoreFindLegalInformation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	day := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	seed := []domain.LegalInformation{
		{ResearchBookID: 1, Type: "Statute", Title: "Act A", DateAdded: day},
		{ResearchBookID: 2, Type: "Statute", Title: "Act B", DateAdded: day.Add(-24 * time.Hour)},
		{ResearchBookID: 2, Type: "Case", Title: "Act A", DateAdded: day.Add(3 * time.Hour)},
	}
	for i := range seed {
		if err := s.CreateLegalInformation(ctx, &seed[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		criteria domain.SearchCriteria
		want     []int64
	}{
		{"empty matches all", domain.SearchCriteria{}, []int64{1, 2, 3}},
		{"type", domain.SearchCriteria{DocumentType: "Statute"}, []int64{1, 2}},
		{"title", domain.SearchCriteria{Title: "Act A"}, []int64{1, 3}},
		{"date", domain.SearchCriteria{Date: &date}, []int64{1, 3}},
		{"combined", domain.SearchCriteria{DocumentType: "Statute", Date: &date}, []int64{1}},
		{"case sensitive", domain.SearchCriteria{DocumentType: "statute"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindLegalInformation(ctx, tt.criteria)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %+v", tt.want, got)
			}
			for i, li := range got {
				if li.ID != tt.want[i] {
					t.Fatalf("expected ids %v, got %+v", tt.want, got)
				}
			}
		})
	}
}

func TestMemoryStoreListChatHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, msg := range []string{"one", "two", "three"} {
		h := &domain.ChatHistory{UserID: "u1", Message: msg}
		if err := s.AppendChatHistory(ctx, h); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.AppendChatHistory(ctx, &domain.ChatHistory{UserID: "u2", Message: "other"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := s.ListChatHistory(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Message != "three" || got[1].Message != "two" {
		t.Fatalf("unexpected history: %+v", got)
	}
}
