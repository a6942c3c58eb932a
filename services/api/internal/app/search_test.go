package app

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"legalgen/pkg/domain"
)

func TestSplitTokens(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{""}},
		{"Law", []string{"Law"}},
		{"Contract Law", []string{"Contract", "Law"}},
		{"a  b", []string{"a", "", "b"}},
		{"a\tb\n", []string{"a", "b", ""}},
		{"négligence duty", []string{"négligence", "duty"}},
	}
	for _, tt := range tests {
		if got := splitTokens(tt.query); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("splitTokens(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

type searchFixture struct {
	env      testEnv
	user     domain.User
	contract domain.ResearchBook
	torts    domain.ResearchBook
	items    []domain.LegalInformation
}

func newSearchFixture(t *testing.T) searchFixture {
	t.Helper()
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com")
	other := env.register(t, "other@example.com")
	contract := env.book(t, owner.ID, "Contract Law 101")
	torts := env.book(t, other.ID, "Torts")
	items := []domain.LegalInformation{
		env.item(t, owner.ID, contract.ID, LegalInformationInput{Type: "Statute", Title: "Sale of Goods Act", Description: "Implied terms"}),
		env.item(t, other.ID, torts.ID, LegalInformationInput{Type: "Case", Title: "Donoghue v Stevenson", Description: "Snail in a bottle", Document: "duty of care owed to the ultimate consumer"}),
		env.item(t, other.ID, torts.ID, LegalInformationInput{Type: "Case", Title: "Caparo v Dickman", Description: "Three stage test"}),
	}
	return searchFixture{env: env, user: owner, contract: contract, torts: torts, items: items}
}

func (f searchFixture) historyLen(t *testing.T) int {
	t.Helper()
	h, err := f.env.store.ListChatHistory(context.Background(), f.user.ID, 1000)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	return len(h)
}

func TestSearchMatchesBookNames(t *testing.T) {
	f := newSearchFixture(t)
	res, err := f.env.app.Search(context.Background(), "Law", f.user.ID)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []domain.BookHit{{ID: f.contract.ID, Name: "Contract Law 101"}}
	if !reflect.DeepEqual(res.ResearchBooks, want) {
		t.Fatalf("expected only Contract Law 101, got %+v", res.ResearchBooks)
	}
}

func TestSearchEmptyQueryReturnsEverything(t *testing.T) {
	f := newSearchFixture(t)
	res, err := f.env.app.Search(context.Background(), "", f.user.ID)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.ResearchBooks) != 2 || len(res.LegalInformations) != len(f.items) {
		t.Fatalf("expected all books and items, got %+v", res)
	}
}

func TestSearchIsSoundAndComplete(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()
	for _, query := range []string{"Law", "Case Act", "care", "v", "Snail", "nothing-matches", "Torts 101"} {
		tokens := splitTokens(query)
		res, err := f.env.app.Search(ctx, query, f.user.ID)
		if err != nil {
			t.Fatalf("search %q: %v", query, err)
		}

		gotBooks := map[int64]bool{}
		for _, hit := range res.ResearchBooks {
			gotBooks[hit.ID] = true
		}
		for _, b := range []domain.ResearchBook{f.contract, f.torts} {
			if containsAny(b.Name, tokens) != gotBooks[b.ID] {
				t.Fatalf("query %q: book %q returned=%v", query, b.Name, gotBooks[b.ID])
			}
		}

		gotItems := map[int64]bool{}
		for _, hit := range res.LegalInformations {
			gotItems[hit.ID] = true
		}
		for _, li := range f.items {
			fields := []string{li.Type, li.Title, li.Description}
			if li.Document != "" {
				fields = append(fields, li.Document)
			}
			match := false
			for _, field := range fields {
				for _, tok := range tokens {
					if strings.Contains(field, tok) {
						match = true
					}
				}
			}
			if match != gotItems[li.ID] {
				t.Fatalf("query %q: item %q returned=%v", query, li.Title, gotItems[li.ID])
			}
		}
	}
}

func TestSearchMatchesDocumentWithoutReturningIt(t *testing.T) {
	f := newSearchFixture(t)
	res, err := f.env.app.Search(context.Background(), "consumer", f.user.ID)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.LegalInformations) != 1 || res.LegalInformations[0].Title != "Donoghue v Stevenson" {
		t.Fatalf("expected document match, got %+v", res.LegalInformations)
	}
}

func TestSearchLogsEveryCall(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()
	for i, query := range []string{"Law", "nothing-matches", "", "Law"} {
		before := f.historyLen(t)
		if _, err := f.env.app.Search(ctx, query, f.user.ID); err != nil {
			t.Fatalf("search: %v", err)
		}
		if after := f.historyLen(t); after != before+1 {
			t.Fatalf("call %d: expected one new history entry, got %d -> %d", i, before, after)
		}
	}
	history, err := f.env.app.ListChatHistory(ctx, f.user.ID, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if history[0].Message != "Law" || history[1].Message != "" || history[2].Message != "nothing-matches" {
		t.Fatalf("expected verbatim queries newest first, got %+v", history)
	}
	if history[2].Matches != (domain.SearchMatches{}) {
		t.Fatalf("expected zero matches recorded, got %+v", history[2].Matches)
	}
	if history[0].Matches.ResearchBooks != 1 {
		t.Fatalf("expected one book match recorded, got %+v", history[0].Matches)
	}
}

func TestSearchIsIdempotent(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()
	first, err := f.env.app.Search(ctx, "Case Law", f.user.ID)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	second, err := f.env.app.Search(ctx, "Case Law", f.user.ID)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}
