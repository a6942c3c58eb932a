package app

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"legalgen/pkg/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Search matches the query's whitespace-separated tokens against every book
// name and every item's type, title, description and document. Matching is
// case-sensitive substring containment, and an empty token matches everything.
// Each call appends one entry to the caller's search log.
func (a *App) Search(ctx context.Context, query, userID string) (domain.SearchResult, error) {
	tokens := splitTokens(query)

	books, err := a.store.ListBooks(ctx)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("load books: %w", err)
	}
	items, err := a.store.ListAllLegalInformation(ctx)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("load legal information: %w", err)
	}

	result := domain.SearchResult{
		ResearchBooks:     []domain.BookHit{},
		LegalInformations: []domain.LegalInformationHit{},
	}
	for _, b := range books {
		if containsAny(b.Name, tokens) {
			result.ResearchBooks = append(result.ResearchBooks, domain.BookHit{ID: b.ID, Name: b.Name})
		}
	}
	for _, li := range items {
		if itemMatches(li, tokens) {
			result.LegalInformations = append(result.LegalInformations, domain.LegalInformationHit{
				ID:          li.ID,
				Type:        li.Type,
				Title:       li.Title,
				Description: li.Description,
			})
		}
	}

	entry := domain.ChatHistory{
		UserID:   userID,
		Message:  query,
		DateTime: a.now(),
		Matches: domain.SearchMatches{
			ResearchBooks:     len(result.ResearchBooks),
			LegalInformations: len(result.LegalInformations),
		},
	}
	if err := a.store.AppendChatHistory(ctx, &entry); err != nil {
		return domain.SearchResult{}, fmt.Errorf("log search: %w", err)
	}
	return result, nil
}

// ListChatHistory returns the caller's logged queries, newest first.
func (a *App) ListChatHistory(ctx context.Context, userID string, limit int) ([]domain.ChatHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	history, err := a.store.ListChatHistory(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	return history, nil
}

// splitTokens splits at every whitespace rune. Adjacent separators produce
// empty tokens and the empty query yields a single empty token.
func splitTokens(query string) []string {
	tokens := make([]string, 0, 4)
	start := 0
	for i, r := range query {
		if unicode.IsSpace(r) {
			tokens = append(tokens, query[start:i])
			start = i + len(string(r))
		}
	}
	return append(tokens, query[start:])
}

func itemMatches(li domain.LegalInformation, tokens []string) bool {
	if containsAny(li.Type, tokens) || containsAny(li.Title, tokens) || containsAny(li.Description, tokens) {
		return true
	}
	return li.Document != "" && containsAny(li.Document, tokens)
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
