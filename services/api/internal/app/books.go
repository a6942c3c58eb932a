package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"legalgen/pkg/domain"
)

// BookInput carries editable research book fields.
type BookInput struct {
	Name string
}

func (in BookInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("The Name field is required.")
	}
	return nil
}

// ListBooks returns the books the user owns followed by those shared with them, ordered by id.
func (a *App) ListBooks(ctx context.Context, userID string) ([]domain.ResearchBook, error) {
	owned, err := a.store.ListBooksByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned books: %w", err)
	}
	shared, err := a.store.ListBooksSharedWith(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list shared books: %w", err)
	}
	seen := make(map[int64]struct{}, len(owned))
	books := make([]domain.ResearchBook, 0, len(owned)+len(shared))
	for _, b := range append(owned, shared...) {
		if _, ok := seen[b.ID]; ok {
			continue
		}
		seen[b.ID] = struct{}{}
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

// ListSharedBooks returns only the books shared with the user.
func (a *App) ListSharedBooks(ctx context.Context, userID string) ([]domain.ResearchBook, error) {
	books, err := a.store.ListBooksSharedWith(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list shared books: %w", err)
	}
	return books, nil
}

// GetBook returns a book the user owns or has been granted.
func (a *App) GetBook(ctx context.Context, userID string, id int64) (domain.ResearchBook, error) {
	return a.readableBook(ctx, userID, id)
}

// CreateBook creates a book owned by the user.
func (a *App) CreateBook(ctx context.Context, userID string, in BookInput) (domain.ResearchBook, error) {
	if err := in.validate(); err != nil {
		return domain.ResearchBook{}, err
	}
	now := a.now()
	book := domain.ResearchBook{
		Name:         strings.TrimSpace(in.Name),
		DateCreated:  now,
		LastModified: now,
		UserID:       userID,
	}
	if err := a.store.CreateBook(ctx, &book); err != nil {
		return domain.ResearchBook{}, fmt.Errorf("create book: %w", err)
	}
	return book, nil
}

// UpdateBook renames a book. Only the owner may do so.
func (a *App) UpdateBook(ctx context.Context, userID string, id int64, in BookInput) (domain.ResearchBook, error) {
	if err := in.validate(); err != nil {
		return domain.ResearchBook{}, err
	}
	book, err := a.ownedBook(ctx, userID, id)
	if err != nil {
		return domain.ResearchBook{}, err
	}
	book.Name = strings.TrimSpace(in.Name)
	book.LastModified = a.now()
	if err := a.store.UpdateBook(ctx, book); err != nil {
		return domain.ResearchBook{}, fmt.Errorf("update book: %w", err)
	}
	return book, nil
}

// DeleteBook removes a book with its items, grants and attachments.
func (a *App) DeleteBook(ctx context.Context, userID string, id int64) error {
	if _, err := a.ownedBook(ctx, userID, id); err != nil {
		return err
	}
	items, err := a.store.ListLegalInformation(ctx, id)
	if err != nil {
		return fmt.Errorf("list legal information: %w", err)
	}
	if err := a.store.DeleteBook(ctx, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	for _, li := range items {
		a.deleteAttachment(ctx, li.AttachmentKey)
	}
	return nil
}

// readableBook loads a book visible to the user. Books the user can't see are
// reported as missing.
func (a *App) readableBook(ctx context.Context, userID string, id int64) (domain.ResearchBook, error) {
	book, ok, err := a.store.GetBook(ctx, id)
	if err != nil {
		return domain.ResearchBook{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.ResearchBook{}, ErrResearchBookNotFound
	}
	if book.UserID == userID {
		return book, nil
	}
	shared, err := a.store.HasShare(ctx, id, userID)
	if err != nil {
		return domain.ResearchBook{}, fmt.Errorf("check share: %w", err)
	}
	if !shared {
		return domain.ResearchBook{}, ErrResearchBookNotFound
	}
	return book, nil
}

// ownedBook loads a book the user may modify. Grantees get ErrForbidden.
func (a *App) ownedBook(ctx context.Context, userID string, id int64) (domain.ResearchBook, error) {
	book, err := a.readableBook(ctx, userID, id)
	if err != nil {
		return domain.ResearchBook{}, err
	}
	if book.UserID != userID {
		return domain.ResearchBook{}, ErrForbidden
	}
	return book, nil
}

func (a *App) touchBook(ctx context.Context, id int64) error {
	if err := a.store.TouchBook(ctx, id, a.now()); err != nil {
		return fmt.Errorf("touch book: %w", err)
	}
	return nil
}
