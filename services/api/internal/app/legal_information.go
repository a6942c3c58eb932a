package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"legalgen/pkg/domain"
)

// LegalInformationInput carries editable legal information fields.
// A zero DateAdded means "now" on create and "unchanged" on update.
type LegalInformationInput struct {
	Type        string
	Title       string
	Description string
	Document    string
	DateAdded   time.Time
}

func (in LegalInformationInput) validate() error {
	var errs problems
	errs.add(strings.TrimSpace(in.Type) != "", "The Type field is required.")
	errs.add(strings.TrimSpace(in.Title) != "", "The Title field is required.")
	return errs.err()
}

// ListLegalInformation returns the items of a readable book.
func (a *App) ListLegalInformation(ctx context.Context, userID string, bookID int64) ([]domain.LegalInformation, error) {
	if _, err := a.readableBook(ctx, userID, bookID); err != nil {
		return nil, err
	}
	items, err := a.store.ListLegalInformation(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list legal information: %w", err)
	}
	return items, nil
}

// GetLegalInformation returns one item of a readable book.
func (a *App) GetLegalInformation(ctx context.Context, userID string, bookID, id int64) (domain.LegalInformation, error) {
	if _, err := a.readableBook(ctx, userID, bookID); err != nil {
		return domain.LegalInformation{}, err
	}
	return a.legalInformation(ctx, bookID, id)
}

// AddLegalInformation adds an item to a book the user owns.
func (a *App) AddLegalInformation(ctx context.Context, userID string, bookID int64, in LegalInformationInput) (domain.LegalInformation, error) {
	if _, err := a.ownedBook(ctx, userID, bookID); err != nil {
		return domain.LegalInformation{}, err
	}
	if err := in.validate(); err != nil {
		return domain.LegalInformation{}, err
	}
	li := domain.LegalInformation{ResearchBookID: bookID, DateAdded: a.now()}
	in.applyTo(&li)
	if err := a.store.CreateLegalInformation(ctx, &li); err != nil {
		return domain.LegalInformation{}, fmt.Errorf("create legal information: %w", err)
	}
	if err := a.touchBook(ctx, bookID); err != nil {
		return domain.LegalInformation{}, err
	}
	return li, nil
}

// UpdateLegalInformation copies the input onto a stored item.
func (a *App) UpdateLegalInformation(ctx context.Context, userID string, bookID, id int64, in LegalInformationInput) (domain.LegalInformation, error) {
	if _, err := a.ownedBook(ctx, userID, bookID); err != nil {
		return domain.LegalInformation{}, err
	}
	li, err := a.legalInformation(ctx, bookID, id)
	if err != nil {
		return domain.LegalInformation{}, err
	}
	if err := in.validate(); err != nil {
		return domain.LegalInformation{}, err
	}
	in.applyTo(&li)
	if err := a.store.UpdateLegalInformation(ctx, li); err != nil {
		return domain.LegalInformation{}, fmt.Errorf("update legal information: %w", err)
	}
	if err := a.touchBook(ctx, bookID); err != nil {
		return domain.LegalInformation{}, err
	}
	return li, nil
}

// DeleteLegalInformation removes an item and its attachment.
func (a *App) DeleteLegalInformation(ctx context.Context, userID string, bookID, id int64) error {
	if _, err := a.ownedBook(ctx, userID, bookID); err != nil {
		return err
	}
	li, err := a.legalInformation(ctx, bookID, id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteLegalInformation(ctx, bookID, id); err != nil {
		return fmt.Errorf("delete legal information: %w", err)
	}
	a.deleteAttachment(ctx, li.AttachmentKey)
	return a.touchBook(ctx, bookID)
}

// SearchLegalInformation filters items across all books by exact type, exact
// title and calendar date. An empty criteria returns every item.
func (a *App) SearchLegalInformation(ctx context.Context, criteria domain.SearchCriteria) ([]domain.LegalInformation, error) {
	items, err := a.store.FindLegalInformation(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("search legal information: %w", err)
	}
	return items, nil
}

func (a *App) legalInformation(ctx context.Context, bookID, id int64) (domain.LegalInformation, error) {
	li, ok, err := a.store.GetLegalInformation(ctx, bookID, id)
	if err != nil {
		return domain.LegalInformation{}, fmt.Errorf("fetch legal information: %w", err)
	}
	if !ok {
		return domain.LegalInformation{}, ErrLegalInformationNotFound
	}
	return li, nil
}

func (in LegalInformationInput) applyTo(li *domain.LegalInformation) {
	li.Type = strings.TrimSpace(in.Type)
	li.Title = strings.TrimSpace(in.Title)
	li.Description = in.Description
	li.Document = in.Document
	if !in.DateAdded.IsZero() {
		li.DateAdded = in.DateAdded.UTC()
	}
}
