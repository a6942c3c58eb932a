package store

import (
	"context"
	"errors"
	"time"

	"legalgen/pkg/domain"
)

// ErrEmailTaken is returned when a user save would duplicate another user's email.
var ErrEmailTaken = errors.New("email already registered")

// Store defines persistence operations for users, research books, legal
// information, share grants and the search log.
type Store interface {
	// users
	CreateUser(ctx context.Context, u domain.User) error
	UpdateUser(ctx context.Context, u domain.User) error
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]domain.User, error)

	// research books
	CreateBook(ctx context.Context, b *domain.ResearchBook) error
	UpdateBook(ctx context.Context, b domain.ResearchBook) error
	TouchBook(ctx context.Context, id int64, at time.Time) error
	GetBook(ctx context.Context, id int64) (domain.ResearchBook, bool, error)
	ListBooks(ctx context.Context) ([]domain.ResearchBook, error)
	ListBooksByOwner(ctx context.Context, ownerID string) ([]domain.ResearchBook, error)
	ListBooksSharedWith(ctx context.Context, userID string) ([]domain.ResearchBook, error)
	DeleteBook(ctx context.Context, id int64) error

	// legal information
	CreateLegalInformation(ctx context.Context, li *domain.LegalInformation) error
	UpdateLegalInformation(ctx context.Context, li domain.LegalInformation) error
	GetLegalInformation(ctx context.Context, bookID, id int64) (domain.LegalInformation, bool, error)
	ListLegalInformation(ctx context.Context, bookID int64) ([]domain.LegalInformation, error)
	ListAllLegalInformation(ctx context.Context) ([]domain.LegalInformation, error)
	FindLegalInformation(ctx context.Context, criteria domain.SearchCriteria) ([]domain.LegalInformation, error)
	DeleteLegalInformation(ctx context.Context, bookID, id int64) error

	// shares
	ListShares(ctx context.Context, bookID int64) ([]domain.ResearchBookShare, error)
	HasShare(ctx context.Context, bookID int64, userID string) (bool, error)
	CreateShares(ctx context.Context, shares []domain.ResearchBookShare) error

	// search log
	AppendChatHistory(ctx context.Context, h *domain.ChatHistory) error
	ListChatHistory(ctx context.Context, userID string, limit int) ([]domain.ChatHistory, error)
}

// SessionStore issues and verifies bearer tokens.
type SessionStore interface {
	NewSession(user domain.User) (string, time.Time, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// UserSessionRevoker is an optional capability that revokes all sessions
// issued for a user since a cutoff time.
type UserSessionRevoker interface {
	RevokeUserSessions(userID string, since time.Time) error
}

// matchesCriteria applies the criteria search filter shared by the stores.
func matchesCriteria(li domain.LegalInformation, c domain.SearchCriteria) bool {
	if c.DocumentType != "" && li.Type != c.DocumentType {
		return false
	}
	if c.Title != "" && li.Title != c.Title {
		return false
	}
	if c.Date != nil {
		y1, m1, d1 := li.DateAdded.UTC().Date()
		y2, m2, d2 := c.Date.UTC().Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			return false
		}
	}
	return true
}
