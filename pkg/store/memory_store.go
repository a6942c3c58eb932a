package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"legalgen/pkg/domain"
)

// MemoryStore keeps all records in-process. It is used by tests and local runs
// without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User // key: user ID
	email   map[string]string      // email -> user ID
	books   map[int64]domain.ResearchBook
	items   map[int64]domain.LegalInformation
	shares  map[int64]domain.ResearchBookShare
	history []domain.ChatHistory

	nextBookID    int64
	nextItemID    int64
	nextShareID   int64
	nextHistoryID int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]domain.User),
		email:  make(map[string]string),
		books:  make(map[int64]domain.ResearchBook),
		items:  make(map[int64]domain.LegalInformation),
		shares: make(map[int64]domain.ResearchBookShare),
	}
}

// CreateUser registers a user.
func (m *MemoryStore) CreateUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.email[u.Email]; taken {
		return ErrEmailTaken
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// UpdateUser replaces a user, keeping the email index consistent.
func (m *MemoryStore) UpdateUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.users[u.ID]
	if !ok {
		return nil
	}
	if owner, taken := m.email[u.Email]; taken && owner != u.ID {
		return ErrEmailTaken
	}
	delete(m.email, prev.Email)
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(_ context.Context, id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUsersByIDs returns the users that exist among ids.
func (m *MemoryStore) GetUsersByIDs(_ context.Context, ids []string) (map[string]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			res[id] = u
		}
	}
	return res, nil
}

// CreateBook stores a research book under a new ID.
func (m *MemoryStore) CreateBook(_ context.Context, b *domain.ResearchBook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextBookID++
	b.ID = m.nextBookID
	m.books[b.ID] = *b
	return nil
}

// UpdateBook updates name and LastModified.
func (m *MemoryStore) UpdateBook(_ context.Context, b domain.ResearchBook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.books[b.ID]
	if !ok {
		return nil
	}
	cur.Name = b.Name
	cur.LastModified = b.LastModified
	m.books[b.ID] = cur
	return nil
}

// TouchBook bumps LastModified.
func (m *MemoryStore) TouchBook(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[id]; ok {
		b.LastModified = at
		m.books[id] = b
	}
	return nil
}

// GetBook retrieves a research book by ID.
func (m *MemoryStore) GetBook(_ context.Context, id int64) (domain.ResearchBook, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

// ListBooks returns all books ordered by ID.
func (m *MemoryStore) ListBooks(_ context.Context) ([]domain.ResearchBook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterBooks(func(domain.ResearchBook) bool { return true }), nil
}

// ListBooksByOwner returns books filtered by owner ID.
func (m *MemoryStore) ListBooksByOwner(_ context.Context, ownerID string) ([]domain.ResearchBook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterBooks(func(b domain.ResearchBook) bool { return b.UserID == ownerID }), nil
}

// ListBooksSharedWith returns books granted to userID.
func (m *MemoryStore) ListBooksSharedWith(_ context.Context, userID string) ([]domain.ResearchBook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	granted := make(map[int64]bool)
	for _, sh := range m.shares {
		if sh.UserID == userID {
			granted[sh.ResearchBookID] = true
		}
	}
	return m.filterBooks(func(b domain.ResearchBook) bool { return granted[b.ID] }), nil
}

func (m *MemoryStore) filterBooks(keep func(domain.ResearchBook) bool) []domain.ResearchBook {
	res := make([]domain.ResearchBook, 0, len(m.books))
	for _, b := range m.books {
		if keep(b) {
			res = append(res, b)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// DeleteBook removes a book with its items and grants.
func (m *MemoryStore) DeleteBook(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, id)
	for itemID, li := range m.items {
		if li.ResearchBookID == id {
			delete(m.items, itemID)
		}
	}
	for shareID, sh := range m.shares {
		if sh.ResearchBookID == id {
			delete(m.shares, shareID)
		}
	}
	return nil
}

// CreateLegalInformation stores an item under a new ID.
func (m *MemoryStore) CreateLegalInformation(_ context.Context, li *domain.LegalInformation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextItemID++
	li.ID = m.nextItemID
	m.items[li.ID] = *li
	return nil
}

// UpdateLegalInformation overwrites an existing item.
func (m *MemoryStore) UpdateLegalInformation(_ context.Context, li domain.LegalInformation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[li.ID]
	if !ok || cur.ResearchBookID != li.ResearchBookID {
		return nil
	}
	m.items[li.ID] = li
	return nil
}

// GetLegalInformation returns one item of a book.
func (m *MemoryStore) GetLegalInformation(_ context.Context, bookID, id int64) (domain.LegalInformation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	li, ok := m.items[id]
	if !ok || li.ResearchBookID != bookID {
		return domain.LegalInformation{}, false, nil
	}
	return li, true, nil
}

// ListLegalInformation returns the items of one book.
func (m *MemoryStore) ListLegalInformation(_ context.Context, bookID int64) ([]domain.LegalInformation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterItems(func(li domain.LegalInformation) bool { return li.ResearchBookID == bookID }), nil
}

// ListAllLegalInformation returns every item.
func (m *MemoryStore) ListAllLegalInformation(_ context.Context) ([]domain.LegalInformation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterItems(func(domain.LegalInformation) bool { return true }), nil
}

// FindLegalInformation filters items across all books.
func (m *MemoryStore) FindLegalInformation(_ context.Context, c domain.SearchCriteria) ([]domain.LegalInformation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterItems(func(li domain.LegalInformation) bool { return matchesCriteria(li, c) }), nil
}

func (m *MemoryStore) filterItems(keep func(domain.LegalInformation) bool) []domain.LegalInformation {
	res := make([]domain.LegalInformation, 0, len(m.items))
	for _, li := range m.items {
		if keep(li) {
			res = append(res, li)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// DeleteLegalInformation removes one item of a book.
func (m *MemoryStore) DeleteLegalInformation(_ context.Context, bookID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if li, ok := m.items[id]; ok && li.ResearchBookID == bookID {
		delete(m.items, id)
	}
	return nil
}

// ListShares returns the grants of a book ordered by ID.
func (m *MemoryStore) ListShares(_ context.Context, bookID int64) ([]domain.ResearchBookShare, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ResearchBookShare, 0)
	for _, sh := range m.shares {
		if sh.ResearchBookID == bookID {
			res = append(res, sh)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// HasShare reports whether userID holds a grant for the book.
func (m *MemoryStore) HasShare(_ context.Context, bookID int64, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasShareLocked(bookID, userID), nil
}

func (m *MemoryStore) hasShareLocked(bookID int64, userID string) bool {
	for _, sh := range m.shares {
		if sh.ResearchBookID == bookID && sh.UserID == userID {
			return true
		}
	}
	return false
}

// CreateShares stores all new grants under a single lock. Existing grants are skipped.
func (m *MemoryStore) CreateShares(_ context.Context, shares []domain.ResearchBookShare) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sh := range shares {
		if m.hasShareLocked(sh.ResearchBookID, sh.UserID) {
			continue
		}
		m.nextShareID++
		sh.ID = m.nextShareID
		m.shares[sh.ID] = sh
	}
	return nil
}

// AppendChatHistory records a search query.
func (m *MemoryStore) AppendChatHistory(_ context.Context, h *domain.ChatHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHistoryID++
	h.ID = m.nextHistoryID
	m.history = append(m.history, *h)
	return nil
}

// ListChatHistory returns a user's latest queries, newest first.
func (m *MemoryStore) ListChatHistory(_ context.Context, userID string, limit int) ([]domain.ChatHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ChatHistory, 0)
	for i := len(m.history) - 1; i >= 0 && len(res) < limit; i-- {
		if m.history[i].UserID == userID {
			res = append(res, m.history[i])
		}
	}
	return res, nil
}
