package domain

import "time"

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Organization   string    `json:"organization"`
	ContactDetails string    `json:"contactDetails"`
	PasswordHash   string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ResearchBook is a named container of legal information owned by one user.
type ResearchBook struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DateCreated  time.Time `json:"dateCreated"`
	LastModified time.Time `json:"lastModified"`
	UserID       string    `json:"userId"`
}

// LegalInformation is a single legal document or reference inside a research book.
type LegalInformation struct {
	ID             int64     `json:"id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Document       string    `json:"document,omitempty"`
	DateAdded      time.Time `json:"dateAdded"`
	ResearchBookID int64     `json:"researchBookId"`

	AttachmentKey  string `json:"-"`
	AttachmentName string `json:"attachmentName,omitempty"`
	AttachmentType string `json:"attachmentType,omitempty"`
	AttachmentSize int64  `json:"attachmentSize,omitempty"`
}

// HasAttachment reports whether an uploaded file backs this item.
func (li LegalInformation) HasAttachment() bool {
	return li.AttachmentKey != ""
}

// ResearchBookShare grants a non-owner read access to a research book.
type ResearchBookShare struct {
	ID             int64  `json:"id"`
	UserID         string `json:"userId"`
	ResearchBookID int64  `json:"researchBookId"`
}

// ChatHistory is one entry of the append-only search query log.
type ChatHistory struct {
	ID       int64         `json:"id"`
	UserID   string        `json:"userId"`
	Message  string        `json:"message"`
	DateTime time.Time     `json:"dateTime"`
	Matches  SearchMatches `json:"matches"`
}

// SearchMatches records how many records a logged query returned.
type SearchMatches struct {
	ResearchBooks     int `json:"researchBooks"`
	LegalInformations int `json:"legalInformations"`
}

// SearchCriteria filters legal information across all books.
// Zero values mean "not set".
type SearchCriteria struct {
	DocumentType string
	Title        string
	Date         *time.Time
}

// IsEmpty reports whether no criterion is set.
func (c SearchCriteria) IsEmpty() bool {
	return c.DocumentType == "" && c.Title == "" && c.Date == nil
}

type BookHit struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type LegalInformationHit struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SearchResult is the combined output of a keyword search.
type SearchResult struct {
	ResearchBooks     []BookHit             `json:"researchBooks"`
	LegalInformations []LegalInformationHit `json:"legalInformations"`
}

type ShareStatus string

const (
	ShareStatusShared  ShareStatus = "shared"
	ShareStatusSkipped ShareStatus = "skipped"
)

const (
	ShareReasonBookNotFound  = "book_not_found"
	ShareReasonUserNotFound  = "user_not_found"
	ShareReasonOwner         = "owner"
	ShareReasonAlreadyShared = "already_shared"
	ShareReasonDuplicate     = "duplicate"
)

// ShareResult is the outcome of sharing a book with one user.
type ShareResult struct {
	UserID string      `json:"userId"`
	Status ShareStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// ShareReport collects per-user outcomes of one share request.
type ShareReport struct {
	BookID    int64         `json:"bookId"`
	BookFound bool          `json:"bookFound"`
	Results   []ShareResult `json:"results"`
}

// SharedCount returns how many grants the request created.
func (r ShareReport) SharedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == ShareStatusShared {
			n++
		}
	}
	return n
}
