package server

import (
	"time"

	"legalgen/pkg/domain"
	"legalgen/services/api/internal/app"
)

type registerRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Organization   string `json:"organization"`
	ContactDetails string `json:"contactDetails"`
}

func (r registerRequest) input() app.RegisterInput {
	return app.RegisterInput{
		Email:          r.Email,
		Password:       r.Password,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Organization:   r.Organization,
		ContactDetails: r.ContactDetails,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
	UserID     string    `json:"userId"`
}

type resetPasswordRequest struct {
	Email           string `json:"email"`
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// profileDTO is both the profile response and the update-profile request.
type profileDTO struct {
	ID             string `json:"id,omitempty"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Organization   string `json:"organization"`
	ContactDetails string `json:"contactDetails"`
}

func toProfileDTO(u domain.User) profileDTO {
	return profileDTO{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Organization:   u.Organization,
		ContactDetails: u.ContactDetails,
	}
}

func (p profileDTO) input() app.ProfileInput {
	return app.ProfileInput{
		Email:          p.Email,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Organization:   p.Organization,
		ContactDetails: p.ContactDetails,
	}
}

type bookRequest struct {
	Name string `json:"name"`
}

type researchBookDTO struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DateCreated  time.Time `json:"dateCreated"`
	LastModified time.Time `json:"lastModified"`
	UserID       string    `json:"userId"`
	Owned        bool      `json:"owned"`
}

func toBookDTO(b domain.ResearchBook, callerID string) researchBookDTO {
	return researchBookDTO{
		ID:           b.ID,
		Name:         b.Name,
		DateCreated:  b.DateCreated,
		LastModified: b.LastModified,
		UserID:       b.UserID,
		Owned:        b.UserID == callerID,
	}
}

func toBookDTOs(books []domain.ResearchBook, callerID string) []researchBookDTO {
	out := make([]researchBookDTO, 0, len(books))
	for _, b := range books {
		out = append(out, toBookDTO(b, callerID))
	}
	return out
}

type legalInformationRequest struct {
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Document    string     `json:"document"`
	DateAdded   *time.Time `json:"dateAdded"`
}

func (r legalInformationRequest) input() app.LegalInformationInput {
	in := app.LegalInformationInput{
		Type:        r.Type,
		Title:       r.Title,
		Description: r.Description,
		Document:    r.Document,
	}
	if r.DateAdded != nil {
		in.DateAdded = *r.DateAdded
	}
	return in
}

type attachmentDTO struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type legalInformationDTO struct {
	ID             int64          `json:"id"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Document       string         `json:"document"`
	DateAdded      time.Time      `json:"dateAdded"`
	ResearchBookID int64          `json:"researchBookId"`
	Attachment     *attachmentDTO `json:"attachment,omitempty"`
}

func toLegalInformationDTO(li domain.LegalInformation) legalInformationDTO {
	dto := legalInformationDTO{
		ID:             li.ID,
		Type:           li.Type,
		Title:          li.Title,
		Description:    li.Description,
		Document:       li.Document,
		DateAdded:      li.DateAdded,
		ResearchBookID: li.ResearchBookID,
	}
	if li.HasAttachment() {
		dto.Attachment = &attachmentDTO{Name: li.AttachmentName, ContentType: li.AttachmentType, Size: li.AttachmentSize}
	}
	return dto
}

func toLegalInformationDTOs(items []domain.LegalInformation) []legalInformationDTO {
	out := make([]legalInformationDTO, 0, len(items))
	for _, li := range items {
		out = append(out, toLegalInformationDTO(li))
	}
	return out
}

type shareRequest struct {
	UserIDs []string `json:"userIds"`
}

type shareDTO struct {
	ID             int64  `json:"id"`
	UserID         string `json:"userId"`
	ResearchBookID int64  `json:"researchBookId"`
}

func toShareDTOs(shares []domain.ResearchBookShare) []shareDTO {
	out := make([]shareDTO, 0, len(shares))
	for _, s := range shares {
		out = append(out, shareDTO{ID: s.ID, UserID: s.UserID, ResearchBookID: s.ResearchBookID})
	}
	return out
}

type chatHistoryDTO struct {
	ID       int64                `json:"id"`
	Message  string               `json:"message"`
	DateTime time.Time            `json:"dateTime"`
	Matches  domain.SearchMatches `json:"matches"`
}

func toChatHistoryDTOs(history []domain.ChatHistory) []chatHistoryDTO {
	out := make([]chatHistoryDTO, 0, len(history))
	for _, h := range history {
		out = append(out, chatHistoryDTO{ID: h.ID, Message: h.Message, DateTime: h.DateTime, Matches: h.Matches})
	}
	return out
}

type documentURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
