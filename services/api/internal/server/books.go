package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"legalgen/pkg/domain"
	"legalgen/services/api/internal/app"
)

// /api/ResearchBooks
func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		books, err := s.app.ListBooks(r.Context(), user.ID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Research books.", toBookDTOs(books, user.ID))
	case http.MethodPost:
		var req bookRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		book, err := s.app.CreateBook(r.Context(), user.ID, app.BookInput{Name: req.Name})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, "Research book created.", toBookDTO(book, user.ID))
	default:
		methodNotAllowed(w)
	}
}

// handleBookRoutes dispatches everything below /api/ResearchBooks/.
func (s *Server) handleBookRoutes(w http.ResponseWriter, r *http.Request, user domain.User) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/ResearchBooks/"), "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "shared":
		s.handleSharedBooks(w, r, user)
		return
	case len(parts) == 1 && parts[0] == "search":
		s.handleCriteriaSearch(w, r)
		return
	case len(parts) == 2 && parts[0] == "addlegalinformation":
		bookID, ok := parseID(parts[1])
		if !ok || r.Method != http.MethodPost {
			notFoundOrMethod(w, r, ok)
			return
		}
		s.handleAddLegalInformation(w, r, user, bookID)
		return
	}

	bookID, ok := parseID(parts[0])
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch {
	case len(parts) == 1:
		s.handleBook(w, r, user, bookID)
	case len(parts) == 2 && parts[1] == "share":
		s.handleShare(w, r, user, bookID)
	case len(parts) == 2 && parts[1] == "shares":
		s.handleListShares(w, r, user, bookID)
	case len(parts) == 2 && parts[1] == "legalinformation":
		s.handleLegalInformationCollection(w, r, user, bookID)
	case len(parts) >= 3 && parts[1] == "legalinformation":
		id, ok := parseID(parts[2])
		if !ok {
			http.NotFound(w, r)
			return
		}
		switch {
		case len(parts) == 3:
			s.handleLegalInformationItem(w, r, user, bookID, id)
		case len(parts) == 4 && parts[3] == "document":
			s.handleDocument(w, r, user, bookID, id)
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request, user domain.User, id int64) {
	switch r.Method {
	case http.MethodGet:
		book, err := s.app.GetBook(r.Context(), user.ID, id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Research book.", toBookDTO(book, user.ID))
	case http.MethodPut:
		var req bookRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		book, err := s.app.UpdateBook(r.Context(), user.ID, id, app.BookInput{Name: req.Name})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Research book updated.", toBookDTO(book, user.ID))
	case http.MethodDelete:
		if err := s.app.DeleteBook(r.Context(), user.ID, id); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Research book deleted.", nil)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSharedBooks(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	books, err := s.app.ListSharedBooks(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Shared research books.", toBookDTOs(books, user.ID))
}

// /api/ResearchBooks/search?documentType=&title=&date=YYYY-MM-DD
func (s *Server) handleCriteriaSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	criteria := domain.SearchCriteria{
		DocumentType: q.Get("documentType"),
		Title:        q.Get("title"),
	}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		date, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
			return
		}
		criteria.Date = &date
	}
	items, err := s.app.SearchLegalInformation(r.Context(), criteria)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Legal information.", toLegalInformationDTOs(items))
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request, user domain.User, bookID int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req shareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := s.app.ShareBook(r.Context(), user.ID, bookID, req.UserIDs)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !report.BookFound {
		writeData(w, http.StatusNotFound, app.ErrResearchBookNotFound.Error(), report)
		return
	}
	s.audit(r, "book.share", "success", "user_id", user.ID, "book_id", bookID, "shared", report.SharedCount())
	writeData(w, http.StatusOK, "Research book shared.", report)
}

func (s *Server) handleListShares(w http.ResponseWriter, r *http.Request, user domain.User, bookID int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	shares, err := s.app.ListShares(r.Context(), user.ID, bookID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Research book shares.", toShareDTOs(shares))
}

// /api/ResearchBooks/{id}/legalinformation
func (s *Server) handleLegalInformationCollection(w http.ResponseWriter, r *http.Request, user domain.User, bookID int64) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.app.ListLegalInformation(r.Context(), user.ID, bookID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Legal information.", toLegalInformationDTOs(items))
	case http.MethodPost:
		s.handleAddLegalInformation(w, r, user, bookID)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAddLegalInformation(w http.ResponseWriter, r *http.Request, user domain.User, bookID int64) {
	var req legalInformationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	li, err := s.app.AddLegalInformation(r.Context(), user.ID, bookID, req.input())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Legal information added.", toLegalInformationDTO(li))
}

// /api/ResearchBooks/{id}/legalinformation/{liId}
func (s *Server) handleLegalInformationItem(w http.ResponseWriter, r *http.Request, user domain.User, bookID, id int64) {
	switch r.Method {
	case http.MethodGet:
		li, err := s.app.GetLegalInformation(r.Context(), user.ID, bookID, id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Legal information.", toLegalInformationDTO(li))
	case http.MethodPut:
		var req legalInformationRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		li, err := s.app.UpdateLegalInformation(r.Context(), user.ID, bookID, id, req.input())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Legal information updated.", toLegalInformationDTO(li))
	case http.MethodDelete:
		if err := s.app.DeleteLegalInformation(r.Context(), user.ID, bookID, id); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Legal information deleted.", nil)
	default:
		methodNotAllowed(w)
	}
}

// /api/ResearchBooks/{id}/legalinformation/{liId}/document
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request, user domain.User, bookID, id int64) {
	switch r.Method {
	case http.MethodGet:
		url, expires, err := s.app.DocumentURL(r.Context(), user.ID, bookID, id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, "Document download link.", documentURLResponse{URL: url, ExpiresAt: expires})
	case http.MethodPost:
		s.handleUploadDocument(w, r, user, bookID, id)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request, user domain.User, bookID, id int64) {
	maxBytes := s.app.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+maxJSONBodyBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	li, err := s.app.UploadDocument(r.Context(), user.ID, bookID, id, app.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Document uploaded.", toLegalInformationDTO(li))
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func notFoundOrMethod(w http.ResponseWriter, r *http.Request, found bool) {
	if !found {
		http.NotFound(w, r)
		return
	}
	methodNotAllowed(w)
}
