package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"legalgen/pkg/domain"
	"legalgen/pkg/extract"
	"legalgen/pkg/storage"
)

const documentURLExpiry = 15 * time.Minute

// UploadInput is an attachment received from a client.
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// MaxUploadBytes is the largest accepted attachment.
func (a *App) MaxUploadBytes() int64 {
	return a.maxUploadBytes
}

// UploadDocument stores an attachment for an item and, when its text can be
// extracted, makes that text the item's searchable document.
func (a *App) UploadDocument(ctx context.Context, userID string, bookID, id int64, in UploadInput) (domain.LegalInformation, error) {
	if a.objects == nil {
		return domain.LegalInformation{}, ErrStorageDisabled
	}
	if _, err := a.ownedBook(ctx, userID, bookID); err != nil {
		return domain.LegalInformation{}, err
	}
	li, err := a.legalInformation(ctx, bookID, id)
	if err != nil {
		return domain.LegalInformation{}, err
	}
	if strings.TrimSpace(in.Filename) == "" || len(in.Data) == 0 {
		return domain.LegalInformation{}, invalid("A non-empty file is required.")
	}
	if int64(len(in.Data)) > a.maxUploadBytes {
		return domain.LegalInformation{}, invalid(fmt.Sprintf("The file exceeds the %d byte limit.", a.maxUploadBytes))
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.AttachmentKey(bookID, id, in.Filename)
	if err := a.objects.Put(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data)), contentType); err != nil {
		return domain.LegalInformation{}, fmt.Errorf("store document: %w", err)
	}
	text, err := extract.Text(in.Filename, contentType, in.Data)
	switch {
	case err == nil:
		li.Document = text
	case errors.Is(err, extract.ErrUnsupported):
	default:
		a.logger.WarnContext(ctx, "document text extraction failed", "legal_information_id", id, "err", err)
	}

	previous := li.AttachmentKey
	li.AttachmentKey = key
	li.AttachmentName = in.Filename
	li.AttachmentType = contentType
	li.AttachmentSize = int64(len(in.Data))
	if err := a.store.UpdateLegalInformation(ctx, li); err != nil {
		return domain.LegalInformation{}, fmt.Errorf("update legal information: %w", err)
	}
	if previous != "" && previous != key {
		a.deleteAttachment(ctx, previous)
	}
	if err := a.touchBook(ctx, bookID); err != nil {
		return domain.LegalInformation{}, err
	}
	return li, nil
}

// DocumentURL returns a short-lived download link for an item's attachment.
func (a *App) DocumentURL(ctx context.Context, userID string, bookID, id int64) (string, time.Time, error) {
	if a.objects == nil {
		return "", time.Time{}, ErrStorageDisabled
	}
	if _, err := a.readableBook(ctx, userID, bookID); err != nil {
		return "", time.Time{}, err
	}
	li, err := a.legalInformation(ctx, bookID, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if !li.HasAttachment() {
		return "", time.Time{}, ErrDocumentNotFound
	}
	url, err := a.objects.PresignGet(ctx, li.AttachmentKey, li.AttachmentName, documentURLExpiry)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return "", time.Time{}, ErrDocumentNotFound
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign document: %w", err)
	}
	return url, a.now().Add(documentURLExpiry), nil
}

func (a *App) deleteAttachment(ctx context.Context, key string) {
	if key == "" || a.objects == nil {
		return
	}
	if err := a.objects.Delete(ctx, key); err != nil {
		a.logger.WarnContext(ctx, "delete attachment failed", "key", key, "err", err)
	}
}
