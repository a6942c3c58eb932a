package app

import (
	"context"
	"fmt"
	"strings"

	"legalgen/pkg/domain"
)

// ShareBook grants each listed user read access to a book the caller owns.
// Missing books and users never fail the request; each id gets its own
// outcome in the report and every grant is committed in one batch.
func (a *App) ShareBook(ctx context.Context, callerID string, bookID int64, userIDs []string) (domain.ShareReport, error) {
	report := domain.ShareReport{BookID: bookID, Results: make([]domain.ShareResult, 0, len(userIDs))}
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = strings.TrimSpace(id)
	}

	book, found, err := a.store.GetBook(ctx, bookID)
	if err != nil {
		return domain.ShareReport{}, fmt.Errorf("fetch book: %w", err)
	}
	if !found {
		for _, id := range ids {
			report.Results = append(report.Results, skipped(id, domain.ShareReasonBookNotFound))
		}
		return report, nil
	}
	if book.UserID != callerID {
		shared, err := a.store.HasShare(ctx, bookID, callerID)
		if err != nil {
			return domain.ShareReport{}, fmt.Errorf("check share: %w", err)
		}
		if shared {
			return domain.ShareReport{}, ErrForbidden
		}
		return domain.ShareReport{}, ErrResearchBookNotFound
	}
	report.BookFound = true

	users, err := a.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return domain.ShareReport{}, fmt.Errorf("fetch users: %w", err)
	}
	existing, err := a.store.ListShares(ctx, bookID)
	if err != nil {
		return domain.ShareReport{}, fmt.Errorf("list shares: %w", err)
	}
	granted := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		granted[s.UserID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(ids))
	var grants []domain.ResearchBookShare
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			report.Results = append(report.Results, skipped(id, domain.ShareReasonDuplicate))
			continue
		}
		seen[id] = struct{}{}
		switch _, known := users[id]; {
		case !known:
			report.Results = append(report.Results, skipped(id, domain.ShareReasonUserNotFound))
		case id == book.UserID:
			report.Results = append(report.Results, skipped(id, domain.ShareReasonOwner))
		default:
			if _, ok := granted[id]; ok {
				report.Results = append(report.Results, skipped(id, domain.ShareReasonAlreadyShared))
				continue
			}
			grants = append(grants, domain.ResearchBookShare{UserID: id, ResearchBookID: bookID})
			report.Results = append(report.Results, domain.ShareResult{UserID: id, Status: domain.ShareStatusShared})
		}
	}
	if len(grants) == 0 {
		return report, nil
	}
	if err := a.store.CreateShares(ctx, grants); err != nil {
		return domain.ShareReport{}, fmt.Errorf("create shares: %w", err)
	}
	return report, nil
}

// ListShares returns the grants of a book the caller owns.
func (a *App) ListShares(ctx context.Context, callerID string, bookID int64) ([]domain.ResearchBookShare, error) {
	if _, err := a.ownedBook(ctx, callerID, bookID); err != nil {
		return nil, err
	}
	shares, err := a.store.ListShares(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}

func skipped(userID, reason string) domain.ShareResult {
	return domain.ShareResult{UserID: userID, Status: domain.ShareStatusSkipped, Reason: reason}
}
