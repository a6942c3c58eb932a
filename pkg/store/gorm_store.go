package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"legalgen/pkg/domain"
)

const migrateLockID int64 = 51734201

const shareBatchSize = 200

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&ResearchBookModel{},
			&LegalInformationModel{},
			&ResearchBookShareModel{},
			&ChatHistoryModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				DELETE FROM legal_information_models li
				WHERE NOT EXISTS (SELECT 1 FROM research_book_models b WHERE b.id = li.research_book_id);
				DELETE FROM research_book_share_models s
				WHERE NOT EXISTS (SELECT 1 FROM research_book_models b WHERE b.id = s.research_book_id);
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'legal_information_models'
					AND constraint_name = 'legal_information_models_book_fkey'
				) THEN
					ALTER TABLE legal_information_models
					ADD CONSTRAINT legal_information_models_book_fkey
					FOREIGN KEY (research_book_id) REFERENCES research_book_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'research_book_share_models'
					AND constraint_name = 'research_book_share_models_book_fkey'
				) THEN
					ALTER TABLE research_book_share_models
					ADD CONSTRAINT research_book_share_models_book_fkey
					FOREIGN KEY (research_book_id) REFERENCES research_book_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure research book foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateUser inserts a new user.
func (s *GormStore) CreateUser(ctx context.Context, u domain.User) error {
	model := userToModel(u)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// UpdateUser updates profile fields and password hash.
func (s *GormStore) UpdateUser(ctx context.Context, u domain.User) error {
	err := s.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"email":           u.Email,
			"first_name":      u.FirstName,
			"last_name":       u.LastName,
			"organization":    u.Organization,
			"contact_details": u.ContactDetails,
			"password_hash":   u.PasswordHash,
			"updated_at":      u.UpdatedAt,
		}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUsersByIDs returns the users that exist among ids, keyed by ID.
func (s *GormStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	res := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	var models []UserModel
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	for _, m := range models {
		res[m.ID] = userFromModel(m)
	}
	return res, nil
}

// CreateBook inserts a research book and sets its generated ID.
func (s *GormStore) CreateBook(ctx context.Context, b *domain.ResearchBook) error {
	model := bookToModel(*b)
	model.ID = 0
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	b.ID = model.ID
	return nil
}

// UpdateBook updates the mutable fields of a research book. The owner never changes.
func (s *GormStore) UpdateBook(ctx context.Context, b domain.ResearchBook) error {
	return s.db.WithContext(ctx).Model(&ResearchBookModel{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{
			"name":          b.Name,
			"last_modified": b.LastModified,
		}).Error
}

// TouchBook bumps LastModified.
func (s *GormStore) TouchBook(ctx context.Context, id int64, at time.Time) error {
	return s.db.WithContext(ctx).Model(&ResearchBookModel{}).
		Where("id = ?", id).
		Update("last_modified", at).Error
}

// GetBook retrieves a research book.
func (s *GormStore) GetBook(ctx context.Context, id int64) (domain.ResearchBook, bool, error) {
	var model ResearchBookModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ResearchBook{}, false, nil
		}
		return domain.ResearchBook{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks returns all research books ordered by id.
func (s *GormStore) ListBooks(ctx context.Context) ([]domain.ResearchBook, error) {
	return s.listBooks(ctx)
}

// ListBooksByOwner returns books filtered by owner.
func (s *GormStore) ListBooksByOwner(ctx context.Context, ownerID string) ([]domain.ResearchBook, error) {
	return s.listBooks(ctx, "user_id = ?", ownerID)
}

// ListBooksSharedWith returns books the user holds a share grant for.
func (s *GormStore) ListBooksSharedWith(ctx context.Context, userID string) ([]domain.ResearchBook, error) {
	return s.listBooks(ctx,
		"id IN (?)",
		s.db.Model(&ResearchBookShareModel{}).Select("research_book_id").Where("user_id = ?", userID),
	)
}

func (s *GormStore) listBooks(ctx context.Context, conds ...any) ([]domain.ResearchBook, error) {
	var models []ResearchBookModel
	tx := s.db.WithContext(ctx).Order("id ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ResearchBook, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// DeleteBook removes a book with its legal information and share grants.
func (s *GormStore) DeleteBook(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&LegalInformationModel{}, "research_book_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ResearchBookShareModel{}, "research_book_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&ResearchBookModel{}, "id = ?", id).Error
	})
}

// CreateLegalInformation inserts an item and sets its generated ID.
func (s *GormStore) CreateLegalInformation(ctx context.Context, li *domain.LegalInformation) error {
	model := legalInformationToModel(*li)
	model.ID = 0
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	li.ID = model.ID
	return nil
}

// UpdateLegalInformation overwrites the stored item.
func (s *GormStore) UpdateLegalInformation(ctx context.Context, li domain.LegalInformation) error {
	model := legalInformationToModel(li)
	return s.db.WithContext(ctx).Model(&LegalInformationModel{}).
		Where("id = ? AND research_book_id = ?", li.ID, li.ResearchBookID).
		Updates(map[string]any{
			"type":            model.Type,
			"title":           model.Title,
			"description":     model.Description,
			"document":        model.Document,
			"date_added":      model.DateAdded,
			"attachment_key":  model.AttachmentKey,
			"attachment_name": model.AttachmentName,
			"attachment_type": model.AttachmentType,
			"attachment_size": model.AttachmentSize,
		}).Error
}

// GetLegalInformation returns one item of a book.
func (s *GormStore) GetLegalInformation(ctx context.Context, bookID, id int64) (domain.LegalInformation, bool, error) {
	var model LegalInformationModel
	if err := s.db.WithContext(ctx).First(&model, "id = ? AND research_book_id = ?", id, bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LegalInformation{}, false, nil
		}
		return domain.LegalInformation{}, false, err
	}
	return legalInformationFromModel(model), true, nil
}

// ListLegalInformation returns the items of one book.
func (s *GormStore) ListLegalInformation(ctx context.Context, bookID int64) ([]domain.LegalInformation, error) {
	return s.listLegalInformation(s.db.WithContext(ctx).Where("research_book_id = ?", bookID))
}

// ListAllLegalInformation returns every item across all books.
func (s *GormStore) ListAllLegalInformation(ctx context.Context) ([]domain.LegalInformation, error) {
	return s.listLegalInformation(s.db.WithContext(ctx))
}

// FindLegalInformation filters items across all books. Empty criteria fields are ignored.
func (s *GormStore) FindLegalInformation(ctx context.Context, c domain.SearchCriteria) ([]domain.LegalInformation, error) {
	tx := s.db.WithContext(ctx)
	if c.DocumentType != "" {
		tx = tx.Where("type = ?", c.DocumentType)
	}
	if c.Title != "" {
		tx = tx.Where("title = ?", c.Title)
	}
	if c.Date != nil {
		y, m, d := c.Date.UTC().Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		tx = tx.Where("date_added >= ? AND date_added < ?", start, start.AddDate(0, 0, 1))
	}
	return s.listLegalInformation(tx)
}

func (s *GormStore) listLegalInformation(tx *gorm.DB) ([]domain.LegalInformation, error) {
	var models []LegalInformationModel
	if err := tx.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.LegalInformation, 0, len(models))
	for _, m := range models {
		res = append(res, legalInformationFromModel(m))
	}
	return res, nil
}

// DeleteLegalInformation removes one item of a book.
func (s *GormStore) DeleteLegalInformation(ctx context.Context, bookID, id int64) error {
	return s.db.WithContext(ctx).Delete(&LegalInformationModel{}, "id = ? AND research_book_id = ?", id, bookID).Error
}

// ListShares returns the grants of a book.
func (s *GormStore) ListShares(ctx context.Context, bookID int64) ([]domain.ResearchBookShare, error) {
	var models []ResearchBookShareModel
	if err := s.db.WithContext(ctx).Where("research_book_id = ?", bookID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ResearchBookShare, 0, len(models))
	for _, m := range models {
		res = append(res, shareFromModel(m))
	}
	return res, nil
}

// HasShare reports whether userID already holds a grant for the book.
func (s *GormStore) HasShare(ctx context.Context, bookID int64, userID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&ResearchBookShareModel{}).
		Where("research_book_id = ? AND user_id = ?", bookID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateShares persists all grants in one transaction. Existing grants are left untouched.
func (s *GormStore) CreateShares(ctx context.Context, shares []domain.ResearchBookShare) error {
	if len(shares) == 0 {
		return nil
	}
	models := make([]ResearchBookShareModel, 0, len(shares))
	for _, sh := range shares {
		models = append(models, ResearchBookShareModel{UserID: sh.UserID, ResearchBookID: sh.ResearchBookID})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&models, shareBatchSize).Error
	})
}

// AppendChatHistory records a search query.
func (s *GormStore) AppendChatHistory(ctx context.Context, h *domain.ChatHistory) error {
	model := chatHistoryToModel(*h)
	model.ID = 0
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	h.ID = model.ID
	return nil
}

// ListChatHistory returns a user's most recent queries, newest first.
func (s *GormStore) ListChatHistory(ctx context.Context, userID string, limit int) ([]domain.ChatHistory, error) {
	if limit <= 0 {
		return []domain.ChatHistory{}, nil
	}
	var models []ChatHistoryModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("date_time DESC").
		Order("id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ChatHistory, 0, len(models))
	for _, m := range models {
		res = append(res, chatHistoryFromModel(m))
	}
	return res, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Organization:   u.Organization,
		ContactDetails: u.ContactDetails,
		PasswordHash:   u.PasswordHash,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:             m.ID,
		Email:          m.Email,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		Organization:   m.Organization,
		ContactDetails: m.ContactDetails,
		PasswordHash:   m.PasswordHash,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func bookToModel(b domain.ResearchBook) ResearchBookModel {
	return ResearchBookModel{
		ID:           b.ID,
		Name:         b.Name,
		UserID:       b.UserID,
		DateCreated:  b.DateCreated,
		LastModified: b.LastModified,
	}
}

func bookFromModel(m ResearchBookModel) domain.ResearchBook {
	return domain.ResearchBook{
		ID:           m.ID,
		Name:         m.Name,
		UserID:       m.UserID,
		DateCreated:  m.DateCreated,
		LastModified: m.LastModified,
	}
}

func legalInformationToModel(li domain.LegalInformation) LegalInformationModel {
	var document *string
	if li.Document != "" {
		value := li.Document
		document = &value
	}
	return LegalInformationModel{
		ID:             li.ID,
		ResearchBookID: li.ResearchBookID,
		Type:           li.Type,
		Title:          li.Title,
		Description:    li.Description,
		Document:       document,
		DateAdded:      li.DateAdded,
		AttachmentKey:  li.AttachmentKey,
		AttachmentName: li.AttachmentName,
		AttachmentType: li.AttachmentType,
		AttachmentSize: li.AttachmentSize,
	}
}

func legalInformationFromModel(m LegalInformationModel) domain.LegalInformation {
	document := ""
	if m.Document != nil {
		document = *m.Document
	}
	return domain.LegalInformation{
		ID:             m.ID,
		ResearchBookID: m.ResearchBookID,
		Type:           m.Type,
		Title:          m.Title,
		Description:    m.Description,
		Document:       document,
		DateAdded:      m.DateAdded,
		AttachmentKey:  m.AttachmentKey,
		AttachmentName: m.AttachmentName,
		AttachmentType: m.AttachmentType,
		AttachmentSize: m.AttachmentSize,
	}
}

func shareFromModel(m ResearchBookShareModel) domain.ResearchBookShare {
	return domain.ResearchBookShare{
		ID:             m.ID,
		UserID:         m.UserID,
		ResearchBookID: m.ResearchBookID,
	}
}

func chatHistoryToModel(h domain.ChatHistory) ChatHistoryModel {
	matches, _ := json.Marshal(h.Matches)
	return ChatHistoryModel{
		ID:       h.ID,
		UserID:   h.UserID,
		Message:  h.Message,
		DateTime: h.DateTime,
		Matches:  matches,
	}
}

func chatHistoryFromModel(m ChatHistoryModel) domain.ChatHistory {
	var matches domain.SearchMatches
	if len(m.Matches) > 0 {
		_ = json.Unmarshal(m.Matches, &matches)
	}
	return domain.ChatHistory{
		ID:       m.ID,
		UserID:   m.UserID,
		Message:  m.Message,
		DateTime: m.DateTime,
		Matches:  matches,
	}
}
