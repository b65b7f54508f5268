package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"trade-ledger-go/internal/database"
	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/money"
)

// AuditRepository appends to the audit log. It has no update or delete.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates an AuditRepository bound to s.
func NewAuditRepository(s *database.Session) *AuditRepository {
	return &AuditRepository{db: s.DB()}
}

// Log appends e and returns its sequence number. The id on e is ignored.
func (r *AuditRepository) Log(ctx context.Context, e models.AuditEntry) (int64, error) {
	row, err := toAuditRow(e)
	if err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, storageError("append audit entry", err)
	}
	return row.ID, nil
}

// GetByEntity returns the newest entries describing one entity.
func (r *AuditRepository) GetByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditEntry, error) {
	q := r.db.WithContext(ctx).Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	return r.find(q, limit, "get audit entries by entity")
}

// GetRecent returns the newest entries.
func (r *AuditRepository) GetRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return r.find(r.db.WithContext(ctx), limit, "get recent audit entries")
}

// Sequence numbers follow insertion order, so id DESC is newest first even
// when two entries share a timestamp.
func (r *AuditRepository) find(q *gorm.DB, limit int, op string) ([]models.AuditEntry, error) {
	var rows []database.AuditRow
	if err := q.Order("id DESC").Limit(normalizeLimit(limit, defaultLimit)).Find(&rows).Error; err != nil {
		return nil, storageError(op, err)
	}
	return mapRows(rows, toAuditEntry)
}

func toAuditRow(e models.AuditEntry) (database.AuditRow, error) {
	if e.Action == "" || e.EntityType == "" {
		return database.AuditRow{}, fmt.Errorf("%w: audit entry needs an action and an entity type", models.ErrValidationFailed)
	}
	row := database.AuditRow{
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		CreatedAt:  stampOrNow(e.CreatedAt),
	}
	var err error
	if row.OldValue, err = rawText("old_value", e.OldValue); err != nil {
		return database.AuditRow{}, err
	}
	if row.NewValue, err = rawText("new_value", e.NewValue); err != nil {
		return database.AuditRow{}, err
	}
	if row.ExtraData, err = rawText("context", e.Context); err != nil {
		return database.AuditRow{}, err
	}
	return row, nil
}

func toAuditEntry(row database.AuditRow) (models.AuditEntry, error) {
	return models.AuditEntry{
		ID:         row.ID,
		Action:     row.Action,
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		OldValue:   rawJSON(row.OldValue),
		NewValue:   rawJSON(row.NewValue),
		Context:    rawJSON(row.ExtraData),
		CreatedAt:  row.CreatedAt.UTC(),
	}, nil
}

// rawText stores a snapshot verbatim. Empty snapshots are stored as NULL.
func rawText(field string, raw json.RawMessage) (*string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%s: %w: not valid JSON", field, money.ErrMalformedValue)
	}
	s := string(raw)
	return &s, nil
}

func rawJSON(s *string) json.RawMessage {
	if s == nil {
		return nil
	}
	return json.RawMessage(*s)
}
