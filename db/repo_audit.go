package db

import (
	"context"

	"Gin_postgres_redis_tool_tracker/models"
)

type AuditPage struct {
	Entries []models.AuditLog `json:"entries"`
	Total   int64             `json:"total"`
}

func (r *Repo) AddAudit(ctx context.Context, entry *models.AuditLog) error {
	if err := r.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return translate(err, "insert audit log")
	}
	return nil
}

func (r *Repo) ListAudit(ctx context.Context, page, size int) (*AuditPage, error) {
	page, size = normalizePage(page, size, 200)
	tx := r.DB.WithContext(ctx).Model(&models.AuditLog{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, translate(err, "count audit log")
	}
	var entries []models.AuditLog
	if err := tx.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&entries).Error; err != nil {
		return nil, translate(err, "list audit log")
	}
	return &AuditPage{Entries: entries, Total: total}, nil
}
