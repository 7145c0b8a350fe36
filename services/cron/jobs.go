package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/khagendra-rk/lms/model"
)

// overdueSample caps how many overdue copies are written to the log
const overdueSample = 20

// CleanupExpiredTokens removes blacklist entries for tokens that have expired anyway
func (m *CronManager) CleanupExpiredTokens(ctx context.Context) (string, error) {
	removed, err := m.blacklist.CleanupExpiredTokens(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to cleanup token blacklist: %w", err)
	}
	return fmt.Sprintf("Removed %d expired blacklist entries", removed), nil
}

// ReportOverdueBorrows logs open borrows issued more than overdueDays ago
func (m *CronManager) ReportOverdueBorrows(ctx context.Context) (string, error) {
	cutoff := m.now().Add(-time.Duration(m.overdueDays) * 24 * time.Hour)

	query := m.db.WithContext(ctx).Model(&model.Borrow{}).
		Where("returned_at IS NULL AND issued_at < ?", cutoff)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return "", fmt.Errorf("failed to count overdue borrows: %w", err)
	}
	if total == 0 {
		return "No overdue borrows", nil
	}

	var sample []model.Borrow
	if err := query.Preload("Index").Order("issued_at ASC").Limit(overdueSample).Find(&sample).Error; err != nil {
		return "", fmt.Errorf("failed to fetch overdue borrows: %w", err)
	}

	for _, b := range sample {
		label := fmt.Sprintf("index %d", b.IndexID)
		if b.Index != nil {
			label = b.Index.Label()
		}
		days := int(m.now().Sub(b.IssuedAt).Hours() / 24)
		log.Printf("[CRON] Overdue: borrow %d (%s) out for %d days", b.ID, label, days)
	}

	return fmt.Sprintf("%d borrows open for more than %d days", total, m.overdueDays), nil
}
