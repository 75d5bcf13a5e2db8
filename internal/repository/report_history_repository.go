package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-report-service/internal/domain"
)

// ReportHistoryRepository stores audit entries.
type ReportHistoryRepository interface {
	Create(ctx context.Context, history *domain.ReportHistory) error
	ListByReport(ctx context.Context, reportID string, limit, offset int) ([]domain.ReportHistory, error)
}

type reportHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewReportHistoryRepository builds repository.
func NewReportHistoryRepository(pool *pgxpool.Pool) ReportHistoryRepository {
	return &reportHistoryRepository{pool: pool}
}

func (r *reportHistoryRepository) Create(ctx context.Context, history *domain.ReportHistory) error {
	const query = `
        INSERT INTO report_history (report_id, changed_by, changed_role, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		history.ReportID,
		history.ChangedBy,
		history.ChangedRole,
		history.ChangeType,
		history.OldValue,
		history.NewValue,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *reportHistoryRepository) ListByReport(ctx context.Context, reportID string, limit, offset int) ([]domain.ReportHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, report_id, changed_by, changed_role, change_type, old_value, new_value, created_at
        FROM report_history WHERE report_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, reportID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ReportHistory
	for rows.Next() {
		var history domain.ReportHistory
		if err := rows.Scan(
			&history.ID,
			&history.ReportID,
			&history.ChangedBy,
			&history.ChangedRole,
			&history.ChangeType,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
