package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-report-service/internal/domain"
)

// ErrStaleStatus is returned when a conditional status write matched no
// row because the stored status no longer equals the expected value. The
// caller re-fetches and retries.
var ErrStaleStatus = errors.New("report status changed since read")

// ReportFilter captures listing parameters for admin and agent views.
// StaleAssignedBefore hides reports parked in assigned_agent whose last
// update predates the cutoff, keeping the triage queue focused on work
// an agent has not picked up recently.
type ReportFilter struct {
	ReporterID          *string
	Contact             *string
	AssignedAgentID     *string
	Categories          []domain.ReportCategory
	Statuses            []domain.ReportStatus
	StaleAssignedBefore *time.Time
	Limit               int
	Offset              int
}

// ReportRepository encapsulates report persistence. Status mutations are
// conditional on the previously read status so concurrent writers cannot
// silently overwrite each other.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	ListWithFilter(ctx context.Context, filter ReportFilter) ([]domain.Report, error)
	ListForReporter(ctx context.Context, reporterID, contact string) ([]domain.Report, error)
	UpdateStatus(ctx context.Context, id string, expected, next domain.ReportStatus) error
	UpdateAssignment(ctx context.Context, id string, expected domain.ReportStatus, agentID *string, next domain.ReportStatus) error
	UpdatePriority(ctx context.Context, id string, priority domain.ReportPriority) error
	CountOpenByAgent(ctx context.Context) (map[string]int, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

const reportColumns = `id, category, description, priority, lat, lng, address, photo_refs,
               reporter_id, contact, assigned_agent_id, status, created_at, updated_at`

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (category, description, priority, lat, lng, address, photo_refs, reporter_id, contact, assigned_agent_id, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	var lat, lng *float64
	var address *string
	if report.Location != nil {
		lat = &report.Location.Lat
		lng = &report.Location.Lng
		if report.Location.Address != "" {
			address = &report.Location.Address
		}
	}
	return r.pool.QueryRow(ctx, query,
		report.Category,
		report.Description,
		report.Priority,
		lat,
		lng,
		address,
		report.PhotoRefs,
		report.ReporterID,
		report.Contact,
		report.AssignedAgentID,
		report.Status,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE id=$1`, reportColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanReport(row)
}

func (r *reportRepository) UpdateStatus(ctx context.Context, id string, expected, next domain.ReportStatus) error {
	const query = `
        UPDATE reports SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, next, id, expected)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *reportRepository) UpdateAssignment(ctx context.Context, id string, expected domain.ReportStatus, agentID *string, next domain.ReportStatus) error {
	const query = `
        UPDATE reports SET assigned_agent_id=$1, status=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := r.pool.Exec(ctx, query, agentID, next, id, expected)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *reportRepository) UpdatePriority(ctx context.Context, id string, priority domain.ReportPriority) error {
	const query = `
        UPDATE reports SET priority=$1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, priority, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *reportRepository) ListForReporter(ctx context.Context, reporterID, contact string) ([]domain.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports
             WHERE reporter_id=$1 OR (contact IS NOT NULL AND LOWER(contact)=LOWER($2))
             ORDER BY created_at DESC`, reportColumns)
	rows, err := r.pool.Query(ctx, query, reporterID, contact)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReports(rows)
}

func (r *reportRepository) ListWithFilter(ctx context.Context, filter ReportFilter) ([]domain.Report, error) {
	base := fmt.Sprintf(`SELECT %s FROM reports`, reportColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("reporter_id=$%d", len(args)))
	}
	if filter.Contact != nil {
		args = append(args, *filter.Contact)
		clauses = append(clauses, fmt.Sprintf("LOWER(contact)=LOWER($%d)", len(args)))
	}
	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.StaleAssignedBefore != nil {
		args = append(args, *filter.StaleAssignedBefore)
		clauses = append(clauses, fmt.Sprintf("NOT (status='assigned_agent' AND updated_at < $%d)", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY category ASC, priority ASC, created_at ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReports(rows)
}

func (r *reportRepository) CountOpenByAgent(ctx context.Context) (map[string]int, error) {
	const query = `
        SELECT assigned_agent_id, COUNT(*) FROM reports
        WHERE assigned_agent_id IS NOT NULL AND status <> 'resolved'
        GROUP BY assigned_agent_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var agentID string
		var count int
		if err := rows.Scan(&agentID, &count); err != nil {
			return nil, err
		}
		counts[agentID] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var report domain.Report
	var lat, lng *float64
	var address *string
	if err := row.Scan(
		&report.ID,
		&report.Category,
		&report.Description,
		&report.Priority,
		&lat,
		&lng,
		&address,
		&report.PhotoRefs,
		&report.ReporterID,
		&report.Contact,
		&report.AssignedAgentID,
		&report.Status,
		&report.CreatedAt,
		&report.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		report.Location = &domain.Location{Lat: *lat, Lng: *lng}
		if address != nil {
			report.Location.Address = *address
		}
	}
	return &report, nil
}

func scanReports(rows pgx.Rows) ([]domain.Report, error) {
	var result []domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *report)
	}
	return result, rows.Err()
}
