package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/events"
	"github.com/spec-kit/civic-report-service/internal/repository"
)

// fakeReportRepository is an in-memory ReportRepository that honors the
// same conditional-write contract as the Postgres implementation.
type fakeReportRepository struct {
	mu      sync.Mutex
	reports map[string]*domain.Report
}

func newFakeReportRepository() *fakeReportRepository {
	return &fakeReportRepository{reports: map[string]*domain.Report{}}
}

func (f *fakeReportRepository) Create(_ context.Context, report *domain.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	report.ID = uuid.NewString()
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	stored := *report
	f.reports[report.ID] = &stored
	return nil
}

func (f *fakeReportRepository) GetByID(_ context.Context, id string) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *report
	return &copied, nil
}

func (f *fakeReportRepository) ListWithFilter(_ context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Report
	for _, report := range f.reports {
		if filter.AssignedAgentID != nil {
			if report.AssignedAgentID == nil || *report.AssignedAgentID != *filter.AssignedAgentID {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, report.Status) {
			continue
		}
		if len(filter.Categories) > 0 && !containsCategory(filter.Categories, report.Category) {
			continue
		}
		if filter.StaleAssignedBefore != nil &&
			report.Status == domain.ReportStatusAssignedAgent &&
			report.UpdatedAt.Before(*filter.StaleAssignedBefore) {
			continue
		}
		result = append(result, *report)
	}
	return result, nil
}

func (f *fakeReportRepository) ListForReporter(_ context.Context, reporterID, contact string) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Report
	for _, report := range f.reports {
		if report.ReporterID != nil && reporterID != "" && *report.ReporterID == reporterID {
			result = append(result, *report)
			continue
		}
		if report.Contact != nil && contact != "" && strings.EqualFold(*report.Contact, contact) {
			result = append(result, *report)
		}
	}
	return result, nil
}

func (f *fakeReportRepository) UpdateStatus(_ context.Context, id string, expected, next domain.ReportStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[id]
	if !ok || report.Status != expected {
		return repository.ErrStaleStatus
	}
	report.Status = next
	report.UpdatedAt = time.Now()
	return nil
}

func (f *fakeReportRepository) UpdateAssignment(_ context.Context, id string, expected domain.ReportStatus, agentID *string, next domain.ReportStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[id]
	if !ok || report.Status != expected {
		return repository.ErrStaleStatus
	}
	report.AssignedAgentID = agentID
	report.Status = next
	report.UpdatedAt = time.Now()
	return nil
}

func (f *fakeReportRepository) UpdatePriority(_ context.Context, id string, priority domain.ReportPriority) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[id]
	if !ok {
		return pgx.ErrNoRows
	}
	report.Priority = priority
	report.UpdatedAt = time.Now()
	return nil
}

func (f *fakeReportRepository) CountOpenByAgent(_ context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, report := range f.reports {
		if report.AssignedAgentID != nil && report.Status != domain.ReportStatusResolved {
			counts[*report.AssignedAgentID]++
		}
	}
	return counts, nil
}

func (f *fakeReportRepository) seed(report domain.Report) *domain.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Priority == "" {
		report.Priority = domain.ReportPriorityMedium
	}
	stored := report
	f.reports[report.ID] = &stored
	return &stored
}

func containsStatus(statuses []domain.ReportStatus, status domain.ReportStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func containsCategory(categories []domain.ReportCategory, category domain.ReportCategory) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

// fakeProfileRepository is an in-memory ProfileRepository.
type fakeProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func newFakeProfileRepository() *fakeProfileRepository {
	return &fakeProfileRepository{profiles: map[string]*domain.Profile{}}
}

func (f *fakeProfileRepository) Create(_ context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile.ID = uuid.NewString()
	profile.CreatedAt = time.Now()
	profile.UpdatedAt = profile.CreatedAt
	stored := *profile
	f.profiles[profile.ID] = &stored
	return nil
}

func (f *fakeProfileRepository) Update(_ context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[profile.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *profile
	f.profiles[profile.ID] = &stored
	return nil
}

func (f *fakeProfileRepository) UpdateRole(_ context.Context, id string, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[id]
	if !ok {
		return pgx.ErrNoRows
	}
	profile.Role = role
	return nil
}

func (f *fakeProfileRepository) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *profile
	return &copied, nil
}

func (f *fakeProfileRepository) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, profile := range f.profiles {
		if strings.EqualFold(profile.Email, email) {
			copied := *profile
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeProfileRepository) List(_ context.Context, filter repository.ProfileFilter) ([]domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Profile
	for _, profile := range f.profiles {
		if filter.Role != nil && profile.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && profile.Active != *filter.Active {
			continue
		}
		result = append(result, *profile)
	}
	return result, nil
}

func (f *fakeProfileRepository) seed(profile domain.Profile) *domain.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	stored := profile
	f.profiles[profile.ID] = &stored
	return &stored
}

// fakeHistoryRepository records audit entries in memory.
type fakeHistoryRepository struct {
	mu      sync.Mutex
	entries []domain.ReportHistory
}

func newFakeHistoryRepository() *fakeHistoryRepository {
	return &fakeHistoryRepository{}
}

func (f *fakeHistoryRepository) Create(_ context.Context, history *domain.ReportHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	history.ID = uuid.NewString()
	history.CreatedAt = time.Now()
	f.entries = append(f.entries, *history)
	return nil
}

func (f *fakeHistoryRepository) ListByReport(_ context.Context, reportID string, _, _ int) ([]domain.ReportHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.ReportHistory
	for _, entry := range f.entries {
		if entry.ReportID == reportID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// fakePasswordResetRepository stores reset tokens in memory.
type fakePasswordResetRepository struct {
	mu     sync.Mutex
	tokens map[string]*repository.PasswordResetToken
}

func newFakePasswordResetRepository() *fakePasswordResetRepository {
	return &fakePasswordResetRepository{tokens: map[string]*repository.PasswordResetToken{}}
}

func (f *fakePasswordResetRepository) Create(_ context.Context, token *repository.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	stored := *token
	f.tokens[token.Token] = &stored
	return nil
}

func (f *fakePasswordResetRepository) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (f *fakePasswordResetRepository) MarkUsed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, token := range f.tokens {
		if token.ID == id {
			token.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.events...)
}
