package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/events"
	"github.com/spec-kit/civic-report-service/internal/repository"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

type reportFixture struct {
	svc      *ReportService
	reports  *fakeReportRepository
	profiles *fakeProfileRepository
	bus      *recordingDispatcher
}

func newReportFixture() *reportFixture {
	reports := newFakeReportRepository()
	profiles := newFakeProfileRepository()
	bus := &recordingDispatcher{}
	svc := NewReportService(ReportDependencies{
		ReportRepo:  reports,
		ProfileRepo: profiles,
		HistoryRepo: newFakeHistoryRepository(),
		Dispatcher:  bus,
	})
	return &reportFixture{svc: svc, reports: reports, profiles: profiles, bus: bus}
}

func TestCreateReportDefaults(t *testing.T) {
	f := newReportFixture()
	reporterID := "reporter-1"

	report, err := f.svc.CreateReport(context.Background(), CreateReportInput{
		Category:    domain.CategoryStreetlight,
		Description: "  light out on Main St  ",
		ReporterID:  &reporterID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusSubmitted, report.Status)
	assert.Equal(t, domain.ReportPriorityMedium, report.Priority)
	assert.Equal(t, "light out on Main St", report.Description)
	assert.Nil(t, report.AssignedAgentID)

	published := f.bus.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventReportCreated, published[0].Type)
}

func TestCreateReportValidation(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	reporterID := "reporter-1"

	_, err := f.svc.CreateReport(ctx, CreateReportInput{Category: domain.CategoryTrash, ReporterID: &reporterID})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.svc.CreateReport(ctx, CreateReportInput{Category: "graffiti", Description: "tag on wall", ReporterID: &reporterID})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.svc.CreateReport(ctx, CreateReportInput{
		Category:    domain.CategoryWater,
		Description: "leak",
		ReporterID:  &reporterID,
		Location:    &domain.Location{Lat: 123.0, Lng: 0},
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestCreateReportAnonymousNeedsContact(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()

	_, err := f.svc.CreateReport(ctx, CreateReportInput{
		Category:    domain.CategorySidewalk,
		Description: "cracked slab",
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	contact := "walker@example.com"
	report, err := f.svc.CreateReport(ctx, CreateReportInput{
		Category:    domain.CategorySidewalk,
		Description: "cracked slab",
		Contact:     &contact,
	})
	require.NoError(t, err)
	assert.Nil(t, report.ReporterID)
	require.NotNil(t, report.Contact)
}

func TestReporterOwnership(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	owner := "reporter-1"
	report := f.reports.seed(domain.Report{
		Category:    domain.CategoryPothole,
		Description: "pothole",
		Status:      domain.ReportStatusSubmitted,
		ReporterID:  &owner,
	})

	got, err := f.svc.GetForReporter(ctx, report.ID, owner, "")
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)

	// A different reporter sees not found, not forbidden.
	_, err = f.svc.GetForReporter(ctx, report.ID, "reporter-2", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestAnonymousLookupByContact(t *testing.T) {
	f := newReportFixture()
	contact := "Walker@Example.com"
	report := f.reports.seed(domain.Report{
		Category:    domain.CategoryTraffic,
		Description: "broken signal",
		Status:      domain.ReportStatusSubmitted,
		Contact:     &contact,
	})

	got, err := f.svc.GetForReporter(context.Background(), report.ID, "", "walker@example.com")
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)
}

func TestGetForStaff(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	agentID := "agent-1"
	report := f.reports.seed(domain.Report{
		Category:        domain.CategoryWater,
		Description:     "hydrant leaking",
		Status:          domain.ReportStatusAssignedAgent,
		AssignedAgentID: &agentID,
	})

	_, err := f.svc.GetForStaff(ctx, report.ID, domain.RoleAdmin, "any-admin")
	require.NoError(t, err)

	_, err = f.svc.GetForStaff(ctx, report.ID, domain.RoleAgent, agentID)
	require.NoError(t, err)

	_, err = f.svc.GetForStaff(ctx, report.ID, domain.RoleAgent, "agent-2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestListForAgentFiltersByAssignment(t *testing.T) {
	f := newReportFixture()
	agentID := "agent-1"
	otherID := "agent-2"
	f.reports.seed(domain.Report{Category: domain.CategoryTrash, Description: "a", Status: domain.ReportStatusAssignedAgent, AssignedAgentID: &agentID})
	f.reports.seed(domain.Report{Category: domain.CategoryTrash, Description: "b", Status: domain.ReportStatusResolved, AssignedAgentID: &agentID})
	f.reports.seed(domain.Report{Category: domain.CategoryTrash, Description: "c", Status: domain.ReportStatusAssignedAgent, AssignedAgentID: &otherID})

	all, err := f.svc.ListForAgent(context.Background(), agentID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := f.svc.ListForAgent(context.Background(), agentID, []domain.ReportStatus{
		domain.ReportStatusAssignedAgent,
		domain.ReportStatusAgentReceived,
	})
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestListForAdminHidesStaleAssigned(t *testing.T) {
	f := newReportFixture()
	agentID := "agent-1"
	now := time.Now()

	fresh := f.reports.seed(domain.Report{
		Category:        domain.CategoryTrash,
		Description:     "assigned just now",
		Status:          domain.ReportStatusAssignedAgent,
		AssignedAgentID: &agentID,
		UpdatedAt:       now.Add(-10 * time.Minute),
	})
	f.reports.seed(domain.Report{
		Category:        domain.CategoryTrash,
		Description:     "assigned yesterday",
		Status:          domain.ReportStatusAssignedAgent,
		AssignedAgentID: &agentID,
		UpdatedAt:       now.Add(-24 * time.Hour),
	})
	untouched := f.reports.seed(domain.Report{
		Category:    domain.CategoryTrash,
		Description: "still waiting",
		Status:      domain.ReportStatusSubmitted,
		UpdatedAt:   now.Add(-48 * time.Hour),
	})

	cutoff := now.Add(-time.Hour)
	visible, err := f.svc.ListForAdmin(context.Background(), repository.ReportFilter{StaleAssignedBefore: &cutoff})
	require.NoError(t, err)
	require.Len(t, visible, 2)
	ids := map[string]bool{}
	for _, report := range visible {
		ids[report.ID] = true
	}
	assert.True(t, ids[fresh.ID])
	assert.True(t, ids[untouched.ID])

	all, err := f.svc.ListForAdmin(context.Background(), repository.ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListAgentsWithWorkload(t *testing.T) {
	f := newReportFixture()
	agent := f.profiles.seed(domain.Profile{Name: "Ray", Email: "ray@city.test", Role: domain.RoleAgent, Active: true})
	idle := f.profiles.seed(domain.Profile{Name: "Kim", Email: "kim@city.test", Role: domain.RoleAgent, Active: true})
	f.profiles.seed(domain.Profile{Name: "Old", Email: "old@city.test", Role: domain.RoleAgent, Active: false})
	f.profiles.seed(domain.Profile{Name: "Dana", Email: "dana@city.test", Role: domain.RoleAdmin, Active: true})

	f.reports.seed(domain.Report{Category: domain.CategoryOther, Description: "x", Status: domain.ReportStatusAssignedAgent, AssignedAgentID: &agent.ID})
	f.reports.seed(domain.Report{Category: domain.CategoryOther, Description: "y", Status: domain.ReportStatusResolved, AssignedAgentID: &agent.ID})

	summaries, err := f.svc.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	counts := map[string]int{}
	for _, s := range summaries {
		counts[s.Profile.ID] = s.OpenCount
	}
	assert.Equal(t, 1, counts[agent.ID])
	assert.Equal(t, 0, counts[idle.ID])
}
