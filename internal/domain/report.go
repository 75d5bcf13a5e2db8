package domain

import "time"

// ReportStatus enumerates lifecycle states for citizen reports. The five
// values form an ordered progression; see the workflow package for the
// transition rules.
type ReportStatus string

const (
	ReportStatusSubmitted     ReportStatus = "submitted"
	ReportStatusAdminReceived ReportStatus = "admin_received"
	ReportStatusAssignedAgent ReportStatus = "assigned_agent"
	ReportStatusAgentReceived ReportStatus = "agent_received"
	ReportStatusResolved      ReportStatus = "resolved"
)

// ReportCategory enumerates issue types a citizen can file.
type ReportCategory string

const (
	CategoryPothole     ReportCategory = "pothole"
	CategoryStreetlight ReportCategory = "streetlight"
	CategoryTrash       ReportCategory = "trash"
	CategoryTraffic     ReportCategory = "traffic"
	CategoryWater       ReportCategory = "water"
	CategorySidewalk    ReportCategory = "sidewalk"
	CategoryOther       ReportCategory = "other"
)

// ValidCategories lists every accepted category value.
var ValidCategories = []ReportCategory{
	CategoryPothole,
	CategoryStreetlight,
	CategoryTrash,
	CategoryTraffic,
	CategoryWater,
	CategorySidewalk,
	CategoryOther,
}

// IsValidCategory reports whether category is one of the accepted values.
func IsValidCategory(category ReportCategory) bool {
	for _, c := range ValidCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ReportPriority enumerates triage urgency.
type ReportPriority string

const (
	ReportPriorityLow    ReportPriority = "LOW"
	ReportPriorityMedium ReportPriority = "MEDIUM"
	ReportPriorityHigh   ReportPriority = "HIGH"
)

// IsValidPriority reports whether priority is one of the accepted values.
func IsValidPriority(priority ReportPriority) bool {
	switch priority {
	case ReportPriorityLow, ReportPriorityMedium, ReportPriorityHigh:
		return true
	}
	return false
}

// Location is an optional coordinate pair plus reverse-geocoded address
// captured at submission time.
type Location struct {
	Lat     float64
	Lng     float64
	Address string
}

// Report is the aggregate for citizen-submitted issues. Category,
// description, location, photo references and reporter identity are fixed
// at creation; status, priority and agent assignment mutate under the
// workflow rules.
type Report struct {
	ID              string
	Category        ReportCategory
	Description     string
	Priority        ReportPriority
	Location        *Location
	PhotoRefs       []string
	ReporterID      *string
	Contact         *string
	AssignedAgentID *string
	Status          ReportStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
