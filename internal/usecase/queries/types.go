package queries

import (
	"time"

	"calendar-assistant/internal/domain/calendar"
)

// BusyBlock is a maximal busy interval; overlapping events are merged.
type BusyBlock struct {
	Window   calendar.Window
	EventIDs []string
}

// AvailabilityView is the free/busy picture of one user. Free only covers
// working hours on business days.
type AvailabilityView struct {
	UserID  string
	Window  calendar.Window
	Busy    []BusyBlock
	Free    []calendar.Window
	TakenAt time.Time
}

type WorkloadStatus string

const (
	WorkloadLight      WorkloadStatus = "light"
	WorkloadBalanced   WorkloadStatus = "balanced"
	WorkloadHeavy      WorkloadStatus = "heavy"
	WorkloadOverloaded WorkloadStatus = "overloaded"
)

type WorkloadView struct {
	UserID             string
	Meetings           int
	MeetingTime        time.Duration
	BusinessDays       int
	AvgMeetingsPerDay  float64
	AvgMeetingHoursDay float64
	Score              float64
	Status             WorkloadStatus
}

// TeamWorkloadView aggregates WorkloadView over several users.
type TeamWorkloadView struct {
	Window       calendar.Window
	Users        []WorkloadView
	AverageScore float64
	Overloaded   []string
	Underloaded  []string
}
