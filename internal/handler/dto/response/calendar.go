package response

import (
	"time"

	"calendar-assistant/internal/usecase/queries"
)

type BusyBlockResponse struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	EventIDs []string  `json:"eventIds"`
}

type AvailabilityResponse struct {
	UserID  string              `json:"userId"`
	Window  WindowResponse      `json:"window"`
	Busy    []BusyBlockResponse `json:"busy"`
	Free    []WindowResponse    `json:"free"`
	TakenAt time.Time           `json:"takenAt"`
}

type WorkloadResponse struct {
	UserID             string  `json:"userId"`
	Meetings           int     `json:"meetings"`
	MeetingMinutes     int64   `json:"meetingMinutes"`
	BusinessDays       int     `json:"businessDays"`
	AvgMeetingsPerDay  float64 `json:"avgMeetingsPerDay"`
	AvgMeetingHoursDay float64 `json:"avgMeetingHoursPerDay"`
	Score              float64 `json:"score"`
	Status             string  `json:"status"`
}

type TeamWorkloadResponse struct {
	Window       WindowResponse     `json:"window"`
	Users        []WorkloadResponse `json:"users"`
	AverageScore float64            `json:"averageScore"`
	Overloaded   []string           `json:"overloaded"`
	Underloaded  []string           `json:"underloaded"`
}

type RefreshResponse struct {
	UserID  string         `json:"userId"`
	Window  WindowResponse `json:"window"`
	Events  int            `json:"events"`
	TakenAt time.Time      `json:"takenAt"`
}

type WebhookResponse struct {
	Event   string `json:"event"`
	Dropped int    `json:"dropped"`
}

func FromAvailabilityView(v *queries.AvailabilityView) *AvailabilityResponse {
	out := &AvailabilityResponse{
		UserID:  v.UserID,
		Window:  FromWindow(v.Window),
		Busy:    make([]BusyBlockResponse, len(v.Busy)),
		Free:    FromWindows(v.Free),
		TakenAt: v.TakenAt,
	}
	for i, b := range v.Busy {
		out.Busy[i] = BusyBlockResponse{From: b.Window.From, To: b.Window.To, EventIDs: b.EventIDs}
	}
	return out
}

func FromTeamWorkloadView(v *queries.TeamWorkloadView) *TeamWorkloadResponse {
	out := &TeamWorkloadResponse{
		Window:       FromWindow(v.Window),
		Users:        make([]WorkloadResponse, len(v.Users)),
		AverageScore: v.AverageScore,
		Overloaded:   v.Overloaded,
		Underloaded:  v.Underloaded,
	}
	for i, w := range v.Users {
		out.Users[i] = WorkloadResponse{
			UserID:             w.UserID,
			Meetings:           w.Meetings,
			MeetingMinutes:     int64(w.MeetingTime / time.Minute),
			BusinessDays:       w.BusinessDays,
			AvgMeetingsPerDay:  w.AvgMeetingsPerDay,
			AvgMeetingHoursDay: w.AvgMeetingHoursDay,
			Score:              w.Score,
			Status:             string(w.Status),
		}
	}
	return out
}
