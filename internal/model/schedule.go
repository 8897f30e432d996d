package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ScheduleEntry is one weekday of a doctor's recurring schedule.
// Day 0 is Sunday. Times are wall-clock "HH:MM:SS" strings, matching the
// TIME columns they come from.
type ScheduleEntry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	DoctorID       uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DayOfWeek      int       `db:"day_of_week" json:"day_of_week"`
	IsAvailable    bool      `db:"is_available" json:"is_available"`
	StartTime      string    `db:"start_time" json:"start_time"`
	EndTime        string    `db:"end_time" json:"end_time"`
	BreakStartTime *string   `db:"break_start_time" json:"break_start_time,omitempty"`
	BreakEndTime   *string   `db:"break_end_time" json:"break_end_time,omitempty"`
}

type UpdateScheduleEntryRequest struct {
	IsAvailable    *bool   `json:"is_available"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	BreakStartTime *string `json:"break_start_time"`
	BreakEndTime   *string `json:"break_end_time"`
}

type BulkScheduleUpdate struct {
	ID uuid.UUID `json:"id" binding:"required"`
	UpdateScheduleEntryRequest
}

// TimeSlot is a bookable interval within a single day.
type TimeSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// TimeOfDay is a wall-clock time used for slot arithmetic.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	var sec int
	n, err := fmt.Sscanf(s, "%d:%d:%d", &t.Hour, &t.Minute, &sec)
	if err != nil && n < 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q", s)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:00", t.Hour, t.Minute)
}

func (t TimeOfDay) Before(u TimeOfDay) bool {
	return t.Hour < u.Hour || (t.Hour == u.Hour && t.Minute < u.Minute)
}

// AddMinutes advances the clock, carrying minute overflow into the hour.
func (t TimeOfDay) AddMinutes(m int) TimeOfDay {
	t.Minute += m
	for t.Minute >= 60 {
		t.Minute -= 60
		t.Hour++
	}
	return t
}
