package models

import (
	"strings"

	"gorm.io/gorm"
)

// DailySchedule holds the rotation for one calendar date. GroupOrder is the
// staff-chosen permutation of all group tokens; the first CapacityLimit
// entries are the groups attending that day.
type DailySchedule struct {
	gorm.Model
	Date          string `json:"date" gorm:"uniqueIndex"`
	GroupOrder    string `json:"group_order"`
	CapacityLimit int    `json:"capacity_limit"`
}

func (s *DailySchedule) Groups() []string {
	if s.GroupOrder == "" {
		return nil
	}
	return strings.Split(s.GroupOrder, ",")
}

func (s *DailySchedule) AttendingGroups() []string {
	groups := s.Groups()
	if s.CapacityLimit < len(groups) {
		groups = groups[:s.CapacityLimit]
	}
	return groups
}
