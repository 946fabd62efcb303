package models

import (
	"gorm.io/gorm"
)

// Attendance statuses. The default state (attending with the child's own
// group) is represented by row absence, not by a status value. A row is
// deleted when a child returns to the default state.
const (
	StatusAttending   = "attending"
	StatusSlotGivenUp = "slot_given_up"
	StatusWaitingList = "waiting_list"
)

// Urgency levels for waiting-list entries. Urgent entries beat flexible
// ones regardless of arrival order. The tokens are chosen so that
// ORDER BY urgency_level DESC puts urgent first.
const (
	UrgencyUrgent   = "urgent"
	UrgencyFlexible = "flexible"
)

// AttendanceStatus is the per-(child, date) exception record.
//
// OccupiedSlotFromChildID and OccupiedSlotFromGroup are mutually exclusive
// provenance fields: an attending row with one of them set means the child
// is attending even though their own group is not rostered, borrowing the
// named child's (or group's) unused capacity. A waiting_list row never
// carries provenance.
//
// UpdatedAt doubles as the first-come-first-served tie-break key inside one
// urgency level.
type AttendanceStatus struct {
	gorm.Model
	ChildID                 uint    `json:"child_id" gorm:"uniqueIndex:idx_child_date"`
	Date                    string  `json:"date" gorm:"uniqueIndex:idx_child_date;index"`
	Status                  string  `json:"status"`
	UrgencyLevel            string  `json:"urgency_level"`
	ParentNote              string  `json:"parent_note"`
	OccupiedSlotFromChildID *uint   `json:"occupied_slot_from_child_id"`
	OccupiedSlotFromGroup   *string `json:"occupied_slot_from_group"`
	UpdatedByUserID         uint    `json:"updated_by_user_id"`
	Child                   Child   `json:"child"`
}

// HasProvenance reports whether the row borrows another slot.
func (a *AttendanceStatus) HasProvenance() bool {
	return a.OccupiedSlotFromChildID != nil || a.OccupiedSlotFromGroup != nil
}
