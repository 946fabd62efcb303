package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Activity event types written by the engine and the handlers.
const (
	EventRestoredFromWaiting = "restored_from_waiting"
	EventAutoAssigned        = "auto_assigned"
	EventSlotGivenUp         = "slot_given_up"
	EventJoinedWaitingList   = "joined_waiting_list"
	EventWaitingCancelled    = "waiting_cancelled"
	EventScheduleUpdated     = "schedule_updated"
)

// ActivityLogEntry is the append-only audit trail of status transitions.
// Rows are never updated or deleted.
type ActivityLogEntry struct {
	gorm.Model
	EventType   string         `json:"event_type" gorm:"index"`
	Date        string         `json:"date" gorm:"index"`
	ChildID     *uint          `json:"child_id"`
	ActorUserID uint           `json:"actor_user_id"`
	Metadata    datatypes.JSON `json:"metadata"`
}
