package handlers

import (
	"context"
	"encoding/json"
	"log"
	"slices"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ms-slunicko/rotation-api/internal/auth"
	"github.com/ms-slunicko/rotation-api/internal/models"
	"github.com/ms-slunicko/rotation-api/internal/rotation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttendanceHandler struct {
	db          *gorm.DB
	engine      *rotation.Engine
	locks       *rotation.DateLocks
	authHandler *auth.AuthHandler
}

func NewAttendanceHandler(db *gorm.DB, engine *rotation.Engine, locks *rotation.DateLocks, authHandler *auth.AuthHandler) *AttendanceHandler {
	return &AttendanceHandler{db: db, engine: engine, locks: locks, authHandler: authHandler}
}

// guardedChild loads the child and checks the caller may act for it:
// a linked guardian or staff.
func (h *AttendanceHandler) guardedChild(userID, childID uint) (*models.Child, error) {
	var child models.Child
	if err := h.db.First(&child, childID).Error; err != nil {
		return nil, huma.Error404NotFound("Child not found")
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		return nil, huma.Error404NotFound("User not found")
	}
	if user.IsStaff {
		return &child, nil
	}

	var count int64
	h.db.Model(&models.GuardianLink{}).
		Where("user_id = ? AND child_id = ?", userID, childID).
		Count(&count)
	if count == 0 {
		return nil, huma.Error403Forbidden("Access denied: not a guardian of this child")
	}
	return &child, nil
}

func (h *AttendanceHandler) scheduleFor(date string) (*models.DailySchedule, error) {
	var schedule models.DailySchedule
	if err := h.db.Where("date = ?", date).First(&schedule).Error; err != nil {
		return nil, huma.Error404NotFound("No schedule for date " + date)
	}
	return &schedule, nil
}

func (h *AttendanceHandler) logTransition(eventType, date string, childID, actorID uint, meta map[string]interface{}) {
	payload, err := json.Marshal(meta)
	if err != nil {
		payload = []byte("{}")
	}
	entry := models.ActivityLogEntry{
		EventType:   eventType,
		Date:        date,
		ChildID:     &childID,
		ActorUserID: actorID,
		Metadata:    datatypes.JSON(payload),
	}
	if err := h.db.Create(&entry).Error; err != nil {
		log.Printf("Failed to log %s: %v", eventType, err)
	}
}

type GiveUpRequest struct {
	auth.AuthInput
	Date string `path:"date" doc:"Calendar date, YYYY-MM-DD"`
	Body struct {
		ChildID uint   `json:"child_id" required:"true"`
		Note    string `json:"note" doc:"Optional note from the parent"`
	}
}

type GiveUpResponse struct {
	Body struct {
		Message                 string          `json:"message"`
		AssignedFromWaitingList []rotation.Move `json:"assigned_from_waiting_list"`
	}
}

// HandleGiveUp marks a child's slot as given up, then offers the freed seat
// to the waiting list. The give-up itself succeeds or fails on its own
// write; a failure of the follow-up reallocation run is logged, never
// surfaced.
func (h *AttendanceHandler) HandleGiveUp(ctx context.Context, input *GiveUpRequest) (*GiveUpResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	schedule, err := h.scheduleFor(input.Date)
	if err != nil {
		return nil, err
	}
	child, err := h.guardedChild(userID, input.Body.ChildID)
	if err != nil {
		return nil, err
	}

	attending := schedule.AttendingGroups()
	store := h.engine.Store()

	current, err := store.Get(child.ID, input.Date)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read attendance")
	}

	// Work out which group's seat is being freed before the row changes.
	freedGroup := child.AssignedGroup
	oldStatus := ""
	switch {
	case current == nil:
		if !slices.Contains(attending, child.AssignedGroup) {
			return nil, huma.Error400BadRequest("Child holds no slot on this date")
		}
	case current.Status == models.StatusWaitingList:
		return nil, huma.Error400BadRequest("Child is on the waiting list; cancel the entry instead")
	case current.Status == models.StatusSlotGivenUp:
		return nil, huma.Error400BadRequest("Slot already given up")
	default:
		oldStatus = current.Status
		if current.OccupiedSlotFromChildID != nil {
			var provider models.Child
			if err := h.db.First(&provider, *current.OccupiedSlotFromChildID).Error; err == nil {
				freedGroup = provider.AssignedGroup
			} else {
				log.Printf("Failed to resolve provenance child %d for child %d on %s, treating %s as freed: %v",
					*current.OccupiedSlotFromChildID, child.ID, input.Date, freedGroup, err)
			}
		} else if current.OccupiedSlotFromGroup != nil {
			freedGroup = *current.OccupiedSlotFromGroup
		}
	}

	// Provenance fields are kept on the row: the reallocation fast path
	// traces through them to inherit the upstream slot owner.
	_, err = store.Upsert(child.ID, input.Date, func(row *models.AttendanceStatus) {
		row.Status = models.StatusSlotGivenUp
		row.UrgencyLevel = ""
		row.ParentNote = input.Body.Note
		row.UpdatedByUserID = userID
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to give up slot")
	}

	h.logTransition(models.EventSlotGivenUp, input.Date, child.ID, userID, map[string]interface{}{
		"child_name":  child.Name,
		"freed_group": freedGroup,
		"old_status":  oldStatus,
		"note":        input.Body.Note,
	})

	var result *rotation.Result
	if len(attending) > 0 {
		unlock := h.locks.Lock(input.Date)
		result, err = h.engine.ProcessSlotGiveUp(input.Date, freedGroup, attending, child, userID)
		unlock()
		if err != nil {
			log.Printf("Slot give-up processing failed for %s: %v", input.Date, err)
		}
		if result != nil {
			h.engine.NotifyAssignments(input.Date, result)
		}
	}

	res := &GiveUpResponse{}
	res.Body.Message = "Slot given up"
	if result != nil {
		res.Body.AssignedFromWaitingList = result.AssignedFromWaitingList
	}
	return res, nil
}

type JoinWaitingListRequest struct {
	auth.AuthInput
	Date string `path:"date" doc:"Calendar date, YYYY-MM-DD"`
	Body struct {
		ChildID uint   `json:"child_id" required:"true"`
		Urgency string `json:"urgency" enum:"urgent,flexible" doc:"urgent entries beat flexible ones regardless of arrival order" required:"true"`
		Note    string `json:"note" doc:"Optional note from the parent"`
	}
}

type JoinWaitingListResponse struct {
	Body struct {
		Message                  string          `json:"message"`
		ReassignedToRegularSlots []rotation.Move `json:"reassigned_to_regular_slots"`
		AssignedFromWaitingList  []rotation.Move `json:"assigned_from_waiting_list"`
	}
}

func (h *AttendanceHandler) HandleJoinWaitingList(ctx context.Context, input *JoinWaitingListRequest) (*JoinWaitingListResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if input.Body.Urgency != models.UrgencyUrgent && input.Body.Urgency != models.UrgencyFlexible {
		return nil, huma.Error400BadRequest("Urgency must be urgent or flexible")
	}
	schedule, err := h.scheduleFor(input.Date)
	if err != nil {
		return nil, err
	}
	child, err := h.guardedChild(userID, input.Body.ChildID)
	if err != nil {
		return nil, err
	}

	attending := schedule.AttendingGroups()
	store := h.engine.Store()

	current, err := store.Get(child.ID, input.Date)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read attendance")
	}
	if current == nil && slices.Contains(attending, child.AssignedGroup) {
		return nil, huma.Error400BadRequest("Child already has a regular slot on this date")
	}
	if current != nil && current.Status == models.StatusAttending {
		return nil, huma.Error400BadRequest("Child already holds a slot on this date")
	}

	_, err = store.Upsert(child.ID, input.Date, func(row *models.AttendanceStatus) {
		row.Status = models.StatusWaitingList
		row.UrgencyLevel = input.Body.Urgency
		row.ParentNote = input.Body.Note
		// A waiting-list row never carries provenance.
		row.OccupiedSlotFromChildID = nil
		row.OccupiedSlotFromGroup = nil
		row.UpdatedByUserID = userID
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to join waiting list")
	}

	h.logTransition(models.EventJoinedWaitingList, input.Date, child.ID, userID, map[string]interface{}{
		"child_name": child.Name,
		"urgency":    input.Body.Urgency,
		"note":       input.Body.Note,
	})

	var result *rotation.Result
	if len(attending) > 0 {
		unlock := h.locks.Lock(input.Date)
		result, err = h.engine.ProcessWaitingList(input.Date, attending, userID)
		unlock()
		if err != nil {
			log.Printf("Waiting list processing failed for %s: %v", input.Date, err)
		}
		if result != nil {
			h.engine.NotifyAssignments(input.Date, result)
		}
	}

	res := &JoinWaitingListResponse{}
	res.Body.Message = "Added to the waiting list"
	if result != nil {
		res.Body.ReassignedToRegularSlots = result.ReassignedToRegularSlots
		res.Body.AssignedFromWaitingList = result.AssignedFromWaitingList
	}
	return res, nil
}

type CancelWaitingRequest struct {
	auth.AuthInput
	Date    string `path:"date" doc:"Calendar date, YYYY-MM-DD"`
	ChildID uint   `path:"childId"`
}

func (h *AttendanceHandler) HandleCancelWaiting(ctx context.Context, input *CancelWaitingRequest) (*struct{}, error) {
	userID, err := h.authHandler.Authorize(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	child, err := h.guardedChild(userID, input.ChildID)
	if err != nil {
		return nil, err
	}

	store := h.engine.Store()
	current, err := store.Get(child.ID, input.Date)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read attendance")
	}
	if current == nil || current.Status != models.StatusWaitingList {
		return nil, huma.Error404NotFound("No waiting-list entry for this child and date")
	}

	if err := store.Delete(child.ID, input.Date); err != nil {
		return nil, huma.Error500InternalServerError("Failed to cancel waiting-list entry")
	}

	h.logTransition(models.EventWaitingCancelled, input.Date, child.ID, userID, map[string]interface{}{
		"child_name": child.Name,
		"urgency":    current.UrgencyLevel,
	})

	return nil, nil
}
