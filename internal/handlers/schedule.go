package handlers

import (
	"context"
	"encoding/json"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ms-slunicko/rotation-api/internal/auth"
	"github.com/ms-slunicko/rotation-api/internal/models"
	"github.com/ms-slunicko/rotation-api/internal/rotation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ScheduleHandler struct {
	db          *gorm.DB
	engine      *rotation.Engine
	locks       *rotation.DateLocks
	authHandler *auth.AuthHandler
	groups      []string
}

func NewScheduleHandler(db *gorm.DB, engine *rotation.Engine, locks *rotation.DateLocks, authHandler *auth.AuthHandler, groups []string) *ScheduleHandler {
	return &ScheduleHandler{db: db, engine: engine, locks: locks, authHandler: authHandler, groups: groups}
}

type UpsertScheduleRequest struct {
	auth.AuthInput
	Date string `path:"date" doc:"Calendar date, YYYY-MM-DD"`
	Body struct {
		GroupOrder    []string `json:"group_order" doc:"Permutation of all groups; the first capacity_limit entries attend" required:"true"`
		CapacityLimit int      `json:"capacity_limit" doc:"How many groups from the front of group_order attend" minimum:"0" required:"true"`
	}
}

type UpsertScheduleResponse struct {
	Body struct {
		Message                  string          `json:"message"`
		AttendingGroups          []string        `json:"attending_groups"`
		ReassignedToRegularSlots []rotation.Move `json:"reassigned_to_regular_slots"`
		AssignedFromWaitingList  []rotation.Move `json:"assigned_from_waiting_list"`
	}
}

func (h *ScheduleHandler) HandleUpsertSchedule(ctx context.Context, input *UpsertScheduleRequest) (*UpsertScheduleResponse, error) {
	userID, err := h.authHandler.RequireStaff(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return nil, huma.Error400BadRequest("Invalid date, expected YYYY-MM-DD")
	}
	if err := h.validateGroupOrder(input.Body.GroupOrder); err != nil {
		return nil, err
	}
	if input.Body.CapacityLimit > len(input.Body.GroupOrder) {
		return nil, huma.Error400BadRequest("capacity_limit exceeds the number of groups")
	}

	var schedule models.DailySchedule
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.FirstOrInit(&schedule, models.DailySchedule{Date: input.Date}).Error; err != nil {
			return err
		}
		schedule.GroupOrder = strings.Join(input.Body.GroupOrder, ",")
		schedule.CapacityLimit = input.Body.CapacityLimit
		return tx.Save(&schedule).Error
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to save schedule")
	}

	h.logScheduleUpdate(input.Date, userID, &schedule)

	// The schedule write is the action; the reallocation run is a side
	// effect and its failure must not fail the update. With no attending
	// groups there is nothing to reallocate.
	var result *rotation.Result
	if attending := schedule.AttendingGroups(); len(attending) > 0 {
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

	res := &UpsertScheduleResponse{}
	res.Body.Message = "Schedule saved"
	res.Body.AttendingGroups = schedule.AttendingGroups()
	if result != nil {
		res.Body.ReassignedToRegularSlots = result.ReassignedToRegularSlots
		res.Body.AssignedFromWaitingList = result.AssignedFromWaitingList
	}
	return res, nil
}

func (h *ScheduleHandler) validateGroupOrder(order []string) error {
	if len(order) != len(h.groups) {
		return huma.Error400BadRequest("group_order must list every group exactly once")
	}
	seen := make(map[string]bool, len(order))
	for _, group := range order {
		if !slices.Contains(h.groups, group) {
			return huma.Error400BadRequest("Unknown group: " + group)
		}
		if seen[group] {
			return huma.Error400BadRequest("Duplicate group: " + group)
		}
		seen[group] = true
	}
	return nil
}

func (h *ScheduleHandler) logScheduleUpdate(date string, userID uint, schedule *models.DailySchedule) {
	payload, err := json.Marshal(map[string]interface{}{
		"group_order":    schedule.GroupOrder,
		"capacity_limit": schedule.CapacityLimit,
	})
	if err != nil {
		payload = []byte("{}")
	}
	entry := models.ActivityLogEntry{
		EventType:   models.EventScheduleUpdated,
		Date:        date,
		ActorUserID: userID,
		Metadata:    datatypes.JSON(payload),
	}
	if err := h.db.Create(&entry).Error; err != nil {
		log.Printf("Failed to log schedule update: %v", err)
	}
}

type GetScheduleRequest struct {
	auth.AuthInput
	Date string `path:"date" doc:"Calendar date, YYYY-MM-DD"`
}

type GroupOverview struct {
	Group     string `json:"group"`
	Attending bool   `json:"attending"`
	Capacity  int    `json:"capacity"`
	Occupancy int    `json:"occupancy"`
}

type DayStatusEntry struct {
	ChildID                 uint    `json:"child_id"`
	ChildName               string  `json:"child_name"`
	Status                  string  `json:"status"`
	UrgencyLevel            string  `json:"urgency_level,omitempty"`
	OccupiedSlotFromChildID *uint   `json:"occupied_slot_from_child_id,omitempty"`
	OccupiedSlotFromGroup   *string `json:"occupied_slot_from_group,omitempty"`
}

type GetScheduleResponse struct {
	Body struct {
		Date            string           `json:"date"`
		GroupOrder      []string         `json:"group_order"`
		CapacityLimit   int              `json:"capacity_limit"`
		AttendingGroups []string         `json:"attending_groups"`
		Groups          []GroupOverview  `json:"groups"`
		Statuses        []DayStatusEntry `json:"statuses"`
	}
}

func (h *ScheduleHandler) HandleGetSchedule(ctx context.Context, input *GetScheduleRequest) (*GetScheduleResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	var schedule models.DailySchedule
	if err := h.db.Where("date = ?", input.Date).First(&schedule).Error; err != nil {
		return nil, huma.Error404NotFound("No schedule for date " + input.Date)
	}

	attending := schedule.AttendingGroups()
	res := &GetScheduleResponse{}
	res.Body.Date = schedule.Date
	res.Body.GroupOrder = schedule.Groups()
	res.Body.CapacityLimit = schedule.CapacityLimit
	res.Body.AttendingGroups = attending

	for _, group := range schedule.Groups() {
		capacity, err := h.engine.GroupCapacity(group)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to compute capacity")
		}
		occupancy, err := h.engine.GroupOccupancy(input.Date, group)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to compute occupancy")
		}
		res.Body.Groups = append(res.Body.Groups, GroupOverview{
			Group:     group,
			Attending: slices.Contains(attending, group),
			Capacity:  capacity,
			Occupancy: occupancy,
		})
	}

	rows, err := h.engine.Store().ListQueue(input.Date,
		models.StatusAttending, models.StatusWaitingList, models.StatusSlotGivenUp)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list statuses")
	}
	for i := range rows {
		res.Body.Statuses = append(res.Body.Statuses, DayStatusEntry{
			ChildID:                 rows[i].ChildID,
			ChildName:               rows[i].Child.Name,
			Status:                  rows[i].Status,
			UrgencyLevel:            rows[i].UrgencyLevel,
			OccupiedSlotFromChildID: rows[i].OccupiedSlotFromChildID,
			OccupiedSlotFromGroup:   rows[i].OccupiedSlotFromGroup,
		})
	}

	return res, nil
}
