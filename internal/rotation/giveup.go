package rotation

import (
	"fmt"
	"slices"

	"github.com/ms-slunicko/rotation-api/internal/models"
)

// ProcessSlotGiveUp is the fast path run when a single child relinquishes a
// slot: instead of a full queue scan it offers the one freed seat to the
// highest-priority waiting child.
//
// Own-group seats beat borrowed ones: when the picked child's own group is
// rostered and has room, they are restored there instead of borrowing the
// freed seat. Otherwise they take the freed seat, and the provenance is
// inherited by tracing through the departing child's own provenance, so a
// chain of give-ups stays resolvable in one hop. This deliberately differs
// from ProcessWaitingList's assignment pass, which always searches fresh.
func (e *Engine) ProcessSlotGiveUp(date, freedGroup string, attendingGroups []string, childWhoGaveUp *models.Child, actorID uint) (*Result, error) {
	if err := validateRun(date, attendingGroups); err != nil {
		return nil, err
	}

	res := &Result{}

	capacity, err := e.GroupCapacity(freedGroup)
	if err != nil {
		return res, err
	}
	occupancy, err := e.GroupOccupancy(date, freedGroup)
	if err != nil {
		return res, err
	}
	if occupancy >= capacity {
		// Someone else already holds every seat.
		return res, nil
	}

	queue, err := e.store.ListQueue(date, models.StatusWaitingList)
	if err != nil {
		return res, err
	}
	if len(queue) == 0 {
		return res, nil
	}
	head := &queue[0]

	// Prefer the child's own seat over the freed one.
	if slices.Contains(attendingGroups, head.Child.AssignedGroup) {
		ownCapacity, err := e.GroupCapacity(head.Child.AssignedGroup)
		if err != nil {
			return res, err
		}
		ownOccupancy, err := e.groupOccupancyExcluding(date, head.Child.AssignedGroup, head.ChildID)
		if err != nil {
			return res, err
		}
		if ownOccupancy < ownCapacity {
			if err := e.store.Delete(head.ChildID, date); err != nil {
				return res, err
			}
			if err := e.repointBorrowers(date, head.ChildID, head.Child.AssignedGroup, actorID); err != nil {
				return res, err
			}
			res.ReassignedToRegularSlots = append(res.ReassignedToRegularSlots, Move{
				ChildID:   head.ChildID,
				ChildName: head.Child.Name,
				Group:     head.Child.AssignedGroup,
			})
			res.ClearedStatuses = append(res.ClearedStatuses, head.ChildID)
			e.logActivity(models.EventRestoredFromWaiting, date, head.ChildID, actorID, map[string]interface{}{
				"child_name": head.Child.Name,
				"group":      head.Child.AssignedGroup,
				"old_status": models.StatusWaitingList,
				"urgency":    head.UrgencyLevel,
			})
			return res, nil
		}
	}

	fromChildID, fromGroup, err := e.inheritProvenance(date, freedGroup, childWhoGaveUp)
	if err != nil {
		return res, err
	}

	err = e.db.Model(&models.AttendanceStatus{}).Where("id = ?", head.ID).
		Updates(map[string]interface{}{
			"status":                      models.StatusAttending,
			"occupied_slot_from_child_id": fromChildID,
			"occupied_slot_from_group":    fromGroup,
			"updated_by_user_id":          actorID,
		}).Error
	if err != nil {
		return res, fmt.Errorf("slot give-up: %w", err)
	}

	res.AssignedFromWaitingList = append(res.AssignedFromWaitingList, Move{
		ChildID:     head.ChildID,
		ChildName:   head.Child.Name,
		Group:       freedGroup,
		FromChildID: fromChildID,
		FromGroup:   fromGroup,
	})
	meta := map[string]interface{}{
		"child_name":        head.Child.Name,
		"assigned_to_group": freedGroup,
		"urgency":           head.UrgencyLevel,
	}
	if fromChildID != nil {
		meta["occupied_slot_from_child_id"] = *fromChildID
	}
	e.logActivity(models.EventAutoAssigned, date, head.ChildID, actorID, meta)

	return res, nil
}

// inheritProvenance decides whose capacity the new occupant of the freed
// seat is borrowing. When the departing child itself sat on a borrowed or
// free-group seat, the new occupant inherits that upstream provenance
// rather than pointing at the child who just left. Without a usable
// departing child it falls back to the same displaced-occupant search the
// assignment pass uses.
func (e *Engine) inheritProvenance(date, freedGroup string, childWhoGaveUp *models.Child) (*uint, *string, error) {
	if childWhoGaveUp != nil {
		row, err := e.store.Get(childWhoGaveUp.ID, date)
		if err != nil {
			return nil, nil, err
		}
		if row != nil && row.OccupiedSlotFromChildID != nil {
			id := *row.OccupiedSlotFromChildID
			return &id, nil, nil
		}
		if row != nil && row.OccupiedSlotFromGroup != nil {
			group := *row.OccupiedSlotFromGroup
			return nil, &group, nil
		}
		if childWhoGaveUp.AssignedGroup == freedGroup {
			id := childWhoGaveUp.ID
			return &id, nil, nil
		}
	}

	fromChildID, err := e.findDisplacedOccupant(date, freedGroup)
	if err != nil {
		return nil, nil, err
	}
	if fromChildID != nil {
		return fromChildID, nil, nil
	}
	group := freedGroup
	return nil, &group, nil
}
