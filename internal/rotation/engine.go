// Package rotation implements the capacity-aware waiting-list and
// slot-reallocation engine: given a date and the groups rostered to attend,
// it restores displaced children when capacity frees up and assigns waiting
// children to free seats, keeping track of whose unused capacity each
// borrowed seat consumes.
package rotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/ms-slunicko/rotation-api/internal/models"
	"github.com/ms-slunicko/rotation-api/internal/notifier"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
	ErrNoAttendingGroups = errors.New("attending groups must not be empty")
)

// Move records one child gaining a slot during an engine run. Group is the
// group whose capacity the slot counts against; for a borrowed seat exactly
// one of FromChildID/FromGroup names the provenance.
type Move struct {
	ChildID     uint    `json:"child_id"`
	ChildName   string  `json:"child_name"`
	Group       string  `json:"group"`
	FromChildID *uint   `json:"from_child_id,omitempty"`
	FromGroup   *string `json:"from_group,omitempty"`
}

// Result partitions the children moved by one engine run.
type Result struct {
	// ReassignedToRegularSlots: children put back on their own group's
	// seat during the restoration pass.
	ReassignedToRegularSlots []Move `json:"reassigned_to_regular_slots"`
	// AssignedFromWaitingList: waiting children placed on a borrowed seat.
	AssignedFromWaitingList []Move `json:"assigned_from_waiting_list"`
	// ClearedStatuses: children whose exception row was deleted outright.
	ClearedStatuses []uint `json:"cleared_statuses"`
}

func (r *Result) Moves() []Move {
	moves := make([]Move, 0, len(r.ReassignedToRegularSlots)+len(r.AssignedFromWaitingList))
	moves = append(moves, r.ReassignedToRegularSlots...)
	moves = append(moves, r.AssignedFromWaitingList...)
	return moves
}

// Engine runs the reallocation passes against the shared store. It holds no
// locks of its own: callers must serialize runs per date (see DateLocks).
type Engine struct {
	db       *gorm.DB
	store    *Store
	notifier notifier.Notifier
}

func NewEngine(db *gorm.DB, n notifier.Notifier) *Engine {
	return &Engine{db: db, store: NewStore(db), notifier: n}
}

// Store exposes the attendance status store the engine writes through, for
// handlers that share it.
func (e *Engine) Store() *Store {
	return e.store
}

func validateRun(date string, attendingGroups []string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if len(attendingGroups) == 0 {
		return ErrNoAttendingGroups
	}
	return nil
}

// ProcessWaitingList runs the two reallocation passes for one date.
//
// Pass 1 (restoration) puts children whose own group is rostered again back
// on their own seat, never displacing a current occupant. Pass 2 assigns the
// remaining waiting children, urgent first, first-come-first-served within
// one urgency level, into the rostered groups in their listed order. Pass 2
// only starts once pass 1 is committed: its occupancy checks depend on the
// restorations. When the head of the queue cannot be placed anywhere the run
// stops instead of skipping ahead; queue order beats maximal fill.
//
// Every check re-reads occupancy from the store, so rerunning after a
// partial failure is safe.
func (e *Engine) ProcessWaitingList(date string, attendingGroups []string, actorID uint) (*Result, error) {
	if err := validateRun(date, attendingGroups); err != nil {
		return nil, err
	}

	res := &Result{}

	if err := e.restorationPass(date, attendingGroups, actorID, res); err != nil {
		return res, err
	}
	if err := e.assignmentPass(date, attendingGroups, actorID, res); err != nil {
		return res, err
	}

	return res, nil
}

func (e *Engine) restorationPass(date string, attendingGroups []string, actorID uint, res *Result) error {
	rows, err := e.store.ListQueue(date, models.StatusWaitingList, models.StatusAttending)
	if err != nil {
		return fmt.Errorf("restoration pass: %w", err)
	}

	for i := range rows {
		row := &rows[i]
		if !slices.Contains(attendingGroups, row.Child.AssignedGroup) {
			continue
		}
		// Only borrowed attending rows are restoration candidates; a plain
		// attending row has nothing to restore.
		if row.Status == models.StatusAttending && !row.HasProvenance() {
			continue
		}

		capacity, err := e.GroupCapacity(row.Child.AssignedGroup)
		if err != nil {
			return err
		}
		occupancy, err := e.groupOccupancyExcluding(date, row.Child.AssignedGroup, row.ChildID)
		if err != nil {
			return err
		}
		// No-preemption: a full group stays full, the candidate stays queued.
		if occupancy >= capacity {
			continue
		}

		oldStatus := row.Status
		if row.Status == models.StatusWaitingList {
			if err := e.store.Delete(row.ChildID, date); err != nil {
				return fmt.Errorf("restoration pass: %w", err)
			}
			if err := e.repointBorrowers(date, row.ChildID, row.Child.AssignedGroup, actorID); err != nil {
				return fmt.Errorf("restoration pass: %w", err)
			}
			res.ClearedStatuses = append(res.ClearedStatuses, row.ChildID)
		} else {
			err := e.db.Model(&models.AttendanceStatus{}).Where("id = ?", row.ID).
				Updates(map[string]interface{}{
					"occupied_slot_from_child_id": nil,
					"occupied_slot_from_group":    nil,
					"updated_by_user_id":          actorID,
				}).Error
			if err != nil {
				return fmt.Errorf("restoration pass: %w", err)
			}
		}

		res.ReassignedToRegularSlots = append(res.ReassignedToRegularSlots, Move{
			ChildID:   row.ChildID,
			ChildName: row.Child.Name,
			Group:     row.Child.AssignedGroup,
		})
		e.logActivity(models.EventRestoredFromWaiting, date, row.ChildID, actorID, map[string]interface{}{
			"child_name": row.Child.Name,
			"group":      row.Child.AssignedGroup,
			"old_status": oldStatus,
			"urgency":    row.UrgencyLevel,
		})
	}

	return nil
}

func (e *Engine) assignmentPass(date string, attendingGroups []string, actorID uint, res *Result) error {
	queue, err := e.store.ListQueue(date, models.StatusWaitingList)
	if err != nil {
		return fmt.Errorf("assignment pass: %w", err)
	}

	for i := range queue {
		row := &queue[i]
		if slices.Contains(attendingGroups, row.Child.AssignedGroup) {
			// Left queued by the restoration pass; their own group is full.
			continue
		}

		target := ""
		for _, group := range attendingGroups {
			capacity, err := e.GroupCapacity(group)
			if err != nil {
				return err
			}
			occupancy, err := e.GroupOccupancy(date, group)
			if err != nil {
				return err
			}
			if occupancy < capacity {
				target = group
				break
			}
		}
		if target == "" {
			// The head of the queue cannot be placed. Stop here: assigning a
			// later, lower-priority child instead would break the queue order.
			break
		}

		fromChildID, err := e.findDisplacedOccupant(date, target)
		if err != nil {
			return err
		}
		var fromGroup *string
		if fromChildID == nil {
			fromGroup = &target
		}

		err = e.db.Model(&models.AttendanceStatus{}).Where("id = ?", row.ID).
			Updates(map[string]interface{}{
				"status":                      models.StatusAttending,
				"occupied_slot_from_child_id": fromChildID,
				"occupied_slot_from_group":    fromGroup,
				"updated_by_user_id":          actorID,
			}).Error
		if err != nil {
			return fmt.Errorf("assignment pass: %w", err)
		}

		res.AssignedFromWaitingList = append(res.AssignedFromWaitingList, Move{
			ChildID:     row.ChildID,
			ChildName:   row.Child.Name,
			Group:       target,
			FromChildID: fromChildID,
			FromGroup:   fromGroup,
		})
		meta := map[string]interface{}{
			"child_name":        row.Child.Name,
			"assigned_to_group": target,
			"urgency":           row.UrgencyLevel,
		}
		if fromChildID != nil {
			meta["occupied_slot_from_child_id"] = *fromChildID
		}
		e.logActivity(models.EventAutoAssigned, date, row.ChildID, actorID, meta)
	}

	return nil
}

// findDisplacedOccupant picks the child in the target group whose unused
// seat a new occupant will be recorded against: someone from the target
// group who is waiting or gave up, is not already the provenance source of
// another occupant, preferring waiting over given-up, then earliest
// timestamp. Returns nil when the seat is genuinely free capacity.
func (e *Engine) findDisplacedOccupant(date, target string) (*uint, error) {
	var rows []models.AttendanceStatus
	err := e.db.Preload("Child").
		Where("date = ? AND status IN ?", date, []string{models.StatusWaitingList, models.StatusSlotGivenUp}).
		Order("CASE status WHEN 'waiting_list' THEN 0 ELSE 1 END, updated_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("displaced occupant lookup: %w", err)
	}

	taken, err := e.provenanceSources(date)
	if err != nil {
		return nil, err
	}

	for i := range rows {
		if rows[i].Child.AssignedGroup != target {
			continue
		}
		if taken[rows[i].ChildID] {
			continue
		}
		id := rows[i].ChildID
		return &id, nil
	}
	return nil, nil
}

// repointBorrowers re-targets any occupant whose provenance names a child
// who has just been restored to their own seat: the seat the borrower sits
// on still belongs to the restored child's group, so the reference moves to
// the group's next displaced occupant, or to the group itself when nobody
// is displaced. Without this a restored child would be recorded both as
// attending and as the source of a borrowed slot.
func (e *Engine) repointBorrowers(date string, restoredChildID uint, group string, actorID uint) error {
	var borrowers []models.AttendanceStatus
	err := e.db.
		Where("date = ? AND status = ? AND occupied_slot_from_child_id = ?", date, models.StatusAttending, restoredChildID).
		Find(&borrowers).Error
	if err != nil {
		return fmt.Errorf("borrower lookup: %w", err)
	}

	for i := range borrowers {
		fromChildID, err := e.findDisplacedOccupant(date, group)
		if err != nil {
			return err
		}
		var fromGroup *string
		if fromChildID == nil {
			fromGroup = &group
		}
		err = e.db.Model(&models.AttendanceStatus{}).Where("id = ?", borrowers[i].ID).
			Updates(map[string]interface{}{
				"occupied_slot_from_child_id": fromChildID,
				"occupied_slot_from_group":    fromGroup,
				"updated_by_user_id":          actorID,
			}).Error
		if err != nil {
			return fmt.Errorf("borrower repoint: %w", err)
		}
	}
	return nil
}

// provenanceSources returns the children already referenced as the slot
// source of some occupant on the date. At most one occupant per slot.
func (e *Engine) provenanceSources(date string) (map[uint]bool, error) {
	var rows []models.AttendanceStatus
	err := e.db.
		Where("date = ? AND status = ? AND occupied_slot_from_child_id IS NOT NULL", date, models.StatusAttending).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("provenance lookup: %w", err)
	}
	taken := make(map[uint]bool, len(rows))
	for i := range rows {
		taken[*rows[i].OccupiedSlotFromChildID] = true
	}
	return taken, nil
}

// logActivity appends an audit entry. The log is a write-only side effect:
// a failed write is logged and never fails the run.
func (e *Engine) logActivity(eventType, date string, childID, actorID uint, meta map[string]interface{}) {
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
	if err := e.db.Create(&entry).Error; err != nil {
		log.Printf("Failed to write activity log entry %s: %v", eventType, err)
	}
}
