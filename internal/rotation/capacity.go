package rotation

import (
	"fmt"

	"github.com/ms-slunicko/rotation-api/internal/models"
)

// GroupCapacity is the number of children assigned to the group. Capacity
// is derived, never stored: every enrolled child is one seat of their group.
func (e *Engine) GroupCapacity(group string) (int, error) {
	var count int64
	err := e.db.Model(&models.Child{}).Where("assigned_group = ?", group).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("group capacity: %w", err)
	}
	return int(count), nil
}

// GroupOccupancy counts the children holding a slot attributable to the
// group on the date. A slot belongs to the group when the occupant sits on
// their own group's seat (no row, or a plain attending row), or when the
// occupant's provenance points at a child of the group or at the group
// itself. A row with provenance counts only toward the provenance group,
// so every borrowed seat is counted exactly once.
//
// Occupancy is recomputed from the store on every call; the engine never
// caches it across mutations.
func (e *Engine) GroupOccupancy(date, group string) (int, error) {
	return e.groupOccupancyExcluding(date, group, 0)
}

// groupOccupancyExcluding is GroupOccupancy with one child left out of the
// count, used when deciding whether that child itself fits.
func (e *Engine) groupOccupancyExcluding(date, group string, excludeChildID uint) (int, error) {
	var children []models.Child
	if err := e.db.Find(&children).Error; err != nil {
		return 0, fmt.Errorf("group occupancy: %w", err)
	}

	var rows []models.AttendanceStatus
	if err := e.db.Where("date = ?", date).Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("group occupancy: %w", err)
	}

	groupOf := make(map[uint]string, len(children))
	for i := range children {
		groupOf[children[i].ID] = children[i].AssignedGroup
	}
	rowOf := make(map[uint]*models.AttendanceStatus, len(rows))
	for i := range rows {
		rowOf[rows[i].ChildID] = &rows[i]
	}

	count := 0
	for i := range children {
		child := &children[i]
		if child.ID == excludeChildID {
			continue
		}
		row := rowOf[child.ID]
		switch {
		case row == nil:
			// Default state: attending on their own group's seat.
			if child.AssignedGroup == group {
				count++
			}
		case row.Status != models.StatusAttending:
			// Waiting or gave up: holds no slot.
		case row.OccupiedSlotFromChildID != nil:
			if groupOf[*row.OccupiedSlotFromChildID] == group {
				count++
			}
		case row.OccupiedSlotFromGroup != nil:
			if *row.OccupiedSlotFromGroup == group {
				count++
			}
		default:
			if child.AssignedGroup == group {
				count++
			}
		}
	}

	return count, nil
}
