package rotation

import (
	"testing"
	"time"

	"github.com/ms-slunicko/rotation-api/internal/models"
)

func TestStore_GetAbsentRow(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)

	row, err := store.Get(42, testDate)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if row != nil {
		t.Errorf("expected nil for absent row, got %+v", row)
	}
}

func TestStore_UpsertThenDelete(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	child := createChild(t, db, "a1", "A")

	_, err := store.Upsert(child.ID, testDate, func(row *models.AttendanceStatus) {
		row.Status = models.StatusWaitingList
		row.UrgencyLevel = models.UrgencyFlexible
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	// Second upsert mutates the same row instead of creating another.
	_, err = store.Upsert(child.ID, testDate, func(row *models.AttendanceStatus) {
		row.UrgencyLevel = models.UrgencyUrgent
	})
	if err != nil {
		t.Fatalf("second Upsert returned error: %v", err)
	}

	var count int64
	db.Model(&models.AttendanceStatus{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}

	row, err := store.Get(child.ID, testDate)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if row.UrgencyLevel != models.UrgencyUrgent {
		t.Errorf("expected urgency updated, got %s", row.UrgencyLevel)
	}

	if err := store.Delete(child.ID, testDate); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	row, _ = store.Get(child.ID, testDate)
	if row != nil {
		t.Error("expected row gone after delete")
	}

	// Deleting again is not an error, and a fresh row can reuse the
	// (child, date) slot.
	if err := store.Delete(child.ID, testDate); err != nil {
		t.Fatalf("repeat Delete returned error: %v", err)
	}
	if _, err := store.Upsert(child.ID, testDate, func(row *models.AttendanceStatus) {
		row.Status = models.StatusSlotGivenUp
	}); err != nil {
		t.Fatalf("Upsert after delete returned error: %v", err)
	}
}

func TestStore_ListQueueOrder(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)

	c1 := createChild(t, db, "c1", "C")
	c2 := createChild(t, db, "c2", "C")
	c3 := createChild(t, db, "c3", "C")

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	createRow(t, db, models.AttendanceStatus{
		ChildID: c1.ID, Status: models.StatusWaitingList, UrgencyLevel: models.UrgencyFlexible,
	}, base)
	createRow(t, db, models.AttendanceStatus{
		ChildID: c2.ID, Status: models.StatusWaitingList, UrgencyLevel: models.UrgencyUrgent,
	}, base.Add(2*time.Hour))
	createRow(t, db, models.AttendanceStatus{
		ChildID: c3.ID, Status: models.StatusWaitingList, UrgencyLevel: models.UrgencyUrgent,
	}, base.Add(time.Hour))

	rows, err := store.ListQueue(testDate, models.StatusWaitingList)
	if err != nil {
		t.Fatalf("ListQueue returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	// Urgent first, FIFO inside urgency, flexible last.
	wantOrder := []uint{c3.ID, c2.ID, c1.ID}
	for i, want := range wantOrder {
		if rows[i].ChildID != want {
			t.Errorf("position %d: expected child %d, got %d", i, want, rows[i].ChildID)
		}
	}
	if rows[0].Child.Name != "c3" {
		t.Errorf("expected Child preloaded, got %+v", rows[0].Child)
	}
}
