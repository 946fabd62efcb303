package handlers

import (
	"bytes"
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ms-slunicko/rotation-api/internal/models"
	"gorm.io/gorm"
)

func TestHandleUpsertSchedule_Validation(t *testing.T) {
	env := setupEnv(t)
	groups := []string{"A", "B", "C", "D"}
	handler := NewScheduleHandler(env.db, env.engine, env.locks, env.authHandler, groups)

	staff := env.createUser(t, "staff", true)
	authInput := env.cookieFor(t, staff.ID)

	t.Run("BadDate", func(t *testing.T) {
		req := &UpsertScheduleRequest{Date: "02.03.2026"}
		req.AuthInput = authInput
		req.Body.GroupOrder = groups
		req.Body.CapacityLimit = 2
		if _, err := handler.HandleUpsertSchedule(context.Background(), req); err == nil {
			t.Error("expected error for malformed date")
		}
	})

	t.Run("IncompleteGroupOrder", func(t *testing.T) {
		req := &UpsertScheduleRequest{Date: testDate}
		req.AuthInput = authInput
		req.Body.GroupOrder = []string{"A", "B"}
		req.Body.CapacityLimit = 1
		if _, err := handler.HandleUpsertSchedule(context.Background(), req); err == nil {
			t.Error("expected error for incomplete group order")
		}
	})

	t.Run("DuplicateGroup", func(t *testing.T) {
		req := &UpsertScheduleRequest{Date: testDate}
		req.AuthInput = authInput
		req.Body.GroupOrder = []string{"A", "A", "B", "C"}
		req.Body.CapacityLimit = 1
		if _, err := handler.HandleUpsertSchedule(context.Background(), req); err == nil {
			t.Error("expected error for duplicate group")
		}
	})

	t.Run("CapacityBeyondGroups", func(t *testing.T) {
		req := &UpsertScheduleRequest{Date: testDate}
		req.AuthInput = authInput
		req.Body.GroupOrder = groups
		req.Body.CapacityLimit = 5
		if _, err := handler.HandleUpsertSchedule(context.Background(), req); err == nil {
			t.Error("expected error for capacity beyond group count")
		}
	})

	t.Run("StaffOnly", func(t *testing.T) {
		parent := env.createUser(t, "parent", false)
		req := &UpsertScheduleRequest{Date: testDate}
		req.AuthInput = env.cookieFor(t, parent.ID)
		req.Body.GroupOrder = groups
		req.Body.CapacityLimit = 2
		if _, err := handler.HandleUpsertSchedule(context.Background(), req); err == nil {
			t.Error("expected error for non-staff caller")
		}
	})
}

// Widening the rotation restores a waiting child whose group is now
// rostered.
func TestHandleUpsertSchedule_TriggersRestoration(t *testing.T) {
	env := setupEnv(t)
	groups := []string{"A", "B", "C", "D"}
	handler := NewScheduleHandler(env.db, env.engine, env.locks, env.authHandler, groups)

	staff := env.createUser(t, "staff", true)
	env.createChild(t, "a1", "A", nil)
	d1 := env.createChild(t, "d1", "D", nil)

	waiting := models.AttendanceStatus{
		ChildID: d1.ID, Date: testDate,
		Status: models.StatusWaitingList, UrgencyLevel: models.UrgencyUrgent,
		Model: gorm.Model{CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now().Add(-time.Hour)},
	}
	env.db.Create(&waiting)

	req := &UpsertScheduleRequest{Date: testDate}
	req.AuthInput = env.cookieFor(t, staff.ID)
	req.Body.GroupOrder = []string{"A", "D", "B", "C"}
	req.Body.CapacityLimit = 2

	resp, err := handler.HandleUpsertSchedule(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleUpsertSchedule returned error: %v", err)
	}

	if len(resp.Body.ReassignedToRegularSlots) != 1 || resp.Body.ReassignedToRegularSlots[0].ChildID != d1.ID {
		t.Fatalf("expected d1 restored, got %+v", resp.Body)
	}
	var count int64
	env.db.Model(&models.AttendanceStatus{}).Where("child_id = ?", d1.ID).Count(&count)
	if count != 0 {
		t.Error("expected d1's waiting row deleted")
	}

	// Saving again with the same rotation is a no-op for the queue.
	resp, err = handler.HandleUpsertSchedule(context.Background(), req)
	if err != nil {
		t.Fatalf("second HandleUpsertSchedule returned error: %v", err)
	}
	if len(resp.Body.ReassignedToRegularSlots) != 0 || len(resp.Body.AssignedFromWaitingList) != 0 {
		t.Errorf("expected no further moves, got %+v", resp.Body)
	}

	var schedule models.DailySchedule
	if err := env.db.Where("date = ?", testDate).First(&schedule).Error; err != nil {
		t.Fatalf("expected schedule row: %v", err)
	}
	if schedule.GroupOrder != "A,D,B,C" || schedule.CapacityLimit != 2 {
		t.Errorf("unexpected schedule %+v", schedule)
	}
}

// A closed day (capacity limit 0) is a legitimate schedule: it saves
// cleanly and never runs the engine against an empty rotation.
func TestHandleUpsertSchedule_ZeroCapacity(t *testing.T) {
	env := setupEnv(t)
	groups := []string{"A", "B", "C", "D"}
	handler := NewScheduleHandler(env.db, env.engine, env.locks, env.authHandler, groups)

	staff := env.createUser(t, "staff", true)
	d1 := env.createChild(t, "d1", "D", nil)
	waiting := models.AttendanceStatus{
		ChildID: d1.ID, Date: testDate,
		Status: models.StatusWaitingList, UrgencyLevel: models.UrgencyUrgent,
	}
	env.db.Create(&waiting)

	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	req := &UpsertScheduleRequest{Date: testDate}
	req.AuthInput = env.cookieFor(t, staff.ID)
	req.Body.GroupOrder = groups
	req.Body.CapacityLimit = 0

	resp, err := handler.HandleUpsertSchedule(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleUpsertSchedule returned error: %v", err)
	}
	if len(resp.Body.AttendingGroups) != 0 {
		t.Errorf("expected no attending groups, got %v", resp.Body.AttendingGroups)
	}
	if len(resp.Body.ReassignedToRegularSlots) != 0 || len(resp.Body.AssignedFromWaitingList) != 0 {
		t.Errorf("expected no moves, got %+v", resp.Body)
	}
	if strings.Contains(logs.String(), "Waiting list processing failed") {
		t.Errorf("expected no engine failure logged, got %q", logs.String())
	}

	var row models.AttendanceStatus
	if err := env.db.Where("child_id = ? AND date = ?", d1.ID, testDate).First(&row).Error; err != nil {
		t.Fatalf("expected d1's waiting row kept: %v", err)
	}
	if row.Status != models.StatusWaitingList {
		t.Errorf("expected d1 still waiting, got %s", row.Status)
	}
}

func TestHandleGetSchedule(t *testing.T) {
	env := setupEnv(t)
	groups := []string{"A", "B", "C", "D"}
	handler := NewScheduleHandler(env.db, env.engine, env.locks, env.authHandler, groups)

	staff := env.createUser(t, "staff", true)
	env.createChild(t, "a1", "A", nil)
	env.createChild(t, "a2", "A", nil)
	env.createSchedule(t, "A,B,C,D", 1)

	req := &GetScheduleRequest{Date: testDate}
	req.AuthInput = env.cookieFor(t, staff.ID)

	resp, err := handler.HandleGetSchedule(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleGetSchedule returned error: %v", err)
	}

	if len(resp.Body.AttendingGroups) != 1 || resp.Body.AttendingGroups[0] != "A" {
		t.Errorf("expected only A attending, got %v", resp.Body.AttendingGroups)
	}
	if len(resp.Body.Groups) != 4 {
		t.Fatalf("expected 4 group overviews, got %d", len(resp.Body.Groups))
	}
	a := resp.Body.Groups[0]
	if a.Group != "A" || !a.Attending || a.Capacity != 2 || a.Occupancy != 2 {
		t.Errorf("unexpected overview for A: %+v", a)
	}

	t.Run("MissingDate", func(t *testing.T) {
		req := &GetScheduleRequest{Date: "2026-03-03"}
		req.AuthInput = env.cookieFor(t, staff.ID)
		if _, err := handler.HandleGetSchedule(context.Background(), req); err == nil {
			t.Error("expected error for missing schedule")
		}
	})
}
