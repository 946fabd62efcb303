package rotation

import (
	"errors"
	"strings"
	"testing"

	"github.com/ms-slunicko/rotation-api/internal/models"
)

type fakeNotifier struct {
	dms           map[string][]string
	announcements []string
	fail          bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{dms: make(map[string][]string)}
}

func (f *fakeNotifier) DirectMessage(discordID string, message string) error {
	if f.fail {
		return errors.New("delivery failed")
	}
	f.dms[discordID] = append(f.dms[discordID], message)
	return nil
}

func (f *fakeNotifier) Announce(message string) error {
	if f.fail {
		return errors.New("delivery failed")
	}
	f.announcements = append(f.announcements, message)
	return nil
}

func TestNotifyAssignments_GroupsPerParent(t *testing.T) {
	db := setupDB(t)
	fake := newFakeNotifier()
	e := NewEngine(db, fake)

	parent := models.User{DiscordID: "parent-1", Language: "cs"}
	db.Create(&parent)
	other := models.User{DiscordID: "parent-2", Language: "en"}
	db.Create(&other)

	c1 := createChild(t, db, "Anička", "A")
	c2 := createChild(t, db, "Honzík", "B")
	db.Create(&models.GuardianLink{UserID: parent.ID, ChildID: c1.ID})
	db.Create(&models.GuardianLink{UserID: parent.ID, ChildID: c2.ID})
	db.Create(&models.GuardianLink{UserID: other.ID, ChildID: c2.ID})

	res := &Result{
		AssignedFromWaitingList: []Move{
			{ChildID: c1.ID, ChildName: "Anička", Group: "A"},
			{ChildID: c2.ID, ChildName: "Honzík", Group: "B"},
		},
	}
	e.NotifyAssignments(testDate, res)

	messages := fake.dms["parent-1"]
	if len(messages) != 1 {
		t.Fatalf("expected one combined DM for parent-1, got %d", len(messages))
	}
	if !strings.Contains(messages[0], "Anička a Honzík") {
		t.Errorf("expected czech message naming both children, got %q", messages[0])
	}

	otherMessages := fake.dms["parent-2"]
	if len(otherMessages) != 1 || !strings.Contains(otherMessages[0], "Honzík") {
		t.Errorf("expected english DM about Honzík for parent-2, got %v", otherMessages)
	}

	if len(fake.announcements) != 1 || !strings.Contains(fake.announcements[0], testDate) {
		t.Errorf("expected one staff announcement naming the date, got %v", fake.announcements)
	}
}

func TestNotifyAssignments_FailuresAreSwallowed(t *testing.T) {
	db := setupDB(t)
	fake := newFakeNotifier()
	fake.fail = true
	e := NewEngine(db, fake)

	parent := models.User{DiscordID: "parent-1", Language: "en"}
	db.Create(&parent)
	c1 := createChild(t, db, "Anna", "A")
	db.Create(&models.GuardianLink{UserID: parent.ID, ChildID: c1.ID})

	// Must not panic or roll anything back.
	e.NotifyAssignments(testDate, &Result{
		AssignedFromWaitingList: []Move{{ChildID: c1.ID, ChildName: "Anna", Group: "A"}},
	})
}

func TestNotifyAssignments_NoMovesNoQueries(t *testing.T) {
	db := setupDB(t)
	fake := newFakeNotifier()
	e := NewEngine(db, fake)

	e.NotifyAssignments(testDate, &Result{})
	if len(fake.dms) != 0 {
		t.Errorf("expected no DMs, got %v", fake.dms)
	}
}
