package rotation

import (
	"fmt"
	"log"
	"sort"

	"github.com/ms-slunicko/rotation-api/internal/models"
)

// NotifyAssignments resolves the guardians of every child moved by a run,
// groups the moves per guardian and DMs each one localized message, then
// posts a summary to the staff channel. Dispatch is best-effort: failures
// are logged and swallowed, the committed assignments stand.
func (e *Engine) NotifyAssignments(date string, res *Result) {
	if e.notifier == nil {
		return
	}
	moves := res.Moves()
	if len(moves) == 0 {
		return
	}

	childIDs := make([]uint, 0, len(moves))
	for _, m := range moves {
		childIDs = append(childIDs, m.ChildID)
	}

	var links []models.GuardianLink
	err := e.db.Preload("User").Preload("Child").
		Where("child_id IN ?", childIDs).
		Find(&links).Error
	if err != nil {
		log.Printf("Failed to resolve guardians for notifications: %v", err)
		return
	}

	type digest struct {
		user  models.User
		names []string
	}
	perParent := make(map[uint]*digest)
	for i := range links {
		d, ok := perParent[links[i].UserID]
		if !ok {
			d = &digest{user: links[i].User}
			perParent[links[i].UserID] = d
		}
		d.names = append(d.names, links[i].Child.Name)
	}

	for _, d := range perParent {
		sort.Strings(d.names)
		message := AssignmentMessage(d.user.Language, date, d.names)
		if err := e.notifier.DirectMessage(d.user.DiscordID, message); err != nil {
			log.Printf("Failed to notify parent %d: %v", d.user.ID, err)
		}
	}

	names := make([]string, 0, len(moves))
	for _, m := range moves {
		names = append(names, m.ChildName)
	}
	sort.Strings(names)
	summary := fmt.Sprintf("Docházka %s: %s", date, joinNames(names, " a "))
	if err := e.notifier.Announce(summary); err != nil {
		log.Printf("Failed to announce assignments: %v", err)
	}
}
