package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ms-slunicko/rotation-api/internal/auth"
	"github.com/ms-slunicko/rotation-api/internal/models"
	"gorm.io/gorm"
)

type ActivityHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewActivityHandler(db *gorm.DB, authHandler *auth.AuthHandler) *ActivityHandler {
	return &ActivityHandler{db: db, authHandler: authHandler}
}

type ListActivityRequest struct {
	auth.AuthInput
	Date  string `query:"date" doc:"Filter by calendar date" required:"false"`
	Limit int    `query:"limit" doc:"Maximum entries returned" minimum:"1" maximum:"500" required:"false"`
}

type ActivityEntryResponse struct {
	ID          uint            `json:"id"`
	EventType   string          `json:"event_type"`
	Date        string          `json:"date"`
	ChildID     *uint           `json:"child_id,omitempty"`
	ActorUserID uint            `json:"actor_user_id"`
	Metadata    json.RawMessage `json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ListActivityResponse struct {
	Body []ActivityEntryResponse
}

func (h *ActivityHandler) HandleListActivity(ctx context.Context, input *ListActivityRequest) (*ListActivityResponse, error) {
	if _, err := h.authHandler.RequireStaff(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit == 0 {
		limit = 200
	}

	query := h.db.Model(&models.ActivityLogEntry{})
	if input.Date != "" {
		query = query.Where("date = ?", input.Date)
	}

	var entries []models.ActivityLogEntry
	if err := query.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list activity")
	}

	response := make([]ActivityEntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, ActivityEntryResponse{
			ID:          e.ID,
			EventType:   e.EventType,
			Date:        e.Date,
			ChildID:     e.ChildID,
			ActorUserID: e.ActorUserID,
			Metadata:    json.RawMessage(e.Metadata),
			CreatedAt:   e.CreatedAt,
		})
	}

	return &ListActivityResponse{Body: response}, nil
}
