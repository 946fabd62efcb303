package handlers

import (
	"context"
	"slices"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ms-slunicko/rotation-api/internal/auth"
	"github.com/ms-slunicko/rotation-api/internal/models"
	"gorm.io/gorm"
)

type ChildrenHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
	groups      []string
}

func NewChildrenHandler(db *gorm.DB, authHandler *auth.AuthHandler, groups []string) *ChildrenHandler {
	return &ChildrenHandler{db: db, authHandler: authHandler, groups: groups}
}

type ChildResponse struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	AssignedGroup string `json:"assigned_group"`
	GroupCapacity int    `json:"group_capacity"`
}

type CreateChildRequest struct {
	auth.AuthInput
	Body struct {
		Name          string `json:"name" doc:"Child's display name" required:"true"`
		AssignedGroup string `json:"assigned_group" doc:"Rotation group the child belongs to" required:"true"`
	}
}

type CreateChildResponse struct {
	Body ChildResponse
}

func (h *ChildrenHandler) HandleCreateChild(ctx context.Context, input *CreateChildRequest) (*CreateChildResponse, error) {
	if _, err := h.authHandler.RequireStaff(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	if !slices.Contains(h.groups, input.Body.AssignedGroup) {
		return nil, huma.Error400BadRequest("Unknown group: " + input.Body.AssignedGroup)
	}

	child := models.Child{
		Name:          input.Body.Name,
		AssignedGroup: input.Body.AssignedGroup,
	}
	if err := h.db.Create(&child).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create child")
	}

	var capacity int64
	h.db.Model(&models.Child{}).Where("assigned_group = ?", child.AssignedGroup).Count(&capacity)

	return &CreateChildResponse{
		Body: ChildResponse{
			ID:            child.ID,
			Name:          child.Name,
			AssignedGroup: child.AssignedGroup,
			GroupCapacity: int(capacity),
		},
	}, nil
}

type ListChildrenRequest struct {
	auth.AuthInput
	Group string `query:"group" doc:"Filter by assigned group" required:"false"`
}

type ListChildrenResponse struct {
	Body []ChildResponse
}

func (h *ChildrenHandler) HandleListChildren(ctx context.Context, input *ListChildrenRequest) (*ListChildrenResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	query := h.db.Model(&models.Child{})
	if input.Group != "" {
		query = query.Where("assigned_group = ?", input.Group)
	}

	var children []models.Child
	if err := query.Order("assigned_group, name").Find(&children).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list children")
	}

	capacities := make(map[string]int)
	for _, c := range children {
		capacities[c.AssignedGroup]++
	}

	response := make([]ChildResponse, 0, len(children))
	for _, c := range children {
		response = append(response, ChildResponse{
			ID:            c.ID,
			Name:          c.Name,
			AssignedGroup: c.AssignedGroup,
			GroupCapacity: capacities[c.AssignedGroup],
		})
	}
	return &ListChildrenResponse{Body: response}, nil
}

type DeleteChildRequest struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *ChildrenHandler) HandleDeleteChild(ctx context.Context, input *DeleteChildRequest) (*struct{}, error) {
	if _, err := h.authHandler.RequireStaff(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("child_id = ?", input.ID).Delete(&models.GuardianLink{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("child_id = ?", input.ID).Delete(&models.AttendanceStatus{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Child{}, input.ID).Error
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to delete child")
	}

	return nil, nil
}

type AddGuardianRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		UserID uint `json:"user_id" doc:"Parent account to link" required:"true"`
	}
}

type AddGuardianResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

func (h *ChildrenHandler) HandleAddGuardian(ctx context.Context, input *AddGuardianRequest) (*AddGuardianResponse, error) {
	if _, err := h.authHandler.RequireStaff(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	var child models.Child
	if err := h.db.First(&child, input.ID).Error; err != nil {
		return nil, huma.Error404NotFound("Child not found")
	}
	var user models.User
	if err := h.db.First(&user, input.Body.UserID).Error; err != nil {
		return nil, huma.Error404NotFound("User not found")
	}

	link := models.GuardianLink{UserID: user.ID, ChildID: child.ID}
	if err := h.db.Create(&link).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to link guardian")
	}

	res := &AddGuardianResponse{}
	res.Body.Message = "Guardian linked"
	return res, nil
}
