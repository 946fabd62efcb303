package models

import (
	"gorm.io/gorm"
)

// Child belongs to exactly one rotation group for its whole enrollment.
// The group's capacity is not stored anywhere: it is the number of
// children assigned to that group.
type Child struct {
	gorm.Model
	Name          string `json:"name"`
	AssignedGroup string `json:"assigned_group" gorm:"index"`
}

// GuardianLink connects a parent account to a child. A child can have
// several guardians and a guardian several children.
type GuardianLink struct {
	gorm.Model
	UserID  uint  `json:"user_id" gorm:"uniqueIndex:idx_guardian_child"`
	ChildID uint  `json:"child_id" gorm:"uniqueIndex:idx_guardian_child"`
	User    User  `json:"user"`
	Child   Child `json:"child"`
}
