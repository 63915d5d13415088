package models

import "time"

// ProjectStatus represents the state of a project.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "Active"
	ProjectStatusOnHold    ProjectStatus = "On Hold"
	ProjectStatusCompleted ProjectStatus = "Completed"
)

// ProjectStatuses lists project statuses in workflow order.
var ProjectStatuses = []ProjectStatus{ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted}

// Project groups issues under a named unit of work.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	CreatedBy   string        `json:"createdBy"`
	OwnerID     string        `json:"ownerId"`
	CreatedAt   time.Time     `json:"createdAt"`
}
