package models

import "time"

// FunnelStatus is a profile's position in the outreach funnel
type FunnelStatus string

const (
	FunnelStatusNotStarted      FunnelStatus = "not_started"
	FunnelStatusWeek1Liking     FunnelStatus = "week1_liking"
	FunnelStatusWeek2Commenting FunnelStatus = "week2_commenting"
	FunnelStatusWeek3Invitation FunnelStatus = "week3_invitation"
	FunnelStatusMaintenance     FunnelStatus = "maintenance"
)

// funnelRank orders the funnel stages for the no-backward-transition check.
// Maintenance is terminal-but-repeatable for current connections.
var funnelRank = map[FunnelStatus]int{
	FunnelStatusNotStarted:      0,
	FunnelStatusWeek1Liking:     1,
	FunnelStatusWeek2Commenting: 2,
	FunnelStatusWeek3Invitation: 3,
	FunnelStatusMaintenance:     4,
}

// Rank returns the funnel ordering of a status. Unknown statuses rank lowest.
func (s FunnelStatus) Rank() int {
	return funnelRank[s]
}

// IsValid reports whether the status is in the closed funnel vocabulary
func (s FunnelStatus) IsValid() bool {
	_, ok := funnelRank[s]
	return ok
}

// ConnectionStatus describes the relationship with a profile
type ConnectionStatus string

const (
	ConnectionStatusProspect ConnectionStatus = "prospect"
	ConnectionStatusCurrent  ConnectionStatus = "current_connection"
)

// Profile is a tracked LinkedIn profile moving through the funnel
type Profile struct {
	ID               int64            `json:"profile_id" db:"profile_id"`
	ProfileURL       string           `json:"profile_url" db:"profile_url"`
	Username         string           `json:"username" db:"username"`
	FirstName        string           `json:"first_name" db:"first_name"`
	LastName         string           `json:"last_name" db:"last_name"`
	JobTitle         *string          `json:"job_title,omitempty" db:"job_title"`
	JobTitleScore    int              `json:"job_title_score" db:"job_title_score"`
	Status           FunnelStatus     `json:"status" db:"status"`
	ConnectionStatus ConnectionStatus `json:"connection_status" db:"connection_status"`
	WeeklyBatch      *int             `json:"weekly_batch,omitempty" db:"weekly_batch"`
	LastActionDate   *time.Time       `json:"last_action_date,omitempty" db:"last_action_date"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// ImportProfileRequest is one row of a profile import
type ImportProfileRequest struct {
	ProfileURL    string  `json:"profile_url" validate:"required,url"`
	Username      string  `json:"username" validate:"required"`
	FirstName     string  `json:"first_name" validate:"required"`
	LastName      string  `json:"last_name"`
	JobTitle      *string `json:"job_title,omitempty"`
	JobTitleScore int     `json:"job_title_score" validate:"gte=0"`
	Connection    string  `json:"connection_status" validate:"omitempty,oneof=prospect current_connection"`
}
