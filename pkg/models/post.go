package models

import "time"

// Post is a scraped LinkedIn post belonging to one profile
type Post struct {
	ID               int64            `json:"post_id" db:"post_id"`
	ProfileID        int64            `json:"profile_id" db:"profile_id"`
	URN              string           `json:"urn" db:"urn"`
	Text             string           `json:"text" db:"text"`
	PostedDate       time.Time        `json:"posted_date" db:"posted_date"`
	Reposted         bool             `json:"reposted" db:"reposted"`
	LikeCount        int              `json:"like_count" db:"like_count"`
	CommentCount     int              `json:"comment_count" db:"comment_count"`
	IsPostLiked      bool             `json:"is_post_liked" db:"is_post_liked"`
	LikedAt          *time.Time       `json:"liked_at,omitempty" db:"liked_at"`
	LikeActionID     *string          `json:"like_action_id,omitempty" db:"like_action_id"`
	LikeError        *string          `json:"like_error,omitempty" db:"like_error"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
	ConnectionStatus ConnectionStatus `json:"connection_status,omitempty" db:"connection_status"`
}

// EligiblePostCriteria parameterizes the next-post query for the comment pipeline
type EligiblePostCriteria struct {
	ProfileStatus      FunnelStatus
	MaxPostAge         time.Duration
	ExcludeWithComment bool
	ExcludeReposts     bool
}

// DefaultEligiblePostCriteria matches week2_commenting profiles with a post
// newer than 30 days that has no comment yet.
func DefaultEligiblePostCriteria() EligiblePostCriteria {
	return EligiblePostCriteria{
		ProfileStatus:      FunnelStatusWeek2Commenting,
		MaxPostAge:         30 * 24 * time.Hour,
		ExcludeWithComment: true,
		ExcludeReposts:     true,
	}
}
