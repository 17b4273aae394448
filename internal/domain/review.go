package domain

import "strings"

// ReviewRequestStatus is the lifecycle state of a review request as reported by
// the review system.
type ReviewRequestStatus string

const (
	StatusPending   ReviewRequestStatus = "P"
	StatusSubmitted ReviewRequestStatus = "S"
	StatusDiscarded ReviewRequestStatus = "D"
)

// User is a review system account. Username doubles as the XMPP local part.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username" validate:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsActive  bool   `json:"is_active"`
}

// Key identifies the user inside an Audience. It is the case-folded username,
// the same value the recipient JID local part is built from, so one account
// maps to one key whether or not the event carried its numeric id.
func (u User) Key() string {
	return strings.ToLower(u.Username)
}

// DisplayName is the "first last" form used in message text.
func (u User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// Group is a review group; every member is a potential reviewer.
type Group struct {
	Name  string `json:"name"`
	Users []User `json:"users"`
}

// Subscription is a profile that starred the review request.
type Subscription struct {
	User User `json:"user"`
}

// ReviewRequest is the snapshot of a review request carried by an event.
type ReviewRequest struct {
	ID           int64               `json:"id" validate:"required"`
	LocalID      int64               `json:"local_id,omitempty"`
	Public       bool                `json:"public"`
	Status       ReviewRequestStatus `json:"status" validate:"required,oneof=P S D"`
	Summary      string              `json:"summary"`
	Submitter    User                `json:"submitter"`
	AbsoluteURL  string              `json:"absolute_url"`
	Participants []User              `json:"participants,omitempty"`
	TargetPeople []User              `json:"target_people,omitempty"`
	TargetGroups []Group             `json:"target_groups,omitempty"`
	StarredBy    []Subscription      `json:"starred_by,omitempty"`
}

// DisplayID returns the id shown to users. Requests on a local site are
// numbered per site.
func (r *ReviewRequest) DisplayID() int64 {
	if r.LocalID != 0 {
		return r.LocalID
	}
	return r.ID
}

// GetParticipants returns the users that took part in the discussion.
// The review system only reports active participants.
func (r *ReviewRequest) GetParticipants() []User {
	return r.Participants
}

// Review is a published review on a review request.
type Review struct {
	ID            int64          `json:"id"`
	ReviewRequest *ReviewRequest `json:"review_request"`
}

// Reply is a reply to an existing review.
type Reply struct {
	ID          int64   `json:"id"`
	BaseReplyTo *Review `json:"base_reply_to"`
}
