package application

import (
	"sort"

	"github.com/samber/lo"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
)

// Audience is the deduplicated set of users to notify for one event.
// The zero value is not usable; call NewAudience.
type Audience struct {
	users map[string]domain.User
}

// NewAudience returns an empty audience.
func NewAudience() *Audience {
	return &Audience{users: make(map[string]domain.User)}
}

// Add inserts u. Adding the same user twice is a no-op.
func (a *Audience) Add(users ...domain.User) {
	for _, u := range users {
		a.users[u.Key()] = u
	}
}

// Discard removes u if present.
func (a *Audience) Discard(u domain.User) {
	delete(a.users, u.Key())
}

// Contains reports whether u is in the audience.
func (a *Audience) Contains(u domain.User) bool {
	_, ok := a.users[u.Key()]
	return ok
}

// Len returns the number of users.
func (a *Audience) Len() int {
	return len(a.users)
}

// Users returns the members ordered by username so fan-out and logs are stable.
func (a *Audience) Users() []domain.User {
	users := lo.Values(a.users)
	sort.Slice(users, func(i, j int) bool {
		if users[i].Username != users[j].Username {
			return users[i].Username < users[j].Username
		}
		return users[i].ID < users[j].ID
	})
	return users
}

// Usernames returns the sorted usernames, mostly for logging.
func (a *Audience) Usernames() []string {
	return lo.Map(a.Users(), func(u domain.User, _ int) string { return u.Username })
}

func isActive(u domain.User, _ int) bool {
	return u.IsActive
}

// ResolveAudience collects everyone interested in rr: participants, the
// submitter, target people, members of target groups and users who starred it.
//
// Participants are taken as reported; the review system already drops inactive
// accounts from that list. Every other source is filtered to active users here.
func ResolveAudience(rr *domain.ReviewRequest) *Audience {
	audience := NewAudience()
	if rr == nil {
		return audience
	}

	audience.Add(rr.GetParticipants()...)

	if rr.Submitter.IsActive {
		audience.Add(rr.Submitter)
	}

	audience.Add(lo.Filter(rr.TargetPeople, isActive)...)

	for _, group := range rr.TargetGroups {
		audience.Add(lo.Filter(group.Users, isActive)...)
	}

	for _, profile := range rr.StarredBy {
		if profile.User.IsActive {
			audience.Add(profile.User)
		}
	}

	return audience
}
