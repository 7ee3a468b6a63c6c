package services

import (
	"slices"
	"time"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// CandidateSelector is a domain service that picks the couriers a dispatch
// round is offered to.
//
// Key responsibilities:
//   - Filtering couriers that can serve the order right now
//   - Splitting them into the vendor's private team and the independent pool
//   - Falling back to everyone when a team round finds no team member online
//
// Business rules:
//   - Only Active, Online couriers in a matching service mode are eligible
//   - Members of other vendors' teams are never offered the order
//   - Team members come before the pool; within each group the courier seen
//     most recently comes first
//
// Example usage:
//
//	selector := services.NewCandidateSelector()
//	ids, scope := selector.Select(o, available, order.ScopeTeam)
//	offered, err := o.Broadcast(ids, scope, policy, now)
type CandidateSelector struct{}

func NewCandidateSelector() CandidateSelector {
	return CandidateSelector{}
}

// Select returns the couriers to offer and the scope actually used. A team
// scope with no eligible team member widens to ScopeAll.
func (s CandidateSelector) Select(o *order.Order, couriers []*courier.Courier, scope order.Scope) ([]kernel.UUID, order.Scope) {
	if o.Validate() != nil {
		return nil, scope
	}

	var team, pool []*courier.Courier
	for _, c := range couriers {
		if c.Validate() != nil || !c.CanServe(o.Category()) {
			continue
		}
		switch {
		case c.IsTeamMemberOf(o.VendorID()):
			team = append(team, c)
		case c.IsIndependent():
			pool = append(pool, c)
		}
	}
	sortByLastSeen(team)
	sortByLastSeen(pool)

	if scope == order.ScopeTeam && len(team) > 0 {
		return ids(team), order.ScopeTeam
	}
	return append(ids(team), ids(pool)...), order.ScopeAll
}

func sortByLastSeen(cs []*courier.Courier) {
	slices.SortStableFunc(cs, func(a, b *courier.Courier) int {
		return lastSeen(b).Compare(lastSeen(a))
	})
}

func lastSeen(c *courier.Courier) time.Time {
	if seen := c.LastSeenAt(); seen != nil {
		return *seen
	}
	return time.Time{}
}

func ids(cs []*courier.Courier) []kernel.UUID {
	out := make([]kernel.UUID, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID())
	}
	return out
}
