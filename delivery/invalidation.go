package delivery

import "driverapp/cache"

// Cache query names shared by the coordinator and the invalidation table.
const (
	queryDeliveries  = "deliveries"
	queryDelivery    = "delivery"
	queryDriverStats = "driver-stats"
)

// Mutation names a status-changing operation for the invalidation table.
type Mutation string

const (
	MutationAccept          Mutation = "accept"
	MutationDecline         Mutation = "decline"
	MutationPickup          Mutation = "pickup"
	MutationComplete        Mutation = "complete"
	MutationSetAvailability Mutation = "set-availability"
)

// InvalidationSet is the dependency table from a successful mutation to
// the cache entries it stales. Every mutation moves deliveries between
// status-filtered views and changes the derived stats, so those are
// always included; lifecycle mutations additionally stale the affected
// delivery's detail entry, even when nobody currently observes it, so a
// later detail read cannot resurrect the superseded state.
func InvalidationSet(mutation Mutation, deliveryID string) []cache.Pattern {
	patterns := []cache.Pattern{
		{Query: queryDeliveries},
		{Query: queryDriverStats},
	}
	switch mutation {
	case MutationAccept, MutationDecline, MutationPickup, MutationComplete:
		patterns = append(patterns, cache.Pattern{Query: queryDelivery, Arg: deliveryID})
	}
	return patterns
}
