package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"driverapp/cache"
)

// Refresh policies per view. Non-terminal lists are high-churn and poll
// on a short interval; the completed history is effectively immutable
// once final; stats sit in between.
var (
	policyActiveList = cache.Policy{StaleAfter: 5 * time.Second, RefreshEvery: 10 * time.Second}
	policyHistory    = cache.Policy{StaleAfter: 5 * time.Minute}
	policyDetail     = cache.Policy{StaleAfter: 5 * time.Second}
	policyStats      = cache.Policy{StaleAfter: 20 * time.Second, RefreshEvery: 30 * time.Second}
)

// DeliveryGateway is the slice of delivery-service operations the
// Coordinator depends on.
type DeliveryGateway interface {
	ListByStatus(ctx context.Context, status Status) (List, error)
	Details(ctx context.Context, deliveryID string) (Delivery, error)
	Accept(ctx context.Context, deliveryID string) error
	Decline(ctx context.Context, deliveryID, reason string) error
	Pickup(ctx context.Context, params PickupParams) error
	Complete(ctx context.Context, params PickupParams) error
	SetAvailability(ctx context.Context, isAvailable bool) (bool, error)
	Stats(ctx context.Context) (DriverStats, error)
}

// Compile-time check: *Gateway implements DeliveryGateway.
var _ DeliveryGateway = (*Gateway)(nil)

// Coordinator interprets gateway responses into the delivery lifecycle
// and keeps the shared read cache consistent: every successful mutation
// stales exactly the views its invalidation set names. Mutations are
// never applied optimistically. The server also runs reassignment and
// timeout logic this client cannot see, so the next state only ever
// arrives via refetch.
type Coordinator struct {
	gateway DeliveryGateway
	cache   *cache.Cache
	logger  *slog.Logger
}

// NewCoordinator creates a Coordinator sharing the given read cache. A
// nil logger defaults to slog.Default().
func NewCoordinator(gateway DeliveryGateway, readCache *cache.Cache, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		gateway: gateway,
		cache:   readCache,
		logger:  logger,
	}
}

func listPolicy(status Status) cache.Policy {
	if status == StatusCompleted {
		return policyHistory
	}
	return policyActiveList
}

// Deliveries returns the driver's deliveries for one status filter,
// served from the shared cache.
func (c *Coordinator) Deliveries(ctx context.Context, status Status) (List, error) {
	value, err := c.cache.Fetch(ctx, cache.Key{Query: queryDeliveries, Arg: string(status)}, listPolicy(status),
		func(ctx context.Context) (any, error) {
			return c.gateway.ListByStatus(ctx, status)
		})
	if err != nil {
		return List{}, err
	}
	return value.(List), nil
}

// Assigned returns the assigned-status list split into its pending and
// accepted sub-views. The two partitions cover the list exactly: no
// delivery appears in both, none is lost.
func (c *Coordinator) Assigned(ctx context.Context) (pending, accepted []Delivery, err error) {
	list, err := c.Deliveries(ctx, StatusAssigned)
	if err != nil {
		return nil, nil, err
	}
	pending, accepted = Partition(list.Deliveries)
	return pending, accepted, nil
}

// Details returns the full view of one delivery, served from the shared
// cache.
func (c *Coordinator) Details(ctx context.Context, deliveryID string) (Delivery, error) {
	value, err := c.cache.Fetch(ctx, cache.Key{Query: queryDelivery, Arg: deliveryID}, policyDetail,
		func(ctx context.Context) (any, error) {
			return c.gateway.Details(ctx, deliveryID)
		})
	if err != nil {
		return Delivery{}, err
	}
	return value.(Delivery), nil
}

// Stats returns the driver's aggregate counters, served from the shared
// cache.
func (c *Coordinator) Stats(ctx context.Context) (DriverStats, error) {
	value, err := c.cache.Fetch(ctx, cache.Key{Query: queryDriverStats}, policyStats,
		func(ctx context.Context) (any, error) {
			return c.gateway.Stats(ctx)
		})
	if err != nil {
		return DriverStats{}, err
	}
	return value.(DriverStats), nil
}

// Accept accepts the assignment offer. On success the affected views are
// staled; on failure nothing changes.
func (c *Coordinator) Accept(ctx context.Context, deliveryID string) error {
	if err := c.gateway.Accept(ctx, deliveryID); err != nil {
		return err
	}
	c.finishMutation(MutationAccept, deliveryID)
	return nil
}

// Decline turns down the assignment offer. Declined is terminal: after
// the refetch the delivery no longer appears in any of this driver's
// views.
func (c *Coordinator) Decline(ctx context.Context, deliveryID, reason string) error {
	if err := c.gateway.Decline(ctx, deliveryID, reason); err != nil {
		return err
	}
	c.finishMutation(MutationDecline, deliveryID)
	return nil
}

// Pickup marks the delivery picked up.
func (c *Coordinator) Pickup(ctx context.Context, params PickupParams) error {
	if err := c.gateway.Pickup(ctx, params); err != nil {
		return err
	}
	c.finishMutation(MutationPickup, params.DeliveryID)
	return nil
}

// Complete marks the delivery completed.
func (c *Coordinator) Complete(ctx context.Context, params PickupParams) error {
	if err := c.gateway.Complete(ctx, params); err != nil {
		return err
	}
	c.finishMutation(MutationComplete, params.DeliveryID)
	return nil
}

// SetAvailability flips the driver's availability. Going offline makes
// the server reassign pending deliveries, so lists and stats are staled
// on success like any lifecycle mutation.
func (c *Coordinator) SetAvailability(ctx context.Context, isAvailable bool) (bool, error) {
	confirmed, err := c.gateway.SetAvailability(ctx, isAvailable)
	if err != nil {
		return false, err
	}
	c.finishMutation(MutationSetAvailability, "")
	return confirmed, nil
}

func (c *Coordinator) finishMutation(mutation Mutation, deliveryID string) {
	patterns := InvalidationSet(mutation, deliveryID)
	c.cache.Invalidate(patterns...)
	attrs := []any{"mutation", string(mutation), "invalidated", len(patterns)}
	if deliveryID != "" {
		attrs = append(attrs, "delivery_id", deliveryID)
	}
	c.logger.Info("delivery mutation applied", attrs...)
}

// Precheck validates an action against the delivery's current state
// before the network call, so the UI can disable impossible actions. A
// passing precheck does not guarantee server acceptance.
func (c *Coordinator) Precheck(action Action, d Delivery) error {
	if err := CanApply(action, d); err != nil {
		return fmt.Errorf("delivery: precheck %s for %s: %w", action, d.DeliveryID, err)
	}
	return nil
}
