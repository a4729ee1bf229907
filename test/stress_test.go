package test

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"driverapp/api"
	"driverapp/cache"
	"driverapp/credstore"
	"driverapp/delivery"
	"driverapp/session"
	"driverapp/sim"
)

var (
	flDuration    = flag.Duration("duration", 5*time.Second, "how long to run the randomized workload")
	flConcurrency = flag.Int("concurrency", 4, "number of concurrent readers")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
)

// TestRandomizedWorkload hammers one driver's stack with a seeded mix of
// lifecycle mutations, session churn, and concurrent cached reads, then
// checks the invariants that must hold regardless of interleaving:
// authenticated snapshots always carry a user and token, declined
// deliveries never resurface, and the completion count never decreases.
func TestRandomizedWorkload(t *testing.T) {
	flag.Parse()
	if testing.Short() {
		t.Skip("randomized workload skipped in short mode")
	}
	seed := *flSeed
	t.Logf("seed=%d", seed)
	rng := rand.New(rand.NewSource(seed))

	backend := sim.New(sim.Config{})
	server := httptest.NewServer(backend.Handler())
	defer server.Close()

	driverID, err := backend.AddDriver("ann@example.com", "wheelies", "Ann")
	if err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	for i := 0; i < 12; i++ {
		backend.AddDelivery(delivery.Delivery{DriverID: driverID})
	}

	store, err := credstore.New(filepath.Join(t.TempDir(), "token"))
	if err != nil {
		t.Fatalf("credstore: %v", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	httpClient := &http.Client{Jar: jar, Timeout: 15 * time.Second}
	apiClient, err := api.NewClient(api.Config{BaseURL: server.URL, HTTPClient: httpClient})
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	manager := session.NewManager(session.NewGateway(apiClient), store, nil)
	coordinator := delivery.NewCoordinator(delivery.NewGateway(apiClient, manager), cache.New(nil), nil)

	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+30*time.Second)
	defer cancel()

	credentials := session.Credentials{Email: "ann@example.com", Password: "wheelies"}
	if _, err := manager.SignIn(ctx, credentials); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	declined := make(map[string]bool)
	var maxCompleted int

	g, gctx := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	// Concurrent readers keep the cache hot while the mutator churns.
	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-stop:
					return nil
				case <-gctx.Done():
					return nil
				default:
				}
				if _, _, err := coordinator.Assigned(gctx); err != nil && !api.IsUnauthorized(err) {
					return err
				}
				if _, err := coordinator.Stats(gctx); err != nil && !api.IsUnauthorized(err) {
					return err
				}
				time.Sleep(5 * time.Millisecond)
			}
		})
	}

	deadline := time.Now().Add(*flDuration)
	for time.Now().Before(deadline) {
		snap := manager.Snapshot()
		if snap.Authenticated && (snap.User == nil || snap.User.UserID == "" || snap.Token == "") {
			t.Fatalf("authenticated snapshot without identity: %+v", snap)
		}

		if !snap.Authenticated {
			if _, err := manager.SignIn(ctx, credentials); err != nil {
				t.Fatalf("re-sign-in: %v", err)
			}
			continue
		}

		switch rng.Intn(10) {
		case 0:
			// Session churn: logout now, the next iteration signs back in.
			if err := manager.Logout(ctx); err != nil {
				t.Fatalf("logout: %v", err)
			}
			continue
		case 1:
			if _, err := manager.RefreshToken(ctx); err != nil {
				t.Fatalf("refresh: %v", err)
			}
		case 2:
			if _, err := coordinator.SetAvailability(ctx, rng.Intn(2) == 0); err != nil {
				t.Fatalf("availability: %v", err)
			}
		default:
			mutateRandomDelivery(t, ctx, rng, coordinator, driverID, declined)
		}

		// Declined deliveries must never come back in either bucket.
		pending, accepted, err := coordinator.Assigned(ctx)
		if err != nil {
			t.Fatalf("assigned: %v", err)
		}
		for _, d := range append(pending, accepted...) {
			if declined[d.DeliveryID] {
				t.Fatalf("declined delivery %s resurfaced", d.DeliveryID)
			}
		}

		stats, err := coordinator.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.CompletedToday < maxCompleted {
			t.Fatalf("completion count went backwards: %d -> %d", maxCompleted, stats.CompletedToday)
		}
		maxCompleted = stats.CompletedToday
	}

	close(stop)
	if err := g.Wait(); err != nil {
		t.Fatalf("reader: %v", err)
	}
}

// mutateRandomDelivery drives one random delivery a single step forward,
// or declines it. Transition prechecks keep the mutation legal, so any
// server rejection is a real bug.
func mutateRandomDelivery(t *testing.T, ctx context.Context, rng *rand.Rand, coordinator *delivery.Coordinator, driverID string, declined map[string]bool) {
	t.Helper()

	pending, accepted, err := coordinator.Assigned(ctx)
	if err != nil {
		t.Fatalf("assigned: %v", err)
	}
	inFlight, err := coordinator.Deliveries(ctx, delivery.StatusPickedUp)
	if err != nil {
		t.Fatalf("picked-up list: %v", err)
	}

	if len(pending) > 0 && rng.Intn(2) == 0 {
		d := pending[rng.Intn(len(pending))]
		if rng.Intn(4) == 0 {
			if err := coordinator.Decline(ctx, d.DeliveryID, "not today"); err != nil {
				t.Fatalf("decline %s: %v", d.DeliveryID, err)
			}
			declined[d.DeliveryID] = true
			return
		}
		if err := coordinator.Accept(ctx, d.DeliveryID); err != nil {
			t.Fatalf("accept %s: %v", d.DeliveryID, err)
		}
		return
	}

	if len(inFlight.Deliveries) > 0 && rng.Intn(2) == 0 {
		d := inFlight.Deliveries[rng.Intn(len(inFlight.Deliveries))]
		params := delivery.PickupParams{DeliveryID: d.DeliveryID, OrderID: d.OrderID, DriverID: driverID}
		if err := coordinator.Complete(ctx, params); err != nil {
			t.Fatalf("complete %s: %v", d.DeliveryID, err)
		}
		return
	}

	if len(accepted) == 0 {
		return
	}
	d := accepted[rng.Intn(len(accepted))]
	params := delivery.PickupParams{DeliveryID: d.DeliveryID, OrderID: d.OrderID, DriverID: driverID}
	if err := coordinator.Pickup(ctx, params); err != nil {
		t.Fatalf("pickup %s: %v", d.DeliveryID, err)
	}
}
