// driverctl is a terminal front end for the driver client core. It wires
// the session manager and delivery coordinator against the configured
// services and exposes one subcommand per operation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"driverapp/api"
	"driverapp/cache"
	"driverapp/config"
	"driverapp/credstore"
	"driverapp/delivery"
	"driverapp/session"
)

const usage = `usage: driverctl <command> [flags]

commands:
  login <email> <password>   sign in and persist the session
  logout                     end the session locally and remotely
  status                     show the current session
  deliveries [status]        list assigned deliveries
  accept <delivery-id>       accept an assignment offer
  decline <delivery-id>      decline an assignment offer
  pickup <delivery-id>       confirm pickup at the restaurant
  complete <delivery-id>     confirm handoff to the customer
  availability <on|off>      set whether new assignments are offered
  stats                      show aggregate driver counters
`

func main() {
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	reason := pflag.String("reason", "", "reason to attach when declining")
	pflag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(context.Background(), args, *reason, logger); err != nil {
		fmt.Fprintf(os.Stderr, "driverctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, declineReason string, logger *slog.Logger) error {
	config.LoadDotEnv()
	settings := config.Load()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("cookie jar: %w", err)
	}
	httpClient := &http.Client{Jar: jar, Timeout: settings.HTTPTimeout}

	identityClient, err := api.NewClient(api.Config{BaseURL: settings.IdentityURL, HTTPClient: httpClient, Logger: logger})
	if err != nil {
		return fmt.Errorf("identity client: %w", err)
	}
	deliveryClient, err := api.NewClient(api.Config{BaseURL: settings.DeliveryURL, HTTPClient: httpClient, Logger: logger})
	if err != nil {
		return fmt.Errorf("delivery client: %w", err)
	}

	store, err := credstore.New(settings.TokenPath)
	if err != nil {
		return fmt.Errorf("credential store: %w", err)
	}

	manager := session.NewManager(session.NewGateway(identityClient), store, logger)
	coordinator := delivery.NewCoordinator(delivery.NewGateway(deliveryClient, manager), cache.New(logger), logger)

	command, rest := args[0], args[1:]
	if command != "login" {
		manager.Bootstrap(ctx)
	}

	switch command {
	case "login":
		if len(rest) != 2 {
			return fmt.Errorf("login needs <email> <password>")
		}
		user, err := manager.SignIn(ctx, session.Credentials{Email: rest[0], Password: rest[1]})
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s (%s)\n", user.Name, user.Email)
		return nil
	case "logout":
		if err := manager.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("signed out")
		return nil
	case "status":
		return printStatus(manager)
	case "deliveries":
		status := delivery.Status("")
		if len(rest) > 0 {
			status = delivery.Status(rest[0])
		}
		return printDeliveries(ctx, coordinator, status)
	case "accept":
		return mutate(rest, func(id string) error { return coordinator.Accept(ctx, id) })
	case "decline":
		return mutate(rest, func(id string) error { return coordinator.Decline(ctx, id, declineReason) })
	case "pickup":
		return handoff(ctx, coordinator, rest, coordinator.Pickup)
	case "complete":
		return handoff(ctx, coordinator, rest, coordinator.Complete)
	case "availability":
		if len(rest) != 1 {
			return fmt.Errorf("availability needs <on|off>")
		}
		want := rest[0] == "on"
		if !want && rest[0] != "off" {
			return fmt.Errorf("availability needs <on|off>, got %q", rest[0])
		}
		confirmed, err := coordinator.SetAvailability(ctx, want)
		if err != nil {
			return err
		}
		fmt.Printf("available: %s\n", strconv.FormatBool(confirmed))
		return nil
	case "stats":
		stats, err := coordinator.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("total deliveries: %d\ncompleted today:  %d\naverage rating:   %s\nearnings:         %s\n",
			stats.TotalDeliveries, stats.CompletedToday, stats.AverageRating, stats.Earnings)
		return nil
	default:
		pflag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printStatus(manager *session.Manager) error {
	snap := manager.Snapshot()
	if !snap.Authenticated {
		fmt.Println("signed out")
		return nil
	}
	fmt.Printf("signed in as %s (%s), role %s\n", snap.User.Name, snap.User.Email, snap.User.Role)
	return nil
}

func printDeliveries(ctx context.Context, coordinator *delivery.Coordinator, status delivery.Status) error {
	var deliveries []delivery.Delivery
	if status == "" {
		pending, accepted, err := coordinator.Assigned(ctx)
		if err != nil {
			return err
		}
		deliveries = append(pending, accepted...)
	} else {
		list, err := coordinator.Deliveries(ctx, status)
		if err != nil {
			return err
		}
		deliveries = list.Deliveries
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tOFFER\tCUSTOMER\tASSIGNED")
	for _, d := range deliveries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			d.DeliveryID, d.Status, d.AcceptanceStatus, d.CustomerName, d.AssignedAt.Local().Format("15:04"))
	}
	return w.Flush()
}

func mutate(args []string, apply func(id string) error) error {
	if len(args) != 1 {
		return fmt.Errorf("need exactly one <delivery-id>")
	}
	if err := apply(args[0]); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

// handoff resolves the delivery's order and driver identifiers before a
// pickup or complete call; the server cross-checks all three.
func handoff(ctx context.Context, coordinator *delivery.Coordinator, args []string, apply func(context.Context, delivery.PickupParams) error) error {
	if len(args) != 1 {
		return fmt.Errorf("need exactly one <delivery-id>")
	}
	d, err := coordinator.Details(ctx, args[0])
	if err != nil {
		return err
	}
	params := delivery.PickupParams{
		DeliveryID: d.DeliveryID,
		OrderID:    d.OrderID,
		DriverID:   d.DriverID,
	}
	if err := apply(ctx, params); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}
