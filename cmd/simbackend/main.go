// simbackend runs the in-memory sandbox backend on a local port, seeded
// with a demo driver and a handful of deliveries, so driverctl and the
// end-to-end tests have something real to talk to.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"driverapp/delivery"
	"driverapp/sim"
)

func main() {
	addr := pflag.String("addr", ":5004", "listen address")
	email := pflag.String("email", "driver@example.com", "seeded driver email")
	password := pflag.String("password", "password", "seeded driver password")
	name := pflag.String("name", "Demo Driver", "seeded driver name")
	deliveries := pflag.Int("deliveries", 5, "number of seeded assignment offers")
	ttl := pflag.Duration("token-ttl", 15*time.Minute, "access token lifetime")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	backend := sim.New(sim.Config{AccessTokenTTL: *ttl, Logger: logger})
	driverID, err := backend.AddDriver(*email, *password, *name)
	if err != nil {
		logger.Error("seed driver", "err", err)
		os.Exit(1)
	}
	now := time.Now().UTC()
	for i := 0; i < *deliveries; i++ {
		eta := now.Add(time.Duration(30+10*i) * time.Minute)
		backend.AddDelivery(delivery.Delivery{
			DriverID:     driverID,
			CustomerName: fmt.Sprintf("Customer %d", i+1),
			DeliveryAddress: &delivery.Address{
				Street:  fmt.Sprintf("%d Main St", 100+i),
				City:    "Springfield",
				State:   "IL",
				ZipCode: "62701",
			},
			Items:                 []delivery.OrderItem{{Name: "Combo meal", Quantity: 1}},
			EstimatedDeliveryTime: &eta,
		})
	}

	logger.Info("sandbox backend listening",
		"addr", *addr, "email", *email, "deliveries", *deliveries)
	if err := http.ListenAndServe(*addr, backend.Handler()); err != nil {
		logger.Error("serve", "err", err)
		os.Exit(1)
	}
}
