package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ubi-africa/ride-core/app"
	"github.com/ubi-africa/ride-core/config"
	"github.com/ubi-africa/ride-core/core/model"
	"github.com/ubi-africa/ride-core/core/ride"
	"github.com/ubi-africa/ride-core/infra/logger"
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Inject a test ride request",
	RunE:  requestRide,
}

func init() {
	rootCmd.AddCommand(requestCmd)
}

func requestRide(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New("request-command")
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()
	go svc.Matcher.Run(ctx)

	r, err := svc.Rides.RequestRide(ctx, ride.RequestInput{
		RiderID:      "smoke-rider",
		Pickup:       model.Location{Lat: 6.4281, Lng: 3.4219, Label: "Victoria Island"},
		Dropoff:      model.Location{Lat: 6.6018, Lng: 3.3515, Label: "Ikeja"},
		VehicleClass: model.ClassStandard,
		Currency:     model.CurrencyNGN,
		Payment:      model.PaymentCash,
	})
	if err != nil {
		return fmt.Errorf("request ride: %w", err)
	}
	logg.Infof("ride %s created, status %s", r.ID, r.Status)
	if r.Quote != nil {
		logg.Infof("quote: %d %s (surge %.1fx)", r.Quote.Total, r.Quote.Currency, r.Quote.SurgeMultiplier)
	}

	select {
	case <-time.After(5 * time.Second):
	case <-ctx.Done():
		return nil
	}
	if _, err := svc.Rides.CancelRide(ctx, r.ID, "smoke-rider", "smoke test done"); err != nil {
		logg.Warnf("cancel ride: %v", err)
	}
	return nil
}
