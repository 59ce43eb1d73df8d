package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/example/ride-booking/internal/bookingstore"
	"github.com/example/ride-booking/internal/config"
	"github.com/example/ride-booking/internal/fare"
	"github.com/example/ride-booking/internal/logging"
	"github.com/example/ride-booking/internal/receipt"
	"github.com/example/ride-booking/internal/rowstore"
)

// storeFunc opens the booking store and returns a closer for it.
type storeFunc func(ctx context.Context) (*bookingstore.Store, func(), error)

func main() {
	_ = config.LoadDotEnv(os.Getenv("ENV_FILE"))
	if err := newApp(os.Stdout, openStore).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (*bookingstore.Store, func(), error) {
	cfg := config.LoadStoreConfig()
	logger := logging.New(os.Stderr, "warn")
	opener, err := rowstore.NewOpener(ctx, rowstore.Options{
		Backend:               cfg.Backend,
		SheetsCredentialsFile: cfg.SheetsCredentialsFile,
		PGDSN:                 cfg.PGDSN,
		RedisAddr:             cfg.RedisAddr,
		RedisPassword:         cfg.RedisPassword,
	})
	if err != nil {
		return nil, nil, err
	}
	store, err := bookingstore.New(ctx, opener.Table("bookings", cfg.SheetsBookingsID), logger)
	if err != nil {
		_ = opener.Close()
		return nil, nil, err
	}
	return store, func() { _ = opener.Close() }, nil
}

func newApp(out io.Writer, open storeFunc) *cli.App {
	fares := fare.NewCalculator(nil)
	return &cli.App{
		Name:   "ridectl",
		Usage:  "inspect fares and stored bookings",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "vehicles",
				Usage: "list vehicle types and their rates",
				Action: func(*cli.Context) error {
					vc := color.New(color.FgCyan)
					for _, name := range fares.Vehicles() {
						r, _ := fares.Rate(name)
						fmt.Fprintf(out, "%s  base ₱%.2f  +₱%.2f per %dm\n", vc.Sprintf("%-10s", name), r.Base, r.Increment, fare.IncrementMeters)
					}
					return nil
				},
			},
			{
				Name:  "fare",
				Usage: "estimate the fare of a trip",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "distance-km", Aliases: []string{"d"}, Required: true, Usage: "trip distance in kilometres"},
					&cli.StringFlag{Name: "vehicle", Value: "Car", Usage: "vehicle type"},
				},
				Action: func(ctx *cli.Context) error {
					vehicle := ctx.String("vehicle")
					if _, ok := fares.Rate(vehicle); !ok {
						return fmt.Errorf("unknown vehicle type %q", vehicle)
					}
					km := ctx.Float64("distance-km")
					if km < 0 {
						return fmt.Errorf("distance must not be negative")
					}
					fmt.Fprintf(out, "%s %.2f km by %s: %s\n", color.New(color.Bold).Sprint("Fare"), km, vehicle,
						color.GreenString("₱%.2f", fares.Fare(km, vehicle)))
					return nil
				},
			},
			{
				Name:  "history",
				Usage: "print the stored bookings of a client",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "client", Required: true, Usage: "client id"},
				},
				Action: func(ctx *cli.Context) error {
					store, closeStore, err := open(ctx.Context)
					if err != nil {
						return err
					}
					defer closeStore()
					recs, err := store.ListByClient(ctx.Context, ctx.String("client"))
					if err != nil {
						return err
					}
					return receipt.History(out, recs)
				},
			},
			{
				Name:  "receipt",
				Usage: "print the receipt of a stored booking",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true, Usage: "booking id"},
				},
				Action: func(ctx *cli.Context) error {
					store, closeStore, err := open(ctx.Context)
					if err != nil {
						return err
					}
					defer closeStore()
					rec, err := store.GetByID(ctx.Context, ctx.String("id"))
					if err != nil {
						return fmt.Errorf("booking %s: %w", ctx.String("id"), err)
					}
					return receipt.Write(out, rec.Booking())
				},
			},
		},
	}
}
