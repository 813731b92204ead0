package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"

	"github.com/vbonduro/lightbnb/internal/config"
	"github.com/vbonduro/lightbnb/internal/db"
	"github.com/vbonduro/lightbnb/internal/domain"
	"github.com/vbonduro/lightbnb/internal/logging"
	"github.com/vbonduro/lightbnb/internal/service"
	"github.com/vbonduro/lightbnb/internal/store"
)

const usage = `Usage: lightbnb <command> [flags]

Commands:
  migrate                              apply database migrations
  user get -email S | -id N            look up a user
  user add -name S -email S -password S
  user login -email S -password S
  property list [-owner N] [-city S] [-min D] [-max D] [-rating R] [-limit N]
  property add -owner N -title S -cost D [-city S] [-bedrooms N] ...
  reservation list -guest N [-limit N]
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "migrate", "user", "property", "reservation":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	cfg := config.Load()
	if args[0] == "migrate" {
		cfg.DBAutoMigrate = true
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()

	database, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	svc := service.NewBookingService(
		store.NewUserStore(database),
		store.NewPropertyStore(database),
		store.NewReservationStore(database),
		logger,
	)

	switch args[0] {
	case "migrate":
		fmt.Fprintln(out, "migrations applied")
		return nil
	case "user":
		return handleUser(ctx, svc, args[1:], out)
	case "property":
		return handleProperty(ctx, svc, args[1:], out)
	default:
		return handleReservation(ctx, svc, args[1:], out)
	}
}

func handleUser(ctx context.Context, svc *service.BookingService, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	fs := flag.NewFlagSet("user "+args[0], flag.ContinueOnError)
	name := fs.String("name", "", "user name")
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")
	id := fs.Int64("id", 0, "user id")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	var (
		user *domain.User
		err  error
	)
	switch args[0] {
	case "get":
		switch {
		case *id != 0:
			user, err = svc.GetUserWithID(ctx, *id)
		case *email != "":
			user, err = svc.GetUserWithEmail(ctx, *email)
		default:
			return fmt.Errorf("%w: user get needs -id or -email", errUsage)
		}
	case "add":
		user, err = svc.AddUser(ctx, domain.NewUser{Name: *name, Email: *email, Password: *password})
	case "login":
		user, err = svc.Login(ctx, *email, *password)
	default:
		return fmt.Errorf("%w: unknown user command %q", errUsage, args[0])
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d\t%s\t%s\n", user.ID, user.Name, user.Email)
	return nil
}

func handleProperty(ctx context.Context, svc *service.BookingService, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	fs := flag.NewFlagSet("property "+args[0], flag.ContinueOnError)
	owner := fs.Int64("owner", 0, "owner user id")
	city := fs.String("city", "", "city (substring match when listing)")
	limit := fs.Int("limit", service.DefaultLimit, "maximum rows")
	minPrice := fs.Float64("min", 0, "minimum price per night in dollars")
	maxPrice := fs.Float64("max", 0, "maximum price per night in dollars")
	rating := fs.Float64("rating", 0, "minimum average rating")
	title := fs.String("title", "", "title")
	description := fs.String("description", "", "description")
	thumbnail := fs.String("thumbnail", "", "thumbnail photo url")
	cover := fs.String("cover", "", "cover photo url")
	cost := fs.Float64("cost", 0, "cost per night in dollars")
	parking := fs.Int("parking", 0, "parking spaces")
	bathrooms := fs.Int("bathrooms", 0, "number of bathrooms")
	bedrooms := fs.Int("bedrooms", 0, "number of bedrooms")
	country := fs.String("country", "", "country")
	street := fs.String("street", "", "street")
	province := fs.String("province", "", "province")
	postCode := fs.String("post-code", "", "post code")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	switch args[0] {
	case "list":
		properties, err := svc.GetAllProperties(ctx, domain.PropertyFilter{
			OwnerID:              *owner,
			City:                 *city,
			MinimumPricePerNight: *minPrice,
			MaximumPricePerNight: *maxPrice,
			MinimumRating:        *rating,
		}, *limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCITY\tCOST/NIGHT\tBEDS\tBATHS\tPARKING\tRATING")
		for _, p := range properties {
			fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%d\t%d\t%d\t%s\n",
				p.ID, p.Title, p.City, p.CostPerNight.Dollars(),
				p.NumberOfBedrooms, p.NumberOfBathrooms, p.ParkingSpaces, formatRating(p.AverageRating))
		}
		return w.Flush()
	case "add":
		p, err := svc.AddProperty(ctx, domain.NewProperty{
			OwnerID:           *owner,
			Title:             *title,
			Description:       *description,
			ThumbnailPhotoURL: *thumbnail,
			CoverPhotoURL:     *cover,
			CostPerNight:      *cost,
			ParkingSpaces:     *parking,
			NumberOfBathrooms: *bathrooms,
			NumberOfBedrooms:  *bedrooms,
			Country:           *country,
			Street:            *street,
			City:              *city,
			Province:          *province,
			PostCode:          *postCode,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d\t%s\t%.2f\n", p.ID, p.Title, p.CostPerNight.Dollars())
		return nil
	default:
		return fmt.Errorf("%w: unknown property command %q", errUsage, args[0])
	}
}

func handleReservation(ctx context.Context, svc *service.BookingService, args []string, out io.Writer) error {
	if len(args) < 1 || args[0] != "list" {
		return errUsage
	}

	fs := flag.NewFlagSet("reservation list", flag.ContinueOnError)
	guest := fs.Int64("guest", 0, "guest user id")
	limit := fs.Int("limit", service.DefaultLimit, "maximum rows")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if *guest == 0 {
		return fmt.Errorf("%w: reservation list needs -guest", errUsage)
	}

	reservations, err := svc.GetAllReservations(ctx, *guest, *limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTART\tEND\tCOST/NIGHT\tRATING")
	for _, r := range reservations {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%s\n",
			r.ID, r.Title, r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"),
			r.CostPerNight.Dollars(), formatRating(r.AverageRating))
	}
	return w.Flush()
}

func formatRating(r *float64) string {
	if r == nil {
		return "-"
	}
	return strconv.FormatFloat(*r, 'f', 2, 64)
}
