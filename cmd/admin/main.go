// Command admin manages user accounts: listing, deactivation, and
// reactivation. Users are created by auto-provisioning on first sign-in,
// never from here.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"

	"github.com/stockdeck/stockdeck/internal/database"
	"github.com/stockdeck/stockdeck/internal/user"
)

const usage = `Usage: admin <command> [arguments]

Commands:
  list                 list all users
  deactivate <id>      deactivate a user by UUID
  activate <id>        reactivate a user by UUID
`

type adminConfig struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	var cfg adminConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fatal("loading configuration", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("connecting to database", err)
	}
	defer db.Close()

	users := user.NewRepository(db.Pool())

	switch cmd := flag.Arg(0); cmd {
	case "list":
		err = listUsers(ctx, users)
	case "deactivate":
		err = setActive(ctx, users, flag.Arg(1), false)
	case "activate":
		err = setActive(ctx, users, flag.Arg(1), true)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(flag.Arg(0), err)
	}
}

func listUsers(ctx context.Context, users user.Repository) error {
	all, err := users.List(ctx)
	if err != nil {
		return err
	}

	if len(all) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tCREATED\tACTIVE")
	for _, u := range all {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
			u.ID, u.Email, u.DisplayName,
			u.CreatedAt.Format("2006-01-02 15:04:05"), u.IsActive)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nTotal users: %d\n", len(all))
	return nil
}

func setActive(ctx context.Context, users user.Repository, rawID string, active bool) error {
	if rawID == "" {
		return errors.New("user ID required")
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid user ID %q: %w", rawID, err)
	}

	if active {
		err = users.Activate(ctx, id)
	} else {
		err = users.Deactivate(ctx, id)
	}

	switch {
	case errors.Is(err, user.ErrUserNotFound):
		return fmt.Errorf("user %s not found", id)
	case errors.Is(err, user.ErrUserInactive):
		fmt.Printf("User %s is already deactivated.\n", id)
		return nil
	case errors.Is(err, user.ErrUserActive):
		fmt.Printf("User %s is already active.\n", id)
		return nil
	case err != nil:
		return err
	}

	if active {
		fmt.Printf("User %s activated.\n", id)
	} else {
		fmt.Printf("User %s deactivated.\n", id)
	}
	return nil
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "admin: %s: %v\n", what, err)
	os.Exit(1)
}
