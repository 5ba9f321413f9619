// Command agent is a terminal client for a stockdeck server. It signs in
// against the identity provider, keeps the credential in a local store, and
// calls the server's JSON API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"

	"github.com/stockdeck/stockdeck/internal/agent/apiclient"
	"github.com/stockdeck/stockdeck/internal/agent/tokenstore"
	"github.com/stockdeck/stockdeck/internal/identity"
)

const usage = `Usage: agent <command> [arguments]

Commands:
  login <email>        sign in and store the credential
  logout               discard the stored credential
  favorites            list favorite tickers
  add <ticker>         add a ticker to favorites
  remove <ticker>      remove a ticker from favorites
  search <query>       search stocks by ticker or company name
  dashboard            show favorites with live quotes
  indexes              show major index quotes
`

type agentConfig struct {
	ServerURL      string `envconfig:"STOCKDECK_SERVER_URL" default:"http://localhost:8080"`
	FirebaseAPIKey string `envconfig:"FIREBASE_API_KEY" required:"true"`
	StorePath      string `envconfig:"STOCKDECK_STORE_PATH" default:""`
}

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	var cfg agentConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fatal("loading configuration", err)
	}

	storePath, err := resolveStorePath(cfg.StorePath)
	if err != nil {
		fatal("resolving store path", err)
	}

	store, err := tokenstore.Open(storePath)
	if err != nil {
		fatal("opening token store", err)
	}
	defer store.Close()

	client, err := apiclient.New(cfg.ServerURL, store, identity.NewClient(cfg.FirebaseAPIKey))
	if err != nil {
		fatal("creating API client", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch cmd := flag.Arg(0); cmd {
	case "login":
		err = login(ctx, client, flag.Arg(1))
	case "logout":
		err = client.SignOut(ctx)
		if err == nil {
			fmt.Println("Signed out.")
		}
	case "favorites":
		err = listFavorites(ctx, client)
	case "add":
		err = addFavorite(ctx, client, flag.Arg(1))
	case "remove":
		err = removeFavorite(ctx, client, flag.Arg(1))
	case "search":
		err = search(ctx, client, strings.Join(flag.Args()[1:], " "))
	case "dashboard":
		err = dashboard(ctx, client)
	case "indexes":
		err = indexes(ctx, client)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if errors.Is(err, apiclient.ErrAuthRequired) {
		fmt.Fprintln(os.Stderr, "Not signed in. Run: agent login <email>")
		os.Exit(1)
	}
	if err != nil {
		fatal(flag.Arg(0), err)
	}
}

// resolveStorePath defaults the credential store to a per-user location.
func resolveStorePath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(home, ".stockdeck")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}

	return filepath.Join(dir, "credentials.db"), nil
}

func login(ctx context.Context, client *apiclient.Client, email string) error {
	if email == "" {
		return errors.New("email required")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	if err := client.SignIn(ctx, email, string(password)); err != nil {
		return err
	}

	fmt.Printf("Signed in as %s.\n", email)
	return nil
}

func listFavorites(ctx context.Context, client *apiclient.Client) error {
	favs, err := client.Favorites(ctx)
	if err != nil {
		return err
	}

	if len(favs) == 0 {
		fmt.Println("No favorites yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tCOMPANY\tADDED")
	for _, f := range favs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Ticker, f.CompanyName, f.AddedAt)
	}
	return w.Flush()
}

func addFavorite(ctx context.Context, client *apiclient.Client, ticker string) error {
	if ticker == "" {
		return errors.New("ticker required")
	}

	// Resolve the company name so the favorites list is not bare symbols.
	companyName := ""
	if results, err := client.Search(ctx, ticker); err == nil {
		for _, res := range results {
			if strings.EqualFold(res.Ticker, ticker) {
				companyName = res.CompanyName
				break
			}
		}
	}

	if err := client.AddFavorite(ctx, ticker, companyName); err != nil {
		return err
	}

	fmt.Printf("Added %s to favorites.\n", strings.ToUpper(ticker))
	return nil
}

func removeFavorite(ctx context.Context, client *apiclient.Client, ticker string) error {
	if ticker == "" {
		return errors.New("ticker required")
	}

	if err := client.RemoveFavorite(ctx, ticker); err != nil {
		return err
	}

	fmt.Printf("Removed %s from favorites.\n", strings.ToUpper(ticker))
	return nil
}

func search(ctx context.Context, client *apiclient.Client, query string) error {
	if query == "" {
		return errors.New("search query required")
	}

	results, err := client.Search(ctx, query)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No matches.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tCOMPANY")
	for _, res := range results {
		fmt.Fprintf(w, "%s\t%s\n", res.Ticker, res.CompanyName)
	}
	return w.Flush()
}

func dashboard(ctx context.Context, client *apiclient.Client) error {
	quotes, err := client.Dashboard(ctx)
	if err != nil {
		return err
	}

	if len(quotes) == 0 {
		fmt.Println("No favorites yet.")
		return nil
	}

	return printQuotes(quotes)
}

func indexes(ctx context.Context, client *apiclient.Client) error {
	quotes, err := client.MajorIndexes(ctx)
	if err != nil {
		return err
	}
	return printQuotes(quotes)
}

func printQuotes(quotes []apiclient.Quote) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tCOMPANY\tPRICE\tCHANGE\tCHANGE %\tVOLUME")
	for _, q := range quotes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			q.Ticker, q.CompanyName,
			fmtFloat(q.Price, "$%.2f"),
			fmtFloat(q.Change, "%+.2f"),
			fmtFloat(q.ChangePercent, "%+.2f%%"),
			fmtInt(q.Volume))
	}
	return w.Flush()
}

func fmtFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func fmtInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", v)
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "agent: %s: %v\n", what, err)
	os.Exit(1)
}
