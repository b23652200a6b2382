package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/partshub/storefront/internal/cart"
	"github.com/partshub/storefront/internal/catalog"
	"github.com/partshub/storefront/internal/config"
	"github.com/partshub/storefront/internal/events"
	"github.com/partshub/storefront/internal/logging"
	"github.com/partshub/storefront/internal/models"
	"github.com/partshub/storefront/internal/notify"
	"github.com/partshub/storefront/internal/session"
	"github.com/partshub/storefront/internal/storage"
)

// consoleNotifier prints toasts to the terminal; diagnostics still go through
// the structured logger.
type consoleNotifier struct{}

func (consoleNotifier) Success(msg string) { fmt.Println(msg) }
func (consoleNotifier) Error(msg string)   { fmt.Fprintln(os.Stderr, msg) }
func (consoleNotifier) Info(msg string)    { fmt.Println(msg) }

type app struct {
	cart    *cart.Store
	session *session.Store
	catalog *catalog.Client
}

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	st, err := storage.Open(cfg.StoragePath)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	var n notify.Notifier = consoleNotifier{}
	ctx := context.Background()

	sess := session.New(session.Config{
		BaseURLs:        cfg.APIBaseURLs,
		OfflineLogin:    cfg.OfflineLogin,
		OfflineEmail:    cfg.OfflineEmail,
		OfflinePassword: cfg.OfflinePassword,
		JWTSecret:       cfg.JWTSecret,
	}, st, n, producer, logger)

	a := &app{
		cart:    cart.New(ctx, st, n, producer, logger),
		session: sess,
		catalog: catalog.NewClient(cfg.APIBaseURLs[0], sess.Token),
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		return a.session.Logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "products":
		return a.products(ctx)
	case "add":
		return a.add(ctx, args)
	case "remove":
		return a.remove(ctx, args)
	case "set-qty":
		return a.setQuantity(ctx, args)
	case "cart":
		return a.showCart()
	case "clear":
		return a.cart.Clear(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	role := fs.String("role", "", "expected role (optional)")
	fs.Parse(args)

	if *email == "" || *password == "" {
		return fmt.Errorf("login: email and password are required")
	}

	loggedRole, err := a.session.Login(ctx, *email, *password, *role)
	if err != nil {
		return err
	}

	// Post-login routing is the caller's concern, not the store's.
	switch loggedRole {
	case models.RoleAdmin:
		fmt.Println("-> admin back-office")
	case models.RoleVendor:
		fmt.Println("-> seller center")
	default:
		fmt.Println("-> storefront")
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "display name")
	fs.Parse(args)

	if *email == "" || *password == "" {
		return fmt.Errorf("register: email and password are required")
	}
	return a.session.Register(ctx, *email, *password, *name)
}

func (a *app) whoami(ctx context.Context) error {
	if !a.session.CheckAuth(ctx) {
		fmt.Println("not signed in")
		return nil
	}
	u := a.session.Current()
	fmt.Printf("%s <%s> (%s)\n", u.Name, u.Email, u.Role)
	return nil
}

func (a *app) products(ctx context.Context) error {
	items, err := a.catalog.Products(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load products:", err)
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBRAND\tPRICE\tSTOCK")
	for _, p := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\n", p.ID, p.Name, p.Brand, p.Price, p.Stock)
	}
	return w.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	id := fs.String("id", "", "product id")
	qty := fs.Uint("qty", 1, "quantity")
	size := fs.String("size", "", "size selector")
	color := fs.String("color", "", "color selector")
	fs.Parse(args)

	product, err := a.catalog.Product(ctx, *id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load product:", err)
		return err
	}
	return a.cart.Add(ctx, *product, uint(*qty), *size, *color)
}

func (a *app) remove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	id := fs.String("id", "", "product id")
	size := fs.String("size", "", "size selector")
	color := fs.String("color", "", "color selector")
	fs.Parse(args)

	return a.cart.Remove(ctx, *id, *size, *color)
}

func (a *app) setQuantity(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-qty", flag.ExitOnError)
	id := fs.String("id", "", "product id")
	qty := fs.Int("qty", 1, "new quantity; zero removes the line")
	size := fs.String("size", "", "size selector")
	color := fs.String("color", "", "color selector")
	fs.Parse(args)

	return a.cart.UpdateQuantity(ctx, *id, *qty, *size, *color)
}

func (a *app) showCart() error {
	lines := a.cart.Lines()
	if len(lines) == 0 {
		fmt.Println("cart is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tSIZE\tCOLOR\tQTY\tPRICE")
	for _, l := range lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\n", l.Product.Name, l.Size, l.Color, l.Quantity, l.Product.Price*float64(l.Quantity))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("items: %d  total: %.2f\n", a.cart.Count(), a.cart.Total())
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: storefront <command> [flags]

commands:
  login      -email -password [-role]
  register   -email -password [-name]
  logout
  whoami
  products
  add        -id [-qty] [-size] [-color]
  remove     -id [-size] [-color]
  set-qty    -id -qty [-size] [-color]
  cart
  clear`)
}
