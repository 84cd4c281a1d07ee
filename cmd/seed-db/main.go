// Command seed-db loads a demo catalog and accounts into the store database
// and prints bearer tokens for them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/webstore/store-api/internal/domain/auth"
	"github.com/webstore/store-api/internal/domain/product"
	"github.com/webstore/store-api/internal/domain/user"
	"github.com/webstore/store-api/internal/jwtauth"
	"github.com/webstore/store-api/internal/repository"
)

type productJSON struct {
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	Description   string          `json:"description"`
	ImageFileName string          `json:"imageFileName"`
}

type options struct {
	databaseURL  string
	productsFile string
	password     string
	secret       string
	issuer       string
	audience     string
	tokenTTL     time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&opts.password, "password", "password123", "password for the seeded accounts")
	flag.StringVar(&opts.secret, "auth-secret", "", "token signing secret (or STORE_AUTH_SECRET env)")
	flag.StringVar(&opts.issuer, "auth-issuer", "", "token issuer")
	flag.StringVar(&opts.audience, "auth-audience", "", "token audience")
	flag.DurationVar(&opts.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the printed tokens")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if opts.secret == "" {
		opts.secret = os.Getenv("STORE_AUTH_SECRET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, lg, repository.NewProductRepository(pool), opts.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	users, err := seedUsers(ctx, lg, repository.NewUserRepository(pool), opts.password)
	if err != nil {
		return errors.Wrap(err, "seed users")
	}

	if opts.secret == "" {
		lg.Warn("No auth secret given, skipping tokens")
		return nil
	}
	issuer := jwtauth.NewIssuer(jwtauth.Config{
		Secret:   []byte(opts.secret),
		Issuer:   opts.issuer,
		Audience: opts.audience,
	})
	for _, u := range users {
		token, err := issuer.Issue(auth.Identity{UserID: u.ID, Role: u.Role}, opts.tokenTTL)
		if err != nil {
			return errors.Wrapf(err, "issue token for %s", u.Email)
		}
		fmt.Printf("%s (%s): %s\n", u.Email, u.Role, token)
	}
	return nil
}

// seedProducts inserts the file's products into an empty catalog. A catalog
// that already has products is left alone.
func seedProducts(ctx context.Context, lg *zap.Logger, repo *repository.ProductRepository, path string) error {
	count, err := repo.Count(ctx, product.Filter{})
	if err != nil {
		return err
	}
	if count > 0 {
		lg.Info("Catalog not empty, skipping products", zap.Int("count", count))
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}
	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	for _, p := range products {
		row := &product.Product{
			Name:          p.Name,
			Brand:         p.Brand,
			Category:      p.Category,
			Price:         p.Price.Round(2),
			Description:   p.Description,
			ImageFilename: p.ImageFileName,
		}
		if err := repo.Create(ctx, row); err != nil {
			return errors.Wrapf(err, "insert product %q", p.Name)
		}
		lg.Info("Inserted product", zap.Int64("id", row.ID), zap.String("name", row.Name))
	}
	return nil
}

func seedUsers(ctx context.Context, lg *zap.Logger, repo *repository.UserRepository, password string) ([]user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	accounts := []user.User{
		{
			FirstName: "Ada", LastName: "Admin", Email: "admin@example.com",
			Phone: "+15550100", Address: "1 Main Street, Springfield, 12345, Country",
			Role: auth.RoleAdmin,
		},
		{
			FirstName: "Carl", LastName: "Client", Email: "client@example.com",
			Phone: "+15550101", Address: "22 Elm Street, Springfield, 12345, Country",
			Role: auth.RoleClient,
		},
	}
	for i := range accounts {
		accounts[i].Password = string(hash)
		if err := repo.Create(ctx, &accounts[i]); err != nil {
			return nil, err
		}
		lg.Info("Upserted user", zap.Int64("id", accounts[i].ID), zap.String("email", accounts[i].Email))
	}
	return accounts, nil
}
