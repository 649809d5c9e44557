// Command tokengen mints development bearer tokens for the local server.
//
// Usage:
//
//	tokengen -sub user-1 -roles chefs,admin [-ttl 1h] [-seed]
//
// The signing secret is read from RECIPE_AUTH_DEV_TOKEN_SECRET. With -seed
// the identity is also written to the IAM table for the configured caller
// context.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/phrazzld/recipe-api/internal/config"
	"github.com/phrazzld/recipe-api/internal/domain"
	"github.com/phrazzld/recipe-api/internal/platform/postgres"
	"github.com/phrazzld/recipe-api/internal/service/auth"
	"github.com/phrazzld/recipe-api/internal/store"
)

func main() {
	sub := flag.String("sub", "", "subject (user id) of the token")
	roles := flag.String("roles", "", "comma-separated roles for the custom:roles claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	seed := flag.Bool("seed", false, "also write the identity to the IAM table")
	flag.Parse()

	token, err := run(context.Background(), *sub, splitRoles(*roles), *ttl, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func run(ctx context.Context, sub string, roles []string, ttl time.Duration, seed bool) (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}

	issuer, err := auth.NewDevTokenIssuer(cfg.Auth.DevTokenSecret, ttl)
	if err != nil {
		return "", err
	}
	token, err := issuer.Issue(ctx, sub, roles)
	if err != nil {
		return "", err
	}

	if seed {
		if cfg.Database.URL == "" || cfg.Auth.CallerContext == "" {
			return "", fmt.Errorf("seeding needs both a database URL and a caller context")
		}
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return "", err
		}
		defer func() { _ = db.Close() }()

		if err := seedIdentity(ctx, db, &domain.User{ID: sub, CallerContext: cfg.Auth.CallerContext, Roles: roles}); err != nil {
			return "", fmt.Errorf("failed to seed identity: %w", err)
		}
	}
	return token, nil
}

// seedIdentity writes u and reads it back within one transaction.
func seedIdentity(ctx context.Context, db *sql.DB, u *domain.User) error {
	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		identities := postgres.NewPostgresIdentityStore(tx)
		if err := identities.PutUser(ctx, u); err != nil {
			return err
		}
		_, err := identities.GetUser(ctx, u.ID, u.CallerContext)
		return err
	})
}

func splitRoles(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
