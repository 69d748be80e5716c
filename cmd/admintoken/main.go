// Command admintoken mints a bearer token for the catalog admin routes.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cassiomorais/checkout/internal/infrastructure/config"
	"github.com/cassiomorais/checkout/internal/interfaces/http/middleware"
)

func main() {
	var (
		subject string
		ttl     time.Duration
	)
	flag.StringVar(&subject, "sub", "", "Token subject, usually the operator's email")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to auth.jwt_expiry)")
	flag.Parse()

	if subject == "" {
		fmt.Fprintln(os.Stderr, "-sub is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "auth.jwt_secret is not set")
		os.Exit(1)
	}
	if ttl <= 0 {
		ttl = cfg.Auth.JWTExpiry
	}

	token, err := middleware.IssueToken(cfg.Auth.JWTSecret, subject, middleware.RoleAdmin, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
