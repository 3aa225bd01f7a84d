package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"anchor/internal/auth"
	"anchor/internal/config"
)

// Devtoken prints a bearer token for local testing. Tokens are normally
// issued by the identity provider; this uses the same signing key as the api.
func main() {
	subject := flag.String("sub", "", "user id to embed (random uuid when empty)")
	email := flag.String("email", "student@example.com", "email claim")
	flag.Parse()

	cfg := config.Load()
	if cfg.Production() {
		fmt.Fprintln(os.Stderr, "devtoken refuses to run with APP_ENV=production")
		os.Exit(1)
	}
	if *subject == "" {
		*subject = uuid.NewString()
	}

	token, exp, err := auth.Issue(*subject, *email, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue token:", err)
		os.Exit(1)
	}
	fmt.Printf("sub:     %s\nexpires: %s\n\n%s\n", *subject, exp.Format("2006-01-02 15:04:05Z07:00"), token)
}
