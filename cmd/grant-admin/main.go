// Command grant-admin toggles the admin flag on an existing account. The
// admin role unlocks the login activity view in the web UI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"expensify/internal/config"
	"expensify/internal/core"
	"expensify/internal/storage"
)

func main() {
	_ = godotenv.Load()

	email := flag.String("email", "", "email of the account to change")
	revoke := flag.Bool("revoke", false, "revoke the admin role instead of granting it")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: grant-admin -email user@example.com [-revoke]")
		os.Exit(2)
	}

	cfg := config.Load()
	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open storage %s: %v\n", cfg.SQLiteDBPath, err)
		os.Exit(1)
	}
	defer repo.Close()

	err = repo.SetAdmin(context.Background(), *email, !*revoke)
	switch {
	case errors.Is(err, core.ErrUnknownEmail):
		fmt.Fprintf(os.Stderr, "no account with email %s\n", *email)
		os.Exit(1)
	case err != nil:
		fmt.Fprintf(os.Stderr, "update account: %v\n", err)
		os.Exit(1)
	}

	if *revoke {
		fmt.Printf("admin role revoked from %s\n", *email)
	} else {
		fmt.Printf("admin role granted to %s\n", *email)
	}
}
