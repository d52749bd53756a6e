package main

import (
	"fmt"
	"os"

	"github.com/syonosuke743/portfolio/internal/logging"
	"github.com/syonosuke743/portfolio/internal/modules/auth"
)

// Prints a bcrypt hash suitable for seeding users.password_hash.
func main() {
	if len(os.Args) < 2 {
		logging.Fatal().Msg("usage: hash-password <password>")
	}
	if len(os.Args[1]) < 6 {
		logging.Fatal().Msg("password must be at least 6 characters")
	}

	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to hash password")
	}
	fmt.Println(hash)
}
