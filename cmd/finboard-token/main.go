// Command finboard-token mints a bearer token for an owner, signed with
// JWT_SECRET, for local use against the API.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"finboard/internal/cli"
	"finboard/internal/log"
	"finboard/internal/middleware/auth"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentAuth, os.Getenv("LOG_LEVEL"))

	owner := flag.String("owner", "", "owner id to put in the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if strings.TrimSpace(*owner) == "" {
		fmt.Fprintln(os.Stderr, "usage: finboard-token -owner <id> [-ttl 24h]")
		os.Exit(2)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	token, err := auth.NewAuthenticator(secret, os.Getenv("JWT_ISSUER")).Issue(*owner, *ttl)
	if err != nil {
		logger.Error("Failed to issue token", log.FieldError, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
