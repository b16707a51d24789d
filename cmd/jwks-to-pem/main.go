package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"draftkeeper/internal/util"

	"github.com/joho/godotenv"
)

// Prints the project's ES256 signing key as PEM so it can be used as
// SUPABASE_JWT_SECRET against a local stack with asymmetric keys.
func main() {
	_ = godotenv.Load()

	base := os.Getenv("SUPABASE_URL")
	if base == "" {
		base = "http://127.0.0.1:54321"
	}
	url := flag.String("url", util.JWKSURL(base), "JWKS endpoint")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pemKey, err := util.FetchSigningKeyPEM(ctx, &http.Client{Timeout: 10 * time.Second}, *url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(pemKey)
}
