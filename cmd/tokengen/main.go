// Command tokengen mints admin bearer tokens for the operator endpoints.
// Without -secret it signs with ADMIN_JWT_SECRET or the development default,
// which the server rejects in production.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"beneficiary/internal/platform/config"
	"beneficiary/pkg/platform/middleware/admin"
)

type tokenOutput struct {
	Token     string `json:"token"`
	Subject   string `json:"subject"`
	ExpiresAt string `json:"expires_at"`
	Usage     string `json:"usage"`
}

func main() {
	subject := flag.String("subject", "operator", "Token subject, recorded as the acting admin")
	ttl := flag.Duration("ttl", 15*time.Minute, "Token time-to-live")
	secret := flag.String("secret", "", "Signing secret (default: ADMIN_JWT_SECRET or the development secret)")
	asJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	key := *secret
	if key == "" {
		key = os.Getenv("ADMIN_JWT_SECRET")
	}
	if key == "" {
		key = config.DevAdminSecret
	}

	now := time.Now()
	token, err := admin.IssueToken([]byte(key), *subject, *ttl, now)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}

	if !*asJSON {
		fmt.Println(token)
		return
	}
	out := tokenOutput{
		Token:     token,
		Subject:   *subject,
		ExpiresAt: now.Add(*ttl).UTC().Format(time.RFC3339),
		Usage:     "Authorization: Bearer " + token,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
}
