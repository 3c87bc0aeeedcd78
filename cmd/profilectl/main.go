// Command profilectl runs one populate or validate pass and prints the batch
// report as JSON. Without -users it processes the next scheduled batch.
//
//	profilectl [-users id1,id2] populate|validate
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"beneficiary/internal/platform/config"
	"beneficiary/internal/platform/logger"
	"beneficiary/internal/profile/bootstrap"
	"beneficiary/internal/profile/models"
	id "beneficiary/pkg/domain"
)

var errUsage = errors.New("usage: profilectl [-users id1,id2] populate|validate")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv); err != nil {
		fmt.Fprintln(os.Stderr, "profilectl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookup config.LookupFunc) error {
	fs := flag.NewFlagSet("profilectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	users := fs.String("users", "", "Comma-separated user IDs (default: next scheduled batch)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	pipeline := fs.Arg(0)
	if pipeline != "populate" && pipeline != "validate" {
		return errUsage
	}

	var ids []id.UserID
	if *users != "" {
		parsed, err := id.ParseUserIDs(strings.Split(*users, ","))
		if err != nil {
			return err
		}
		ids = parsed
	}

	cfg, err := config.Load(lookup)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(ctx, cfg, logger.NewWithWriter(stderr, cfg.LogLevel))
	if err != nil {
		return err
	}
	defer app.Close()

	// Per-person failures still produce a report; print it before failing.
	report, runErr := execute(ctx, app, pipeline, ids)
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	return runErr
}

func execute(ctx context.Context, app *bootstrap.App, pipeline string, ids []id.UserID) (models.BatchReport, error) {
	svc := app.Service
	switch {
	case pipeline == "populate" && ids != nil:
		return svc.PopulateUsers(ctx, ids)
	case pipeline == "populate":
		return svc.RunPopulateBatch(ctx)
	case ids != nil:
		return svc.ValidateUsers(ctx, ids)
	default:
		return svc.RunValidateBatch(ctx)
	}
}
