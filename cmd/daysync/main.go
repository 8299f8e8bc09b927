package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/claude/daysync/internal/config"
	"github.com/claude/daysync/internal/garmin"
	"github.com/claude/daysync/internal/googleauth"
	"github.com/claude/daysync/internal/models"
	"github.com/claude/daysync/internal/sink"
	"github.com/claude/daysync/internal/state"
	syncer "github.com/claude/daysync/internal/sync"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	profileName := flag.String("profile", "default", "config profile to sync")
	startStr := flag.String("start", "", "first date to sync (YYYY-MM-DD)")
	endStr := flag.String("end", "", "last date to sync (YYYY-MM-DD, defaults to -start)")
	output := flag.String("output", "sheets", "destination store: sheets, csv or postgres")
	dryRun := flag.Bool("dry-run", false, "fetch and plan but don't write to the destination")
	resetGoogle := flag.Bool("reset-google-auth", false, "drop the stored Google token and re-run the consent flow")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("daysync", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *startStr == "" {
		fmt.Fprintf(os.Stderr, "Usage: daysync -start YYYY-MM-DD [-end YYYY-MM-DD] [-output sheets|csv|postgres] [-profile NAME] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	start, err := time.Parse(models.DateLayout, *startStr)
	if err != nil {
		log.Error("invalid -start date", "value", *startStr, "error", err)
		os.Exit(1)
	}
	end := start
	if *endStr != "" {
		end, err = time.Parse(models.DateLayout, *endStr)
		if err != nil {
			log.Error("invalid -end date", "value", *endStr, "error", err)
			os.Exit(1)
		}
	}
	if end.Before(start) {
		log.Error("-end is before -start", "start", *startStr, "end", *endStr)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	profile, err := cfg.Profile(*profileName)
	if err != nil {
		log.Error("failed to resolve profile", "error", err)
		os.Exit(1)
	}
	if profile.GarminEmail == "" || profile.GarminPassword == "" {
		log.Error("profile is missing Garmin credentials", "profile", *profileName)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := state.Open(cfg.State.Dir, cfg.State.MigrationsDir)
	if err != nil {
		log.Error("failed to open state store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	last, err := st.LastRun(ctx)
	switch {
	case err != nil:
		log.Warn("failed to load previous run", "error", err)
	case last != nil:
		log.Info("previous run",
			"finished", last.FinishedAt.Format(time.RFC3339),
			"range", last.StartDate+".."+last.EndDate, "status", last.Status)
	}

	if *resetGoogle {
		if err := googleauth.Reset(ctx, st); err != nil {
			log.Error("failed to reset Google token", "error", err)
			os.Exit(1)
		}
		log.Info("stored Google token dropped")
	}

	client := garmin.NewClient(profile.GarminEmail, profile.GarminPassword, log)
	restored := restoreGarminSession(ctx, st, client, profile.GarminEmail, log)
	if !restored {
		if err := loginGarmin(ctx, client); err != nil {
			log.Error("Garmin sign-in failed", "error", err)
			os.Exit(1)
		}
	}

	startedAt := time.Now()
	records, result, err := syncer.Run(ctx, client, start, end, log)
	if err != nil && restored {
		// The persisted session may have been revoked server-side.
		var authErr *garmin.AuthError
		if errors.As(err, &authErr) {
			log.Warn("stored session rejected, signing in again")
			if err = loginGarmin(ctx, client); err == nil {
				records, result, err = syncer.Run(ctx, client, start, end, log)
			}
		}
	}
	if err != nil {
		log.Error("sync failed", "error", err)
		os.Exit(1)
	}
	persistGarminSession(ctx, st, client, profile.GarminEmail, log)

	dest, cleanup, err := buildSink(ctx, *output, profile, cfg, st, *dryRun, log)
	if err != nil {
		log.Error("failed to set up destination", "output", *output, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if *dryRun {
		existing, err := dest.ListRows(ctx)
		if err != nil {
			log.Error("failed to list destination rows", "error", err)
			os.Exit(1)
		}
		plan := sink.BuildPlan(existing, records)
		log.Info("dry run, nothing written",
			"days", result.Days, "degraded", result.DaysDegraded,
			"would_update", len(plan.Updates), "would_append", len(plan.Appends))
		return
	}

	plan, err := sink.Upsert(ctx, dest, records, log)
	status := "success"
	if err != nil {
		status = "failed"
		var credErr *sink.CredentialError
		if errors.As(err, &credErr) {
			log.Error("destination rejected credentials; run again with -reset-google-auth to re-authorize", "error", err)
		} else {
			log.Error("writing to destination failed", "error", err)
		}
	}

	run := state.Run{
		ID:         uuid.NewString(),
		Profile:    *profileName,
		StartDate:  start.Format(models.DateLayout),
		EndDate:    end.Format(models.DateLayout),
		Days:       result.Days,
		Updates:    len(plan.Updates),
		Appends:    len(plan.Appends),
		Status:     status,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	if recErr := st.RecordRun(ctx, run); recErr != nil {
		log.Warn("failed to record run", "error", recErr)
	}

	if err != nil {
		os.Exit(1)
	}
	log.Info("sync complete",
		"days", result.Days, "degraded", result.DaysDegraded,
		"updated", len(plan.Updates), "appended", len(plan.Appends))
}

// loginGarmin runs the SSO sign-in, prompting on stdin when the account
// requires a one-time MFA code.
func loginGarmin(ctx context.Context, client *garmin.Client) error {
	err := client.Login(ctx)
	var mfa *garmin.MFARequiredError
	if !errors.As(err, &mfa) {
		return err
	}

	fmt.Fprint(os.Stderr, "Enter the Garmin MFA code: ")
	reader := bufio.NewReader(os.Stdin)
	code, readErr := reader.ReadString('\n')
	if readErr != nil {
		return fmt.Errorf("reading MFA code: %w", readErr)
	}
	return client.ResumeLogin(ctx, mfa.Ticket, strings.TrimSpace(code))
}

func garminTokenKey(email string) string { return "garmin:" + email }

// restoreGarminSession loads a persisted session and reports whether one was
// installed.
func restoreGarminSession(ctx context.Context, st *state.Store, client *garmin.Client, email string, log *slog.Logger) bool {
	raw, err := st.Token(ctx, garminTokenKey(email))
	if err != nil {
		log.Warn("failed to load stored Garmin session", "error", err)
		return false
	}
	if raw == "" {
		return false
	}
	var sess garmin.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || !sess.Valid() {
		return false
	}
	client.RestoreSession(&sess)
	log.Info("restored Garmin session")
	return true
}

func persistGarminSession(ctx context.Context, st *state.Store, client *garmin.Client, email string, log *slog.Logger) {
	sess := client.Session()
	if !sess.Valid() {
		return
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return
	}
	if err := st.SetToken(ctx, garminTokenKey(email), string(raw)); err != nil {
		log.Warn("failed to persist Garmin session", "error", err)
	}
}

// buildSink constructs the destination for the chosen output mode. The
// returned cleanup releases any held connections.
func buildSink(ctx context.Context, output string, profile config.Profile, cfg *config.Config, st *state.Store, dryRun bool, log *slog.Logger) (sink.Sink, func(), error) {
	noop := func() {}
	switch output {
	case "csv":
		if profile.CSVPath == "" {
			return nil, noop, fmt.Errorf("profile has no csv_path")
		}
		return sink.NewCSVSink(profile.CSVPath), noop, nil

	case "sheets":
		if profile.SpreadsheetID == "" {
			return nil, noop, fmt.Errorf("profile has no spreadsheet_id")
		}
		if cfg.Google.CredentialsPath == "" {
			return nil, noop, fmt.Errorf("google.credentials_path is not configured")
		}
		hc, err := googleauth.NewClient(ctx, cfg.Google.CredentialsPath, st, log)
		if err != nil {
			return nil, noop, err
		}
		s := sink.NewSheetsSink(hc, profile.SpreadsheetID, profile.SheetName, log)
		if !dryRun {
			if err := s.EnsureSheet(ctx); err != nil {
				return nil, noop, err
			}
		}
		return s, noop, nil

	case "postgres":
		if profile.PostgresDSN == "" {
			return nil, noop, fmt.Errorf("profile has no postgres_dsn")
		}
		s, err := sink.NewPostgresSink(ctx, profile.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		if !dryRun {
			if err := s.EnsureSchema(ctx); err != nil {
				s.Close()
				return nil, noop, err
			}
		}
		return s, s.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown output %q (want sheets, csv or postgres)", output)
	}
}
