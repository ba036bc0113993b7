// Command timetable-audit runs the teacher conflict audit for one school and,
// with -validate, the allocation capacity check for one class. It prints JSON and
// exits with status 2 when conflicts are found or the allocation does not fit.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
)

const exitFindings = 2

type auditOutput struct {
	SchoolID   string                `json:"schoolId"`
	Conflicts  *dto.ConflictReport   `json:"conflicts"`
	ClassID    string                `json:"classId,omitempty"`
	Validation *scheduler.Validation `json:"validation,omitempty"`
}

type options struct {
	schoolID string
	classID  string
	validate bool
}

var errMissingSchool = errors.New("-school is required")

func parseOptions(fs *flag.FlagSet, args []string) (options, error) {
	var opts options
	fs.StringVar(&opts.schoolID, "school", "", "school id to audit (required)")
	fs.StringVar(&opts.classID, "class", "", "class id for the allocation capacity check")
	fs.BoolVar(&opts.validate, "validate", false, "run the allocation capacity check for -class")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.schoolID == "" {
		return options{}, errMissingSchool
	}
	if opts.validate && opts.classID == "" {
		return options{}, errors.New("-validate requires -class")
	}
	return opts, nil
}

func main() {
	opts, err := parseOptions(flag.CommandLine, os.Args[1:])
	if errors.Is(err, errMissingSchool) {
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	slotRepo := repository.NewTimetableSlotRepository(db)
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(nil, metricsSvc, cfg.Timetable.CacheTTL, logr, false)

	out := auditOutput{SchoolID: opts.schoolID}
	findings := false

	report, err := service.NewConflictAuditService(slotRepo, cacheSvc, metricsSvc, logr).Check(ctx, opts.schoolID)
	if err != nil {
		logr.Sugar().Fatalw("conflict audit failed", "school_id", opts.schoolID, "error", err)
	}
	out.Conflicts = report
	findings = len(report.Conflicts) > 0

	if opts.validate {
		settingsSvc := service.NewSettingsService(repository.NewSettingsRepository(db), cacheSvc, cfg.Timetable.DefaultPeriodMinutes, nil, logr)
		allocationSvc := service.NewAllocationService(
			repository.NewClassRepository(db),
			repository.NewSubjectRepository(db),
			repository.NewTeacherRepository(db),
			repository.NewAllocationRepository(db),
			repository.NewPeriodRepository(db),
			settingsSvc,
			db,
			service.NewMemoryLocker(cfg.Timetable.LockWait, cfg.Timetable.LockRetry),
			cacheSvc,
			nil,
			logr,
		)
		validation, err := allocationSvc.Validate(ctx, opts.schoolID, opts.classID)
		if err != nil {
			logr.Sugar().Fatalw("allocation validation failed", "school_id", opts.schoolID, "class_id", opts.classID, "error", err)
		}
		out.ClassID = opts.classID
		out.Validation = validation
		findings = findings || !validation.IsValid
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logr.Sugar().Fatalw("failed to write report", "error", err)
	}

	if findings {
		logr.Sugar().Warnw("timetable audit found problems", "school_id", opts.schoolID, "conflicts", len(report.Conflicts))
		// deferred cleanup does not run on os.Exit
		logr.Sync() //nolint:errcheck
		db.Close()
		os.Exit(exitFindings)
	}
}
