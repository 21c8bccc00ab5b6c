package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"fotocasa-scraper/browser"
	"fotocasa-scraper/config"
	"fotocasa-scraper/models"
	"fotocasa-scraper/scraper/fotocasa"
	"fotocasa-scraper/services"
	"fotocasa-scraper/storage"
	"fotocasa-scraper/utils"
)

const usage = `usage: fotoscrape <command>

commands:
  seed      harvest listing links from the start URLs
  extract   scrape every harvested listing into the listings CSV
  count     sum the advertised result counts of the start URLs
  check     test start URLs and harvested links against robots.txt
  report    print insights over the scraped listings
  schedule  run seed then extract on SCRAPE_CRON until interrupted
`

const exitBlocked = 2

type app struct {
	cfg     *config.Config
	logger  *utils.Logger
	scraper *fotocasa.Scraper
}

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	logger := utils.NewLogger()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)
	if err := logger.AttachErrorLog(cfg.ErrorLogPath); err != nil {
		logger.Warn("Error log disabled: %v", err)
	}
	defer logger.Close()

	pacer := utils.NewPacer()
	launcher := browser.NewChromeLauncher(browser.ChromeOptions{
		ChromeBin:   cfg.ChromeBin,
		Headless:    cfg.Headless,
		Width:       cfg.WindowWidth,
		Height:      cfg.WindowHeight,
		UserAgents:  cfg.UserAgents,
		PageTimeout: cfg.PageTimeout,
	}, pacer, logger)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		scraper: fotocasa.New(fotocasa.OptionsFromConfig(cfg), launcher, pacer, logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch cmd := flag.Arg(0); cmd {
	case "seed":
		runErr = a.seed(ctx)
	case "extract":
		runErr = a.extract(ctx)
	case "count":
		runErr = a.count(ctx)
	case "check":
		runErr = a.check(ctx)
	case "report":
		runErr = a.report()
	case "schedule":
		runErr = a.schedule(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(1)
	}

	if runErr != nil {
		logger.Error("%s failed: %v", flag.Arg(0), runErr)
		logger.Close()
		if errors.Is(runErr, fotocasa.ErrBlocked) {
			os.Exit(exitBlocked)
		}
		os.Exit(1)
	}
}

func (a *app) seed(ctx context.Context) error {
	startURLs, err := storage.ReadStartURLs(a.cfg.StartURLsPath)
	if err != nil {
		return err
	}
	if len(startURLs) == 0 {
		a.logger.Warn("No start URLs in %s", a.cfg.StartURLsPath)
		return nil
	}

	a.logger.Info("=== Seeding %d start URLs → %s ===", len(startURLs), a.cfg.LinksPath)
	res, err := a.scraper.Seed(ctx, startURLs, storage.NewLinkStore(a.cfg.LinksPath))
	a.logger.Info("Seed summary — start URLs: %d | empty: %d | links written: %d",
		res.StartURLs, res.SkippedEmpty, res.LinksWritten)
	return err
}

func (a *app) extract(ctx context.Context) error {
	var links storage.LinkSource = storage.NewLinkStore(a.cfg.LinksPath)

	w, err := storage.NewListingCSVWriter(a.cfg.ListingsPath)
	if err != nil {
		return err
	}
	res, err := a.scraper.Extract(ctx, links, w)
	if cerr := w.Close(); cerr != nil && err == nil {
		err = cerr
	}
	a.logger.Info("Extract summary — links: %d | written: %d | dropped: %d | blocked: %t",
		res.Links, res.Written, res.Dropped, res.Blocked)
	if err != nil {
		return err
	}

	if a.cfg.PostgresEnabled {
		if err := a.mirror(); err != nil {
			a.logger.Error("PostgreSQL mirror failed: %v", err)
		}
	}
	if a.cfg.S3.Enabled() {
		if err := a.export(ctx); err != nil {
			a.logger.Error("S3 export failed: %v", err)
		}
	}
	return nil
}

// mirror copies the cleaned listings CSV into PostgreSQL under a fresh run id.
func (a *app) mirror() error {
	records, err := storage.ReadListings(a.cfg.ListingsPath)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	listings := services.NewCleaner(a.logger).Clean(records, runID)

	pg, err := a.openPostgres()
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Write(listings); err != nil {
		return err
	}
	a.logger.Info("Mirrored %d listings to PostgreSQL (run %s)", len(listings), runID)
	return nil
}

func (a *app) export(ctx context.Context) error {
	exporter, err := storage.NewS3Exporter(ctx, a.cfg.S3)
	if err != nil {
		return err
	}
	keys, err := exporter.ExportFiles(ctx, a.cfg.LinksPath, a.cfg.ListingsPath)
	for _, k := range keys {
		a.logger.Info("Uploaded s3://%s/%s", a.cfg.S3.Bucket, k)
	}
	return err
}

func (a *app) openPostgres() (*storage.PostgresWriter, error) {
	return storage.NewPostgresWriter(a.cfg.DSN(), &utils.RetryConfig{
		MaxAttempts: a.cfg.MaxRetries,
		BaseDelay:   time.Second,
		Logger:      a.logger,
	})
}

func (a *app) count(ctx context.Context) error {
	startURLs, err := storage.ReadStartURLs(a.cfg.StartURLsPath)
	if err != nil {
		return err
	}

	report, err := a.scraper.Count(ctx, startURLs)
	for _, c := range report.PerURL {
		fmt.Printf("%s: %d\n", c.URL, c.Count)
	}
	fmt.Printf("Total number of listings: %d\n", report.Total)
	return err
}

func (a *app) check(ctx context.Context) error {
	startURLs, err := storage.ReadStartURLs(a.cfg.StartURLsPath)
	if err != nil {
		return err
	}
	linkURLs, err := storage.NewLinkStore(a.cfg.LinksPath).ReadURLs()
	if err != nil {
		return err
	}

	checker := services.NewComplianceChecker(&http.Client{Timeout: 30 * time.Second}, a.cfg.RobotsAgent, a.logger)
	if err := checker.Fetch(ctx, a.cfg.RobotsURL); err != nil {
		return err
	}
	services.PrintVerdicts(os.Stdout, checker.Check(append(startURLs, linkURLs...)))
	return nil
}

func (a *app) report() error {
	var listings []*models.Listing

	if a.cfg.PostgresEnabled {
		pg, err := a.openPostgres()
		if err != nil {
			a.logger.Warn("PostgreSQL unavailable, reporting from CSV: %v", err)
		} else {
			listings, err = pg.FetchAll()
			pg.Close()
			if err != nil {
				a.logger.Warn("Failed to fetch listings from DB, reporting from CSV: %v", err)
			}
		}
	}

	if listings == nil {
		records, err := storage.ReadListings(a.cfg.ListingsPath)
		if err != nil {
			return err
		}
		listings = services.NewCleaner(a.logger).Clean(records, "")
	}

	insights := services.NewInsightService(a.logger)
	insights.Print(insights.Generate(listings))
	return nil
}

// schedule runs seed then extract on every cron tick until ctx is cancelled.
// A blocked run is logged and the next tick tries again.
func (a *app) schedule(ctx context.Context) error {
	if a.cfg.ScrapeCron == "" {
		return errors.New("schedule: SCRAPE_CRON is not set")
	}

	c := cron.New()
	_, err := c.AddFunc(a.cfg.ScrapeCron, func() {
		a.logger.Info("=== Scheduled run starting ===")
		if err := a.seed(ctx); err != nil {
			a.logger.Error("Scheduled seed failed: %v", err)
			return
		}
		if err := a.extract(ctx); err != nil {
			a.logger.Error("Scheduled extract failed: %v", err)
			return
		}
		a.logger.Info("=== Scheduled run complete ===")
	})
	if err != nil {
		return fmt.Errorf("schedule: invalid cron expression %q: %w", a.cfg.ScrapeCron, err)
	}

	c.Start()
	a.logger.Info("Scheduler running with cron %q. Press Ctrl+C to stop.", a.cfg.ScrapeCron)
	<-ctx.Done()

	a.logger.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	return nil
}
