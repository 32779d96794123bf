package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/adapters/keyword"
	"github.com/mikey/usenet-explorer/internal/core"
	"github.com/mikey/usenet-explorer/internal/di"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build application container: %v\n", err)
		os.Exit(1)
	}

	err = container.Invoke(func(service *core.ExplorerService, logger *zap.Logger) error {
		defer logger.Sync()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		switch {
		case flags.Check:
			return runCheck(ctx, service)
		case flags.List || flags.Refresh:
			return runList(ctx, service, flags)
		case flags.Pattern != "":
			if flags.Raw {
				return runRaw(ctx, service, flags)
			}
			return runSearch(ctx, service, flags)
		default:
			return fmt.Errorf("nothing to do: pass -check, -list, -refresh, or -pattern (see -help)")
		}
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func runCheck(ctx context.Context, service *core.ExplorerService) error {
	start := time.Now()
	if err := service.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection check failed: %w", err)
	}
	fmt.Printf("Connection OK (%v)\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runList(ctx context.Context, service *core.ExplorerService, flags *di.CLIFlags) error {
	report, err := service.ListCatalog(ctx, core.ListOptions{
		ForceRefresh: flags.Refresh,
		Substring:    flags.Pattern,
		MaxResults:   flags.MaxResults,
	})
	if err != nil {
		return err
	}

	fmt.Printf("=== Catalog ===\n")
	if report.Info.Exists {
		fmt.Printf("Fetched: %s (%.1fh ago)\n", report.Info.FetchedAt.Format(time.RFC3339), report.Info.AgeHours)
	}
	fmt.Printf("Groups: %d", report.Info.GroupCount)
	if report.Refreshed {
		fmt.Printf(" (refreshed)")
	} else if report.Info.Stale {
		fmt.Printf(" (stale)")
	}
	fmt.Printf("\n\n")

	for _, entry := range report.Entries {
		fmt.Printf("%-50s %12d-%-12d %s\n", entry.Name, entry.Low, entry.High, entry.Flag)
	}
	if report.Limited {
		fmt.Printf("... list truncated at %d entries\n", len(report.Entries))
	}
	return nil
}

func runSearch(ctx context.Context, service *core.ExplorerService, flags *di.CLIFlags) error {
	if flags.Poster == "" && flags.Topic == "" {
		return fmt.Errorf("a search needs -poster and/or -topic (or -raw for an unscored listing)")
	}

	start := time.Now()
	report, err := service.Search(ctx, core.SearchParams{
		Pattern:    flags.Pattern,
		Period:     flags.Period,
		Poster:     flags.Poster,
		Topic:      flags.Topic,
		WithBody:   flags.WithBody,
		MaxGroups:  flags.MaxGroups,
		MaxResults: flags.MaxResults,
	})
	if err != nil {
		return err
	}

	crit := core.Criterion{Poster: flags.Poster, Topic: flags.Topic, WithBody: flags.WithBody}
	fmt.Printf("=== Search ===\n")
	fmt.Printf("Looking for %s in %q\n", keyword.Describe(crit), flags.Pattern)
	fmt.Printf("Window: last %d days (budget %d headers per group)\n", report.Window.Days, report.Window.PerGroupBudget)
	printGroupSummary(report.GroupsMatched, report.GroupsSucceeded, report.GroupsFailed, report.TruncatedGroups, report.Failures)
	if report.FallbackUsed {
		fmt.Printf("Scored with keyword matching (no relevance model available)\n")
	}

	fmt.Printf("\n=== Results (%d) ===\n", len(report.Messages))
	for i, msg := range report.Messages {
		printMessage(i+1, msg)
	}
	fmt.Printf("\nSearch took %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runRaw(ctx context.Context, service *core.ExplorerService, flags *di.CLIFlags) error {
	report, err := service.ListRaw(ctx, flags.Pattern, flags.Period)
	if err != nil {
		return err
	}

	fmt.Printf("=== Headers ===\n")
	fmt.Printf("Window: last %d days (budget %d headers per group)\n", report.Window.Days, report.Window.PerGroupBudget)
	printGroupSummary(report.GroupsMatched, report.GroupsSucceeded, report.GroupsFailed, report.TruncatedGroups, report.Failures)

	messages := report.Messages
	if flags.MaxResults > 0 && len(messages) > flags.MaxResults {
		messages = messages[:flags.MaxResults]
	}
	fmt.Printf("\n=== Messages (%d of %d) ===\n", len(messages), report.TotalCount)
	for i, msg := range messages {
		printMessage(i+1, msg)
	}
	return nil
}

func printGroupSummary(matched, succeeded, failed, truncated int, failures map[string]string) {
	fmt.Printf("Groups: %d matched, %d fetched, %d failed", matched, succeeded, failed)
	if truncated > 0 {
		fmt.Printf(" (%d more dropped by the group cap)", truncated)
	}
	fmt.Printf("\n")
	for group, reason := range failures {
		fmt.Printf("  %s: %s\n", group, reason)
	}
}

func printMessage(rank int, msg core.MessageHeader) {
	date := msg.RawDate
	if msg.Date != nil {
		date = msg.Date.Format("2006-01-02 15:04")
	}
	fmt.Printf("%3d. [%s] %s\n", rank, msg.Group, msg.Subject)
	fmt.Printf("     From: %s  Date: %s\n", msg.From, date)
	if msg.Assessment != nil {
		fmt.Printf("     Relevance: %.2f  %s\n", msg.Assessment.Confidence, msg.Assessment.Reasoning)
	}
}
