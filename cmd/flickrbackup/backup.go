package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"flickrbackup/internal/app"
	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/ui"
)

var dumpPath string

var fullCmd = &cobra.Command{
	Use:   "full",
	Short: "Back up every photoset and every photo in no set",
	Long: `Back up the whole library. Each photoset is split into pages of 500
photos, each page is listed and its photos are downloaded to
<root>/<set title>/<photo title>-<id>.<ext>. Photos in no set land in
<root>/NotInSet. Files that already exist are skipped.

Characters not allowed in file names (/ \ : " * ? < > |) are replaced with
_ in both folder and file names. Photos whose title contains one of them
are downloaded again when the existing backup kept the raw title.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd.Context(), "full", func(ctx context.Context, a *app.App) error {
			report, err := a.Full(ctx)
			if err != nil {
				return err
			}
			ui.PrintInfo("Photosets", strconv.Itoa(report.Sets))
			ui.PrintInfo("Pages queued", strconv.Itoa(report.Pages))
			ui.PrintInfo("Not in set", strconv.Itoa(report.Downloads))
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:     "set <photoset-id>",
	Short:   "Back up a single photoset",
	Example: `  flickrbackup set 72157594162447187`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd.Context(), "set", func(ctx context.Context, a *app.App) error {
			pages, err := a.Set(ctx, args[0])
			if err != nil {
				return err
			}
			ui.PrintInfo("Pages queued", strconv.Itoa(pages))
			return nil
		})
	},
}

var notInSetCmd = &cobra.Command{
	Use:   "notinset",
	Short: "Back up photos that belong to no photoset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd.Context(), "notinset", func(ctx context.Context, a *app.App) error {
			n, err := a.NotInSet(ctx)
			if err != nil {
				return err
			}
			ui.PrintInfo("Downloads queued", strconv.Itoa(n))
			return nil
		})
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Back up photos changed since the last incremental run",
	Long: `List photos updated since the stored sync cursor, look up the first set
of each and download it into that set's folder (or NoSet). The cursor
moves to the start time of this run once every photo has been queued.
Without a stored cursor the whole library is listed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd.Context(), "recent", func(ctx context.Context, a *app.App) error {
			report, err := a.Recent(ctx)
			if err != nil {
				return err
			}
			if report.Since != nil {
				ui.PrintInfo("Since", time.Unix(*report.Since, 0).UTC().Format(time.RFC3339))
			} else {
				ui.PrintInfo("Since", "beginning")
			}
			ui.PrintInfo("Photos queued", strconv.Itoa(report.Published))
			if !report.Persisted {
				ui.PrintWarning("Sync cursor was not saved; the next run repeats this window")
			}
			return nil
		})
	},
}

var yearCmd = &cobra.Command{
	Use:   "year <yyyy>",
	Short: "Create a remote photoset for a year and add that year's photos",
	Long: `Search the photos taken during the given year, create a photoset titled
with the year using the first result as cover, and add every result to it.`,
	Example: `  flickrbackup year 2019`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := parseYearArg(args[0])
		if err != nil {
			return err
		}
		return runOneShot(cmd.Context(), "year", func(ctx context.Context, a *app.App) error {
			setID, n, err := a.Year(ctx, year)
			if err != nil {
				return err
			}
			ui.PrintInfo("Photoset", setID)
			ui.PrintInfo("Assignments queued", strconv.Itoa(n))
			return nil
		})
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write the full library listing to a JSON file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd.Context(), "dump", func(ctx context.Context, a *app.App) error {
			dump, err := a.Dump(ctx, dumpPath)
			if err != nil {
				return err
			}
			ui.PrintInfo("Photos listed", strconv.Itoa(len(dump.Photos)))
			ui.PrintInfo("Written to", dumpPath)
			return nil
		})
	},
}

var byYearCmd = &cobra.Command{
	Use:   "byyear <yyyy>",
	Short: "Download the photos of one year from a dump into <root>/<yyyy>",
	Example: `  flickrbackup dump --out flickr.json
  flickrbackup byyear 2019 --out flickr.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := parseYearArg(args[0])
		if err != nil {
			return err
		}
		return runOneShot(cmd.Context(), "byyear", func(ctx context.Context, a *app.App) error {
			n, err := a.ByYear(ctx, dumpPath, year)
			if err != nil {
				return err
			}
			ui.PrintInfo("Downloads queued", strconv.Itoa(n))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(fullCmd, setCmd, notInSetCmd, recentCmd, yearCmd, dumpCmd, byYearCmd)

	for _, cmd := range []*cobra.Command{dumpCmd, byYearCmd} {
		cmd.Flags().StringVarP(&dumpPath, "out", "o", "flickr.json", "path of the library dump")
	}
}

func parseYearArg(raw string) (int, error) {
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1800 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", raw)
	}
	return year, nil
}

// runOneShot starts the pipeline, fires trigger, waits until every queued
// message has been handled and prints the run summary
func runOneShot(parent context.Context, name string, trigger func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(true, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.GetLogger()
	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Warn("Shutdown incomplete")
		}
	}()

	if err := a.Start(ctx); err != nil {
		return err
	}

	notifier := ui.NewNotifier(notify)
	started := time.Now()
	ui.PrintInfo("Backup root", cfg.Download.Root)

	if err := trigger(ctx, a); err != nil {
		notifier.Failed(name, err)
		return err
	}
	if err := a.Wait(ctx); err != nil {
		return fmt.Errorf("interrupted before the queue drained: %w", err)
	}

	summary := a.Summary(name, time.Since(started))
	notifier.Finished(summary)
	if summary.Failed() {
		return fmt.Errorf("%d messages could not be processed", summary.DeadLetters)
	}
	return nil
}
