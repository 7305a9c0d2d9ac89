package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/runner"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape recent posts for new and re-entering profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		scraper := runner.NewScraper(app.Profiles, app.Posts, app.Feed, app.Funnel, app.Locker, app.runnerConfig(), app.Logger)
		report, err := scraper.Run(cmd.Context())
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

var likeCmd = &cobra.Command{
	Use:   "like",
	Short: "Like recent posts for profiles in the liking stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		liker := runner.NewLiker(app.Posts, app.Profiles, app.Social, app.Funnel, app.Emitter, app.Locker, app.runnerConfig(), app.Logger)
		report, err := liker.Run(cmd.Context())
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Generate comments for eligible posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		commenter := runner.NewCommenter(app.Posts, app.Profiles, app.Engine, app.Funnel, app.Emitter, app.Locker, app.runnerConfig(), app.Logger)
		report, err := commenter.Run(cmd.Context())
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Post generated comments to the social API",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		poster := runner.NewPoster(app.Comments, app.Posts, app.Profiles, app.Social, app.Funnel, app.Emitter, app.Locker, app.runnerConfig(), app.Logger)
		report, err := poster.Run(cmd.Context())
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Move commenting-stage profiles without approved comments onward",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		cleaner := runner.NewCleaner(app.Funnel, app.Locker, app.runnerConfig(), app.Logger)
		report, err := cleaner.Run(cmd.Context())
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

func printReport(report any) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.AddCommand(scrapeCmd, likeCmd, commentCmd, postCmd, cleanupCmd)
}
