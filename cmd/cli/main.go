package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/driftnetio/driftnet/pkg/lib/log"
	"github.com/driftnetio/driftnet/pkg/scrape"
	"github.com/driftnetio/driftnet/pkg/scrape/types"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type cliEnv struct {
	Log       log.Config           `env:""`
	Providers types.ProviderConfig `env:""`
}

// setup builds the orchestration stack for one-shot commands. No
// database is involved; results go to stdout.
func setup() (*scrape.Registry, *scrape.Orchestrator, *zerolog.Logger, error) {
	_ = godotenv.Load()

	var env cliEnv
	if err := envdecode.Decode(&env); err != nil {
		return nil, nil, nil, fmt.Errorf("decode config: %w", err)
	}

	logger, err := log.NewLogger(&env.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create logger: %w", err)
	}

	registry := scrape.NewRegistry(logger)
	registry.Initialize(&env.Providers)
	orchestrator := scrape.NewOrchestrator(registry, logger)

	return registry, orchestrator, logger, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "driftnet",
		Short: "Scrape social platforms with automatic strategy fallback",
	}

	rootCmd.AddCommand(newScrapeCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newCommentsCmd())
	rootCmd.AddCommand(newStrategiesCmd())
	rootCmd.AddCommand(newPresetsCmd())

	return rootCmd
}

func newScrapeCmd() *cobra.Command {
	var platform string
	var maxPosts int
	var sort string
	var strategy string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "scrape <target>",
		Short: "Fetch posts for a target (subreddit, user handle, hashtag)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, orchestrator, _, err := setup()
			if err != nil {
				return err
			}

			p, err := types.ParsePlatform(platform)
			if err != nil {
				return err
			}

			var preferred types.Strategy
			if strategy != "" {
				preferred, err = types.ParseStrategy(strategy)
				if err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			result, err := orchestrator.ScrapeWithFallback(ctx, p, args[0], maxPosts, types.ScrapeOptions{Sort: sort}, preferred)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "strategy: %s, posts: %d\n", result.Strategy, len(result.Posts))
			return printJSON(cmd, result.Posts)
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "reddit", "Platform (reddit, mastodon)")
	cmd.Flags().IntVarP(&maxPosts, "max-posts", "n", 25, "Maximum posts to fetch")
	cmd.Flags().StringVar(&sort, "sort", "", "Sort order (hot, new, top, rising)")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "Preferred strategy (api, web, feed)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout")

	return cmd
}

func newSearchCmd() *cobra.Command {
	var platform string
	var maxPosts int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search posts across search-capable strategies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, orchestrator, _, err := setup()
			if err != nil {
				return err
			}

			p, err := types.ParsePlatform(platform)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			result, err := orchestrator.ScrapeSearchWithFallback(ctx, p, args[0], maxPosts, types.ScrapeOptions{}, "")
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "strategy: %s, posts: %d\n", result.Strategy, len(result.Posts))
			return printJSON(cmd, result.Posts)
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "reddit", "Platform (reddit, mastodon)")
	cmd.Flags().IntVarP(&maxPosts, "max-posts", "n", 25, "Maximum posts to fetch")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout")

	return cmd
}

func newCommentsCmd() *cobra.Command {
	var platform string
	var strategy string
	var maxComments int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "comments <post-id>",
		Short: "Fetch the comment tree of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, orchestrator, _, err := setup()
			if err != nil {
				return err
			}

			p, err := types.ParsePlatform(platform)
			if err != nil {
				return err
			}
			s, err := types.ParseStrategy(strategy)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			comments, err := orchestrator.ScrapeComments(ctx, p, s, args[0], maxComments)
			if err != nil {
				return err
			}

			return printJSON(cmd, comments)
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "reddit", "Platform (reddit, mastodon)")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "web", "Strategy to use (api, web, feed)")
	cmd.Flags().IntVarP(&maxComments, "max-comments", "n", 100, "Maximum comments to fetch")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout")

	return cmd
}

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List registered adapters and their capabilities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, _, _, err := setup()
			if err != nil {
				return err
			}

			out := make(map[string]any)
			for _, platform := range registry.Platforms() {
				out[string(platform)] = map[string]any{
					"strategies":   registry.AvailableStrategies(platform),
					"capabilities": registry.Capabilities(platform),
				}
			}
			return printJSON(cmd, out)
		},
	}
}

func newPresetsCmd() *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "presets [query]",
		Short: "Discover curated scrape targets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p types.Platform
			if platform != "" {
				var err error
				p, err = types.ParsePlatform(platform)
				if err != nil {
					return err
				}
			}

			query := ""
			if len(args) > 0 {
				query = args[0]
			}

			return printJSON(cmd, scrape.SearchPresets(p, query))
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Limit to one platform")

	return cmd
}
