package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/prokemal2012/Filx/internal/logging"
	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/storage"
	"github.com/prokemal2012/Filx/internal/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			tokens, err := web.NewTokenManager(cfg.Auth)
			if err != nil {
				return err
			}

			a, err := openApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := web.NewServer(web.Deps{
				Store:     a.store,
				Index:     a.index,
				Feed:      a.feed,
				Explore:   a.explore,
				Social:    a.social,
				Documents: a.documents,
				Comments:  a.comments,
				Notices:   a.notices,
				Tokens:    tokens,
			}, cfg.RateLimit)

			g, ctx := errgroup.WithContext(ctx)
			if cfg.Index.SyncInterval > 0 {
				g.Go(func() error {
					a.worker.Run(ctx, cfg.Index.SyncInterval)
					return nil
				})
			}
			g.Go(func() error {
				return srv.ListenAndServe(ctx, cfg.Server)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "host to bind to (overrides server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (overrides server.port)")
	return cmd
}

func newReindexCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Reconcile the search index with the document store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.worker.Sync(cmd.Context(), force)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}

			cmd.Printf("Reindex complete in %v\n", stats.Duration.Round(time.Millisecond))
			cmd.Printf("  Documents: %d\n", stats.Total)
			cmd.Printf("  New:       %d\n", stats.New)
			cmd.Printf("  Updated:   %d\n", stats.Updated)
			cmd.Printf("  Skipped:   %d\n", stats.Skipped)
			cmd.Printf("  Removed:   %d\n", stats.Removed)
			cmd.Printf("  Errors:    %d\n", stats.Errors)
			if stats.Errors > 0 {
				return fmt.Errorf("%d documents failed to index", stats.Errors)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "reindex documents even if unchanged")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store and index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			docs, err := a.store.ListDocuments(ctx, storage.DocumentFilter{})
			if err != nil {
				return err
			}
			public := 0
			for i := range docs {
				if docs[i].IsPublic {
					public++
				}
			}
			users, err := a.store.ListUsers(ctx)
			if err != nil {
				return err
			}
			indexed, err := a.index.Count()
			if err != nil {
				return fmt.Errorf("count index: %w", err)
			}

			cmd.Println("Filx Statistics")
			cmd.Println("===============")
			cmd.Printf("Documents:         %d (%d public)\n", len(docs), public)
			cmd.Printf("Documents indexed: %d\n", indexed)
			cmd.Printf("Users:             %d\n", len(users))
			for _, kind := range []models.InteractionType{models.InteractionLike, models.InteractionBookmark, models.InteractionFollow} {
				n, err := a.store.CountInteractions(ctx, storage.InteractionFilter{Type: kind})
				if err != nil {
					return err
				}
				cmd.Printf("%-19s%d\n", string(kind)+"s:", n)
			}
			return nil
		},
	}
}

func newTrendingCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Print the trending documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.explore.TrendingDocuments(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				cmd.Println("No documents found.")
				return nil
			}
			for i, d := range docs {
				cmd.Printf("[%d] %s by %s (score %.0f, %d likes, %d bookmarks)\n",
					i+1, d.Title, d.Author.Name, d.Score, d.Likes, d.Bookmarks)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of documents (default from config)")
	return cmd
}

func newFeedCmd(opts *rootOptions) *cobra.Command {
	var user string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print a user's personalized feed as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			a, err := openApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := a.feed.GetFeed(cmd.Context(), user, limit, offset)
			if err != nil {
				return err
			}
			return printJSON(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "user id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "items to skip")
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var user, email, name string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user",
		Long: `Issues a signed session token for development and scripting. Send it as
the "auth" cookie or as an Authorization: Bearer header.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			tokens, err := web.NewTokenManager(opts.cfg.Auth)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(web.Session{UserID: user, Email: email, Name: name})
			if err != nil {
				return err
			}
			cmd.Println(token)
			logging.Debug().Str("user", user).Dur("ttl", opts.cfg.Auth.TokenTTL).Msg("Issued token")
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "user id")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&name, "name", "", "name claim")
	return cmd
}
