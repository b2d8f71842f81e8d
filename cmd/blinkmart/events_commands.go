package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/blinkmart/service/db"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

func listEventsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List recorded action events, newest first",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "item",
				Usage: "Filter by item id",
			},
			&cli.StringFlag{
				Name:  "account",
				Usage: "Filter by payer account",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of events",
				Value: 50,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of events to skip",
			},
			jqFlag(),
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			events, err := store.ListActionEvents(context.Background(), db.ListActionEventsParams{
				ItemID:  c.String("item"),
				Account: c.String("account"),
				Limit:   int32(c.Int("limit")),
				Offset:  int32(c.Int("offset")),
			})
			if err != nil {
				return fmt.Errorf("failed to list events: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return writeFiltered(c.App.Writer, events, c.String("jq"))
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tITEM\tINTENT\tACCOUNT\tOFFER\tOUTCOME")
			for _, e := range events {
				offer := "-"
				if e.OfferAmount != nil {
					offer = fmt.Sprintf("%g", *e.OfferAmount)
				}
				outcome := e.Outcome
				if e.FailureKind != "" {
					outcome += " (" + e.FailureKind + ")"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Format(time.RFC3339),
					e.ItemID,
					e.Intent,
					e.Account,
					offer,
					outcome,
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d events\n", len(events))
			return nil
		},
	}
}

func pruneEventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Delete action events older than a duration",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "older-than",
				Usage: "Age cutoff",
				Value: 30 * 24 * time.Hour,
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			n, err := store.DeleteActionEventsOlderThan(context.Background(), time.Now().Add(-c.Duration("older-than")))
			if err != nil {
				return fmt.Errorf("failed to prune events: %w", err)
			}

			fmt.Fprintf(c.App.Writer, "✓ Deleted %d events\n", n)
			return nil
		},
	}
}

// getStore creates a database store from the CLI context.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db.NewStore(pool, nil), func() { pool.Close() }, nil
}
