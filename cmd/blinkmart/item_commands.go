package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/brojonat/blinkmart/client"
	"github.com/brojonat/blinkmart/service/actions"
	"github.com/brojonat/blinkmart/service/solana"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func itemCommands() *cli.Command {
	return &cli.Command{
		Name:  "item",
		Usage: "Action endpoint commands",
		Subcommands: []*cli.Command{
			itemGetCommand(),
			itemBuyCommand(),
			itemOfferCommand(),
		},
	}
}

func jqFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "jq",
		Usage: "jq filter applied to the JSON response (implies --json)",
	}
}

func accountFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "account",
		Aliases:  []string{"a"},
		Usage:    "Payer wallet address",
		Required: true,
		EnvVars:  []string{"BLINKMART_ACCOUNT"},
	}
}

func inspectFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "inspect",
		Usage: "Decode the returned transaction and print a summary",
	}
}

func itemGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Aliases:   []string{"describe"},
		Usage:     "Fetch the action descriptor for an item",
		ArgsUsage: "ITEM_ID",
		Flags:     []cli.Flag{jqFlag()},
		Action: func(c *cli.Context) error {
			itemID, err := requireItemID(c)
			if err != nil {
				return err
			}

			d, err := newClient(c).GetItem(context.Background(), itemID)
			if err != nil {
				return fmt.Errorf("failed to get item: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return writeFiltered(c.App.Writer, d, c.String("jq"))
			}

			w := c.App.Writer
			fmt.Fprintf(w, "%s\n", d.Title)
			if d.Description != "" {
				fmt.Fprintf(w, "  %s\n", d.Description)
			}
			fmt.Fprintf(w, "  Icon:  %s\n", d.Icon)
			fmt.Fprintf(w, "  Label: %s\n", d.Label)
			if d.Actions.Buy != nil {
				fmt.Fprintf(w, "  [%s] %s\n", d.Actions.Buy.Label, d.Actions.Buy.Price)
			} else {
				fmt.Fprintf(w, "  not listed for sale\n")
			}
			fmt.Fprintf(w, "  [%s]\n", d.Actions.MakeOffer.Label)
			return nil
		},
	}
}

func itemBuyCommand() *cli.Command {
	return &cli.Command{
		Name:      "buy",
		Usage:     "Request an unsigned buy-now transaction",
		ArgsUsage: "ITEM_ID",
		Flags:     []cli.Flag{accountFlag(), inspectFlag(), jqFlag()},
		Action: func(c *cli.Context) error {
			itemID, err := requireItemID(c)
			if err != nil {
				return err
			}
			account := c.String("account")
			if _, err := solana.ParseAddress(account); err != nil {
				return err
			}

			tx, err := newClient(c).Buy(context.Background(), itemID, account)
			if err != nil {
				return fmt.Errorf("failed to prepare buy: %w", err)
			}

			return printTransaction(c, tx, account)
		},
	}
}

func itemOfferCommand() *cli.Command {
	return &cli.Command{
		Name:      "offer",
		Aliases:   []string{"bid"},
		Usage:     "Request an unsigned offer transaction",
		ArgsUsage: "ITEM_ID",
		Flags: []cli.Flag{
			accountFlag(),
			&cli.Float64Flag{
				Name:     "amount",
				Usage:    "Offer amount in SOL",
				Required: true,
			},
			inspectFlag(),
			jqFlag(),
		},
		Action: func(c *cli.Context) error {
			itemID, err := requireItemID(c)
			if err != nil {
				return err
			}
			account := c.String("account")
			if _, err := solana.ParseAddress(account); err != nil {
				return err
			}
			amount := c.Float64("amount")
			if amount <= 0 {
				return fmt.Errorf("amount must be positive, got %v", amount)
			}

			tx, err := newClient(c).Offer(context.Background(), itemID, account, amount)
			if err != nil {
				return fmt.Errorf("failed to prepare offer: %w", err)
			}

			return printTransaction(c, tx, account)
		},
	}
}

type transactionOutput struct {
	Transaction string          `json:"transaction"`
	Summary     *solana.Summary `json:"summary,omitempty"`
}

func printTransaction(c *cli.Context, tx, account string) error {
	out := transactionOutput{Transaction: tx}

	if c.Bool("inspect") {
		payer, err := solana.ParseAddress(account)
		if err != nil {
			return err
		}
		decoded, err := solana.DecodeUnsignedTransaction(tx, payer)
		if err != nil {
			return fmt.Errorf("server returned an unusable transaction: %w", err)
		}
		summary := solana.Summarize(decoded)
		out.Summary = &summary
	}

	if c.Bool("json") || c.String("jq") != "" {
		return writeFiltered(c.App.Writer, out, c.String("jq"))
	}

	w := c.App.Writer
	fmt.Fprintln(w, out.Transaction)
	if s := out.Summary; s != nil {
		fmt.Fprintf(w, "\n  Fee payer:    %s\n", s.FeePayer)
		fmt.Fprintf(w, "  Blockhash:    %s\n", s.RecentBlockhash)
		fmt.Fprintf(w, "  Instructions: %d\n", s.Instructions)
		for _, p := range s.Programs {
			fmt.Fprintf(w, "  Program:      %s\n", p)
		}
		if s.LamportsOut > 0 {
			fmt.Fprintf(w, "  SOL out:      %s %s\n", actions.FormatLamports(s.LamportsOut), actions.CurrencySymbol)
		}
		if s.Memo != "" {
			fmt.Fprintf(w, "  Memo:         %s\n", s.Memo)
		}
	}
	return nil
}

func requireItemID(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", fmt.Errorf("ITEM_ID is required")
	}
	return c.Args().First(), nil
}

func newClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return client.NewClient(c.String("server-url"), nil, logger)
}

// writeFiltered writes v as indented JSON, or the results of the jq filter
// applied to it, one per line.
func writeFiltered(w io.Writer, v interface{}, filter string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if filter == "" {
		return enc.Encode(v)
	}

	results, err := applyJQ(filter, v)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// applyJQ runs filter against v after round-tripping it through JSON so
// gojq sees plain maps and slices.
func applyJQ(filter string, v interface{}) ([]interface{}, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}

	var results []interface{}
	iter := code.Run(input)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := r.(error); isErr {
			return nil, fmt.Errorf("jq filter %q failed: %w", filter, err)
		}
		results = append(results, r)
	}
	return results, nil
}
