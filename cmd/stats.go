package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rohan/flashdeck/internal/contrib"
	"github.com/rohan/flashdeck/internal/logger"
	"github.com/rohan/flashdeck/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats <user-id>",
	Short: "Show a user's contribution statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user ID %q: %w", args[0], err)
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		agg := contrib.NewAggregator(st.Contributions(), st.Sets(), logger.Nop())
		stats := agg.UserStats(context.Background(), userID)

		fmt.Printf("%-24s  %d\n", "Total contributions", stats.TotalContributions)
		fmt.Printf("%-24s  %d\n", "Current streak", stats.CurrentStreak)
		fmt.Printf("%-24s  %d\n", "Longest streak", stats.LongestStreak)
		fmt.Printf("%-24s  %d\n", "Flashcard sets", stats.SetsCount)
		fmt.Printf("%-24s  %d\n", "Cards studied", stats.TotalCardsStudied)

		if len(stats.ContributionsByType) > 0 {
			fmt.Println()
			fmt.Println("By Type")
			fmt.Println(strings.Repeat("─", 40))
			for _, t := range contrib.AllTypes {
				if n, ok := stats.ContributionsByType[t]; ok {
					fmt.Printf("%-24s  %d\n", t, n)
				}
			}
		}
		return nil
	},
}

// openStore opens the store using the --db flag (highest priority), then
// the FLASHDECK_DATABASE_DSN env var, then the default SQLite file.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dsn, _ := cmd.Flags().GetString("db")
	if dsn == "" {
		dsn = os.Getenv("FLASHDECK_DATABASE_DSN")
	}
	if dsn == "" {
		dsn = "flashdeck.db"
	}
	st, err := store.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}
