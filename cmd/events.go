package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rohan/flashdeck/internal/contrib"
)

var eventsCmd = &cobra.Command{
	Use:   "events <user-id>",
	Short: "List a user's recent contribution events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user ID %q: %w", args[0], err)
		}
		days, _ := cmd.Flags().GetInt("days")
		typeFilter, _ := cmd.Flags().GetString("type")

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		to := time.Now().UTC()
		from := to.AddDate(0, 0, -days)
		events, err := st.Contributions().ListBetween(ctx, userID, from, to)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No contribution events found.")
			return nil
		}

		// Header.
		fmt.Printf("%-36s  %-19s  %-18s  %5s\n", "ID", "Timestamp", "Type", "Value")
		fmt.Println(strings.Repeat("─", 84))

		for _, e := range events {
			if typeFilter != "" && string(e.Type) != typeFilter {
				continue
			}
			fmt.Printf("%-36s  %-19s  %-18s  %5d\n",
				e.ID,
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				e.Type,
				e.Value,
			)
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().IntP("days", "d", 30, "How many days back to list")
	eventsCmd.Flags().StringP("type", "t", "",
		fmt.Sprintf("Filter by type (e.g. %s, %s)", contrib.TypeStudyCompleted, contrib.TypeSetCreated))
}
