package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently completed games",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Games []struct {
					ID          string    `json:"id"`
					Outcome     string    `json:"outcome"`
					Turns       int       `json:"turns"`
					CompletedAt time.Time `json:"completed_at"`
				} `json:"games"`
			}

			if err := httpGet(fmt.Sprintf("/api/v1/history?limit=%d", limit), &result); err != nil {
				return err
			}

			if len(result.Games) == 0 {
				fmt.Println("No completed games.")
				return nil
			}
			for _, g := range result.Games {
				fmt.Printf("%s  %-10s  %2d turns  %s\n",
					g.ID, g.Outcome, g.Turns, g.CompletedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of games to show")

	return cmd
}
