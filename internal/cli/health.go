package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Status string `json:"status"`
			}

			if err := httpGet("/api/v1/health", &result); err != nil {
				return err
			}

			fmt.Println(result.Status)
			return nil
		},
	}
}
