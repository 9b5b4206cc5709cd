package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRefundCmd(a *app) *cobra.Command {
	var creditID string

	cmd := &cobra.Command{
		Use:   "refund",
		Short: "Refund a consumption back to the grants it drew from",
		RunE: func(cmd *cobra.Command, _ []string) error {
			refunded, err := a.credits.Refund(cmd.Context(), creditID)
			if err != nil {
				return fmt.Errorf("refund %s: %w", creditID, err)
			}
			if !refunded {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s already refunded\n", creditID)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s refunded\n", creditID)
			return nil
		},
	}

	cmd.Flags().StringVar(&creditID, "credit", "", "consumption credit id")
	_ = cmd.MarkFlagRequired("credit")
	return cmd
}
