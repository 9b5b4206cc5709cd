package cli

import (
	"aistudio/internal/entity/dto"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newBalanceCmd(a *app) *cobra.Command {
	var (
		userRef string
		asJSON  bool
		history int64
	)

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show a user's spendable credits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			userID, _, err := a.resolveUser(ctx, userRef)
			if err != nil {
				return err
			}
			balance, err := a.credits.Balance(ctx, userID)
			if err != nil {
				return fmt.Errorf("load balance: %w", err)
			}

			var rows []dto.CreditItem
			if history > 0 {
				query := dto.CreditQuery{UserID: userID}
				query.PageSize = history
				list, err := a.credits.List(ctx, query)
				if err != nil {
					return fmt.Errorf("load ledger: %w", err)
				}
				rows = list.Credits
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					dto.BalanceResponse
					Ledger []dto.CreditItem `json:"ledger,omitempty"`
				}{
					BalanceResponse: dto.BalanceResponse{UserID: userID, RemainingCredits: balance, Authenticated: true},
					Ledger:          rows,
				})
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s\t%d\n", userID, balance)
			for _, row := range rows {
				_, _ = fmt.Fprintf(out, "%s\t%s\t%s\t%d\t%d\t%s\n",
					row.ID, row.TransactionType, row.Status, row.Credits, row.RemainingCredits, row.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userRef, "user", "", "user id or email")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().Int64Var(&history, "history", 0, "also list the latest N ledger rows")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
