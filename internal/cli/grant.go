package cli

import (
	"aistudio/internal/entity"
	"aistudio/internal/entity/dto"
	"fmt"

	"github.com/spf13/cobra"
)

func newGrantCmd(a *app) *cobra.Command {
	var (
		userRef     string
		credits     int64
		scene       string
		validDays   int
		description string
		orderNo     string
	)

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant credits to a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			userID, email, err := a.resolveUser(ctx, userRef)
			if err != nil {
				return err
			}
			credit, err := a.credits.Grant(ctx, dto.GrantCreditsRequest{
				UserID:      userID,
				UserEmail:   email,
				Credits:     credits,
				Scene:       scene,
				Description: description,
				OrderNo:     orderNo,
				ValidDays:   validDays,
				Metadata:    entity.JSONMap{"source": "creditctl"},
			})
			if err != nil {
				return fmt.Errorf("grant credits: %w", err)
			}

			expires := "never"
			if credit.ExpiresAt != nil {
				expires = credit.ExpiresAt.Format("2006-01-02 15:04:05")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "granted %d credits to %s (credit %s, expires %s)\n",
				credit.Credits, userID, credit.ID, expires)
			return nil
		},
	}

	cmd.Flags().StringVar(&userRef, "user", "", "user id or email")
	cmd.Flags().Int64Var(&credits, "credits", 0, "number of credits to grant")
	cmd.Flags().StringVar(&scene, "scene", entity.CreditSceneGift, "grant scene (payment, subscription, renewal, gift, award, signup)")
	cmd.Flags().IntVar(&validDays, "days", 0, "days until the grant expires, 0 for never")
	cmd.Flags().StringVar(&description, "description", "", "ledger description")
	cmd.Flags().StringVar(&orderNo, "order", "", "payment order number")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("credits")
	return cmd
}
