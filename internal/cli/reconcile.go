package cli

import (
	"aistudio/internal/service"
	"fmt"

	"github.com/spf13/cobra"
)

func newReconcileCmd(a *app) *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Retry refunds for failed tasks whose consumption is still active",
		RunE: func(cmd *cobra.Command, _ []string) error {
			size := batch
			if size <= 0 {
				size = a.cfg.ReconcileBatchSize
			}
			reconciler := service.NewRefundReconciler(a.repo, a.cfg.ReconcileCron, size)
			report, err := reconciler.RunOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d refunded=%d skipped=%d failed=%d\n",
				report.Scanned, report.Refunded, report.Skipped, report.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 0, "max tasks to process, defaults to LEDGER_RECONCILE_BATCH")
	return cmd
}
