// Package cli implements creditctl, the operator tool for the credit ledger.
package cli

import (
	"aistudio/internal/config"
	"aistudio/internal/model"
	"aistudio/internal/service"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type app struct {
	cfg     config.Config
	repo    model.Repository
	credits *service.CreditService
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "creditctl",
		Short:         "Inspect and adjust the credit ledger",
		Long:          "creditctl grants credits, reads balances, refunds consumptions and retries pending refunds against the database configured through the server environment.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open()
		},
	}

	rootCmd.AddCommand(
		newGrantCmd(a),
		newBalanceCmd(a),
		newRefundCmd(a),
		newReconcileCmd(a),
	)
	return rootCmd
}

func (a *app) open() error {
	if a.repo != nil {
		return nil
	}
	cfg, err := config.ParseConfig()
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	repo, err := model.InitRepository(&cfg)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	a.cfg = cfg
	a.repo = repo
	a.credits = service.NewCreditService(repo)
	return nil
}

// resolveUser 接受用户 ID 或邮箱。
func (a *app) resolveUser(ctx context.Context, ref string) (string, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", errors.New("--user is required")
	}
	if strings.Contains(ref, "@") {
		user, err := a.repo.GetUserByEmail(ctx, strings.ToLower(ref))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", "", fmt.Errorf("user %s not found", ref)
			}
			return "", "", err
		}
		return user.ID, user.Email, nil
	}
	user, err := a.repo.GetUserByID(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", fmt.Errorf("user %s not found", ref)
		}
		return "", "", err
	}
	return user.ID, user.Email, nil
}
