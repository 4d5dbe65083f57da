package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/orris-inc/billing/internal/application/subscription/usecases"
	"github.com/orris-inc/billing/internal/infrastructure/reconciliation"
	"github.com/orris-inc/billing/internal/interfaces/cli/bootstrap"
	httpApp "github.com/orris-inc/billing/internal/interfaces/http"
)

type pendingSource interface {
	Pending(ctx context.Context) ([]usecases.ChargeReconciliation, error)
}

// NewReconcileCommand lists charges waiting for an operator: ones the gateway
// left unsettled, and ones that succeeded without a committed order.
func NewReconcileCommand(opts *bootstrap.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "List gateway charges that need manual reconciliation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap.LoadConfig(*opts)
			if err != nil {
				return err
			}
			client, err := httpApp.InitRedis(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer client.Close()

			return listReconciliations(cmd.Context(), reconciliation.NewRedisLog(client, cfg.Billing.RetryInterval, log), cmd.OutOrStdout())
		},
	}
}

func listReconciliations(ctx context.Context, src pendingSource, w io.Writer) error {
	entries, err := src.Pending(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode reconciliation entries: %w", err)
	}
	return nil
}
