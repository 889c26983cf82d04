package cron

import (
	"context"
	"fmt"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

// stockReconciler recounts cached stock from the physical inventory.
type stockReconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// StockReconcileJobParams configure the stock reconcile job.
type StockReconcileJobParams struct {
	Logger *logger.Logger
	Ledger stockReconciler
}

// NewStockReconcileJob builds the job that realigns stock counters with
// the credential vault.
func NewStockReconcileJob(params StockReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	return &stockReconcileJob{logg: params.Logger, ledger: params.Ledger}, nil
}

type stockReconcileJob struct {
	logg   *logger.Logger
	ledger stockReconciler
}

func (j *stockReconcileJob) Name() string { return "stock-reconcile" }

func (j *stockReconcileJob) Run(ctx context.Context) error {
	corrected, err := j.ledger.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile stock: %w", err)
	}
	if corrected > 0 {
		j.logg.Info(j.logg.WithField(ctx, "corrected", corrected), "stock counters realigned")
	}
	return nil
}
