package service

import (
	"aistudio/internal/model"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const reconcileRunTimeout = 2 * time.Minute

// ReconcileReport 汇总一次对账的结果。
type ReconcileReport struct {
	Scanned  int
	Refunded int
	Skipped  int
	Failed   int
}

// RefundReconciler 定期重试失败任务的退款。任务更新时退款失败只会记录日志，
// 扣费记录保持 active，由这里补偿。
type RefundReconciler struct {
	repo     model.Repository
	schedule string
	batch    int

	cron      *cron.Cron
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewRefundReconciler(repo model.Repository, schedule string, batch int) *RefundReconciler {
	if batch <= 0 {
		batch = 50
	}
	if schedule == "" {
		schedule = "@every 5m"
	}
	return &RefundReconciler{repo: repo, schedule: schedule, batch: batch}
}

// Start 注册定时任务。上一轮未结束时跳过本轮。
func (r *RefundReconciler) Start() error {
	var err error
	r.startOnce.Do(func() {
		logger := cron.PrintfLogger(logrus.StandardLogger())
		r.cron = cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
		if _, addErr := r.cron.AddFunc(r.schedule, r.tick); addErr != nil {
			err = fmt.Errorf("schedule refund reconciler %q: %w", r.schedule, addErr)
			return
		}
		r.cron.Start()
		logrus.WithField("schedule", r.schedule).Info("refund reconciler started")
	})
	return err
}

// Stop 停止调度并等待正在执行的一轮结束。
func (r *RefundReconciler) Stop() {
	r.stopOnce.Do(func() {
		if r.cron == nil {
			return
		}
		<-r.cron.Stop().Done()
	})
}

func (r *RefundReconciler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileRunTimeout)
	defer cancel()
	if _, err := r.RunOnce(ctx); err != nil {
		logrus.WithError(err).Error("refund reconcile failed")
	}
}

// RunOnce 处理一批仍未退款的失败任务。
func (r *RefundReconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	tasks, err := r.repo.ListUnrefundedFailedTasks(ctx, r.batch)
	if err != nil {
		return report, err
	}

	for _, task := range tasks {
		report.Scanned++
		if task.CreditID == nil || *task.CreditID == "" {
			report.Skipped++
			continue
		}
		refunded, err := r.repo.RefundConsumption(ctx, *task.CreditID)
		switch {
		case err != nil:
			report.Failed++
			logrus.WithError(err).WithFields(logrus.Fields{
				"task_id":   task.ID,
				"credit_id": *task.CreditID,
			}).Warn("refund_retry_failed")
		case refunded:
			report.Refunded++
		default:
			report.Skipped++
		}
	}

	if report.Scanned > 0 {
		logrus.WithFields(logrus.Fields{
			"scanned":  report.Scanned,
			"refunded": report.Refunded,
			"skipped":  report.Skipped,
			"failed":   report.Failed,
		}).Info("refund_reconciled")
	}
	return report, nil
}
