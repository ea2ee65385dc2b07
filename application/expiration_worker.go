package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"girinhas/domain/entities"
	"girinhas/domain/interfaces"
	"girinhas/domain/services"
	"girinhas/metrics"
)

const expirationBatchSize = 100

// ExpirationWorker is the background process behind reservation TTLs and lot
// expiry. It periodically cancels reservations past their deadline and
// forfeits expired lots, each in its own unit of work so one bad row cannot
// stall the rest of the sweep.
type ExpirationWorker struct {
	uowFactory UnitOfWorkFactory
	interval   time.Duration
	cfg        TradeConfig
}

// NewExpirationWorker creates a new expiration worker
func NewExpirationWorker(uowFactory UnitOfWorkFactory, interval time.Duration, cfg TradeConfig) *ExpirationWorker {
	return &ExpirationWorker{
		uowFactory: uowFactory,
		interval:   interval,
		cfg:        cfg,
	}
}

// Start launches the worker loop and returns a function that stops it
func (w *ExpirationWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithField("interval", w.interval).Info("Expiration worker started")

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Expiration worker stopped by context")
				return
			case <-stopChan:
				log.Info("Expiration worker stopped")
				return
			case <-ticker.C:
				w.runOnce(ctx, time.Now())
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// runOnce performs one sweep pass
func (w *ExpirationWorker) runOnce(ctx context.Context, now time.Time) {
	w.cancelExpiredReservations(ctx, now)
	w.sweepExpiredLots(ctx, now)
}

func (w *ExpirationWorker) cancelExpiredReservations(ctx context.Context, now time.Time) {
	ids, err := w.collectExpiredReservationIDs(ctx, now)
	if err != nil {
		log.WithError(err).Error("Failed to collect expired reservations")
		metrics.SweepErrors.Inc()
		return
	}

	for _, reservationID := range ids {
		cancelled, err := w.cancelExpiredReservation(ctx, reservationID, now)
		if err != nil {
			log.WithError(err).WithField("reservation_id", reservationID).
				Error("Failed to cancel expired reservation")
			metrics.SweepErrors.Inc()
			continue
		}
		if cancelled {
			metrics.ReservationsExpired.Inc()
			metrics.ReservationsResolved.WithLabelValues(string(entities.ReservationStatusExpired)).Inc()
		}
	}
}

func (w *ExpirationWorker) collectExpiredReservationIDs(ctx context.Context, now time.Time) ([]int64, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	return uow.Reservations().GetExpiredPendingIDs(ctx, now, expirationBatchSize)
}

func (w *ExpirationWorker) cancelExpiredReservation(ctx context.Context, reservationID int64, now time.Time) (bool, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}
	defer uow.Rollback()

	reservations := w.newReservationService(uow)
	cancelled, err := reservations.CancelExpired(ctx, reservationID, now)
	if err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, err
	}
	return cancelled, nil
}

func (w *ExpirationWorker) sweepExpiredLots(ctx context.Context, now time.Time) {
	accountIDs, err := w.collectAccountsWithExpiredLots(ctx, now)
	if err != nil {
		log.WithError(err).Error("Failed to collect accounts with expired lots")
		metrics.SweepErrors.Inc()
		return
	}

	for _, accountID := range accountIDs {
		forfeited, err := w.sweepAccount(ctx, accountID, now)
		if err != nil {
			log.WithError(err).WithField("account_id", accountID).
				Error("Failed to sweep expired lots")
			metrics.SweepErrors.Inc()
			continue
		}
		if forfeited > 0 {
			metrics.GirinhasForfeited.Add(float64(forfeited))
			log.WithFields(log.Fields{
				"account_id": accountID,
				"forfeited":  forfeited,
			}).Info("Forfeited expired girinhas")
		}
	}
}

func (w *ExpirationWorker) collectAccountsWithExpiredLots(ctx context.Context, now time.Time) ([]int64, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	return uow.Lots().GetAccountIDsWithExpiredLots(ctx, now, expirationBatchSize)
}

func (w *ExpirationWorker) sweepAccount(ctx context.Context, accountID int64, now time.Time) (int64, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	ledger := services.NewLedgerService(
		uow.Accounts(), uow.Lots(), uow.Holds(), uow.Transactions(),
		uow.EventBus(), w.cfg.LotLifetime,
	)
	forfeited, err := ledger.SweepExpiredLots(ctx, accountID, now)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, err
	}
	return forfeited, nil
}

func (w *ExpirationWorker) newReservationService(uow UnitOfWork) interfaces.ReservationService {
	ledger := services.NewLedgerService(
		uow.Accounts(), uow.Lots(), uow.Holds(), uow.Transactions(),
		uow.EventBus(), w.cfg.LotLifetime,
	)
	return services.NewReservationService(
		ledger, uow.Items(), uow.Reservations(), uow.Queue(),
		uow.EventBus(), w.cfg.ReservationTTL, w.cfg.CodeLength,
	)
}
