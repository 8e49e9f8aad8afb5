package services

import (
	"context"
	"database/sql"
	"sync"

	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/model"
)

// LoanHistoryService records affordability calculations as a best-effort
// side channel. A calculation response never waits on, and never fails
// because of, history persistence: snapshots are handed to a background
// worker and write failures are only logged.
type LoanHistoryService struct {
	db    *sql.DB
	queue chan model.LoanCalculation
	wg    sync.WaitGroup

	closeOnce sync.Once
}

const loanHistoryQueueSize = 64

func NewLoanHistoryService(db *sql.DB) *LoanHistoryService {
	s := &LoanHistoryService{
		db:    db,
		queue: make(chan model.LoanCalculation, loanHistoryQueueSize),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

func (s *LoanHistoryService) worker() {
	defer s.wg.Done()
	for calc := range s.queue {
		c := calc
		if err := model.InsertLoanCalculation(s.db, &c); err != nil {
			logger.L.Error("Failed to persist loan calculation history",
				"userID", c.UserID, "apartmentPrice", c.ApartmentPrice, "error", err)
		}
	}
}

// Record enqueues a snapshot without blocking. When the queue is full
// the snapshot is dropped; history is advisory, not authoritative.
func (s *LoanHistoryService) Record(calc model.LoanCalculation) {
	select {
	case s.queue <- calc:
	default:
		logger.L.Warn("Loan history queue full, dropping snapshot", "userID", calc.UserID)
	}
}

// Recent returns the user's latest calculation snapshots, newest first.
func (s *LoanHistoryService) Recent(ctx context.Context, userID int64, limit int) ([]model.LoanCalculation, error) {
	return model.GetLoanCalculations(s.db, userID, limit)
}

// Close stops accepting snapshots and waits for queued writes to drain.
func (s *LoanHistoryService) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
		s.wg.Wait()
	})
}
