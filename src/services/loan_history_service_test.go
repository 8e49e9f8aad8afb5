package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/homescout/backend/src/database"
	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/model"
)

func newTestDB(t *testing.T) {
	t.Helper()
	logger.InitLogger("error")
	database.InitDB(filepath.Join(t.TempDir(), "test.db"))
}

func TestLoanHistoryService_RecordAndRecent(t *testing.T) {
	newTestDB(t)
	svc := NewLoanHistoryService(database.DB)

	svc.Record(model.LoanCalculation{
		UserID:         1,
		CurrentAsset:   3.5,
		ApartmentPrice: 15.5,
		LtvRate:        70,
		MaxLoanAmount:  10.85,
	})
	svc.Record(model.LoanCalculation{
		UserID:         1,
		CurrentAsset:   10,
		ApartmentPrice: 15.5,
		LtvRate:        40,
		MaxLoanAmount:  6.2,
	})
	svc.Record(model.LoanCalculation{
		UserID:         2,
		CurrentAsset:   5,
		ApartmentPrice: 8,
		LtvRate:        70,
		MaxLoanAmount:  5.6,
	})

	// Close drains the queue, so after it returns everything enqueued
	// above is on disk.
	svc.Close()

	calcs, err := svc.Recent(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, calcs, 2)
	assert.Equal(t, 6.2, calcs[0].MaxLoanAmount, "newest snapshot first")
	assert.Equal(t, 10.85, calcs[1].MaxLoanAmount)
	for _, c := range calcs {
		assert.EqualValues(t, 1, c.UserID)
		assert.False(t, c.CalculatedAt.IsZero())
	}

	other, err := svc.Recent(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, 5.6, other[0].MaxLoanAmount)
}

func TestLoanHistoryService_RecentLimit(t *testing.T) {
	newTestDB(t)
	svc := NewLoanHistoryService(database.DB)

	for i := 0; i < 15; i++ {
		svc.Record(model.LoanCalculation{
			UserID:         7,
			CurrentAsset:   float64(i),
			ApartmentPrice: 10,
			LtvRate:        40,
			MaxLoanAmount:  4,
		})
	}
	svc.Close()

	calcs, err := svc.Recent(context.Background(), 7, 10)
	require.NoError(t, err)
	assert.Len(t, calcs, 10)
}

func TestLoanHistoryService_RecordDoesNotBlock(t *testing.T) {
	newTestDB(t)
	svc := NewLoanHistoryService(database.DB)
	defer svc.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			svc.Record(model.LoanCalculation{UserID: 1, ApartmentPrice: 10, LtvRate: 40, MaxLoanAmount: 4})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Record blocked; enqueue must always return promptly")
	}
}
