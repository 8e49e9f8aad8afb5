package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/homescout/backend/src/database"
	"github.com/username/homescout/backend/src/model"
)

func strPtr(s string) *string { return &s }

func makeRecord(userID int64, price float64) *model.Record {
	return &model.Record{
		UserID:                userID,
		Type:                  model.RecordTypeApartment,
		AreaPyeong:            30,
		PriceInHundredMillion: price,
		RegionSi:              model.RegionSeoul,
		RegionGu:              "gangnam",
		ApartmentName:         strPtr("래미안"),
		SchoolAccessibility:   4,
		TrafficAccessibility:  "역세권",
		IsLtvRegulated:        true,
		LtvRate:               model.LtvRateRegulated,
	}
}

func TestRecordService_CreateAndGet(t *testing.T) {
	newTestDB(t)
	svc := NewRecordService(database.DB)
	ctx := context.Background()

	rec := makeRecord(1, 15.5)
	require.NoError(t, svc.CreateRecord(ctx, rec))
	require.NotZero(t, rec.ID)

	got, err := svc.GetRecord(ctx, 1, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, 15.5, got.PriceInHundredMillion)
	assert.Equal(t, "래미안", *got.ApartmentName)
	assert.NotNil(t, got.Photos)
	assert.NotNil(t, got.Comments)
}

func TestRecordService_OwnershipEnforced(t *testing.T) {
	newTestDB(t)
	svc := NewRecordService(database.DB)
	ctx := context.Background()

	rec := makeRecord(1, 12)
	require.NoError(t, svc.CreateRecord(ctx, rec))

	_, err := svc.GetRecord(ctx, 2, rec.ID)
	assert.ErrorIs(t, err, model.ErrNotRecordOwner)

	err = svc.DeleteRecord(ctx, 2, rec.ID)
	assert.ErrorIs(t, err, model.ErrNotRecordOwner)

	rec.PriceInHundredMillion = 13
	rec.UserID = 2
	err = svc.UpdateRecord(ctx, rec)
	assert.ErrorIs(t, err, model.ErrNotRecordOwner)
}

func TestRecordService_ValidationRejectsBadRecords(t *testing.T) {
	newTestDB(t)
	svc := NewRecordService(database.DB)
	ctx := context.Background()

	bad := makeRecord(1, 15.5)
	bad.AreaPyeong = 25
	assert.Error(t, svc.CreateRecord(ctx, bad))

	bad = makeRecord(1, 15.5)
	bad.IsLtvRegulated = true
	bad.LtvRate = model.LtvRateUnregulated
	assert.Error(t, svc.CreateRecord(ctx, bad))

	bad = makeRecord(1, -1)
	assert.Error(t, svc.CreateRecord(ctx, bad))
}

func TestRecordService_Filter(t *testing.T) {
	newTestDB(t)
	svc := NewRecordService(database.DB)
	ctx := context.Background()

	a := makeRecord(1, 8)
	a.Type = model.RecordTypeLand
	a.AreaPyeong = 20
	a.IsLtvRegulated = false
	a.LtvRate = model.LtvRateUnregulated
	a.SchoolAccessibility = 2
	require.NoError(t, svc.CreateRecord(ctx, a))

	b := makeRecord(1, 15.5)
	require.NoError(t, svc.CreateRecord(ctx, b))

	c := makeRecord(1, 22)
	c.SchoolAccessibility = 5
	require.NoError(t, svc.CreateRecord(ctx, c))

	all, err := svc.ListRecords(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	apartments, err := svc.FilterRecords(ctx, 1, RecordFilter{Types: []string{model.RecordTypeApartment}})
	require.NoError(t, err)
	assert.Len(t, apartments, 2)

	priced, err := svc.FilterRecords(ctx, 1, RecordFilter{PriceMin: 10, PriceMax: 20})
	require.NoError(t, err)
	require.Len(t, priced, 1)
	assert.Equal(t, 15.5, priced[0].PriceInHundredMillion)

	regulated := true
	reg, err := svc.FilterRecords(ctx, 1, RecordFilter{Regulated: &regulated})
	require.NoError(t, err)
	assert.Len(t, reg, 2)

	goodSchools, err := svc.FilterRecords(ctx, 1, RecordFilter{MinSchoolRating: 5})
	require.NoError(t, err)
	assert.Len(t, goodSchools, 1)

	none, err := svc.FilterRecords(ctx, 2, RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordService_Comments(t *testing.T) {
	newTestDB(t)
	svc := NewRecordService(database.DB)
	ctx := context.Background()

	rec := makeRecord(1, 15.5)
	require.NoError(t, svc.CreateRecord(ctx, rec))

	comment, err := svc.AddComment(ctx, 1, rec.ID, "남향, 수리 필요")
	require.NoError(t, err)
	require.NotZero(t, comment.ID)

	updated, err := svc.UpdateComment(ctx, 1, comment.ID, "남향, 올수리 완료")
	require.NoError(t, err)
	assert.Equal(t, "남향, 올수리 완료", updated.Content)

	_, err = svc.UpdateComment(ctx, 2, comment.ID, "x")
	assert.ErrorIs(t, err, model.ErrNotRecordOwner)

	got, err := svc.GetRecord(ctx, 1, rec.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)

	require.NoError(t, svc.DeleteComment(ctx, 1, comment.ID))
	err = svc.DeleteComment(ctx, 1, comment.ID)
	assert.ErrorIs(t, err, model.ErrCommentNotFound)
}

func TestRecordService_DeleteCascades(t *testing.T) {
	newTestDB(t)
	svc := NewRecordService(database.DB)
	ctx := context.Background()

	rec := makeRecord(1, 15.5)
	require.NoError(t, svc.CreateRecord(ctx, rec))
	_, err := svc.AddComment(ctx, 1, rec.ID, "메모")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRecord(ctx, 1, rec.ID))

	_, err = svc.GetRecord(ctx, 1, rec.ID)
	assert.ErrorIs(t, err, model.ErrRecordNotFound)

	var count int
	require.NoError(t, database.DB.QueryRow("SELECT COUNT(*) FROM comments WHERE record_id = ?", rec.ID).Scan(&count))
	assert.Zero(t, count)
}
