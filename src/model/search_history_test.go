package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/homescout/backend/src/database"
	"github.com/username/homescout/backend/src/logger"
)

func newTestDB(t *testing.T) {
	t.Helper()
	logger.InitLogger("error")
	database.InitDB(filepath.Join(t.TempDir(), "test.db"))
}

func TestSearchHistory_RepeatMovesToTop(t *testing.T) {
	newTestDB(t)

	require.NoError(t, AddSearchHistory(database.DB, 1, RegionSeoul, "gangnam", 10))
	require.NoError(t, AddSearchHistory(database.DB, 1, RegionSeoul, "mapo", 10))
	require.NoError(t, AddSearchHistory(database.DB, 1, RegionSeoul, "gangnam", 10))

	entries, err := GetRecentSearches(database.DB, 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2, "repeat search must not duplicate")
	assert.Equal(t, "gangnam", entries[0].RegionGu)
	assert.Equal(t, "mapo", entries[1].RegionGu)
}

func TestSearchHistory_KeepLimit(t *testing.T) {
	newTestDB(t)

	regions := []string{"gangnam", "mapo", "songpa", "jongno", "yongsan"}
	for _, gu := range regions {
		require.NoError(t, AddSearchHistory(database.DB, 1, RegionSeoul, gu, 3))
	}

	entries, err := GetRecentSearches(database.DB, 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "yongsan", entries[0].RegionGu)
	assert.Equal(t, "jongno", entries[1].RegionGu)
	assert.Equal(t, "songpa", entries[2].RegionGu)
}

func TestSearchHistory_ScopedToUser(t *testing.T) {
	newTestDB(t)

	require.NoError(t, AddSearchHistory(database.DB, 1, RegionSeoul, "gangnam", 10))
	require.NoError(t, AddSearchHistory(database.DB, 2, RegionGyeonggi, "seongnam", 10))

	mine, err := GetRecentSearches(database.DB, 1, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "gangnam", mine[0].RegionGu)
}
