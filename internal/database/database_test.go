package database

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/example/storefront/internal/loyalty"
	"github.com/example/storefront/internal/models"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseLogLevel("SILENT"))
	assert.Equal(t, logger.Error, parseLogLevel("error"))
	assert.Equal(t, logger.Info, parseLogLevel("info"))
	assert.Equal(t, logger.Warn, parseLogLevel(""))
	assert.Equal(t, logger.Warn, parseLogLevel("verbose"))
}

func TestConnectSeedsMemberships(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	conn, err := Connect(dsn, "silent")
	require.NoError(t, err)
	require.NoError(t, SeedMemberships(conn))

	for _, level := range loyalty.Levels() {
		var count int64
		require.NoError(t, conn.Model(&models.Membership{}).Where("tier = ?", string(level.Tier)).Count(&count).Error)
		assert.GreaterOrEqual(t, count, int64(1), level.Tier)
	}
}
