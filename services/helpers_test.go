package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cleanshift/config"
	"github.com/yeremiapane/cleanshift/database"
	"github.com/yeremiapane/cleanshift/models"
	"gorm.io/gorm"
)

// testDay is the calendar day most tests schedule on.
var testDay = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

// setupTestDB opens a private in-memory sqlite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.InitDB(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file::memory:?_foreign_keys=on",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	Admin    models.Admin
	Client   models.Client
	Property models.Property
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	f := fixture{
		Admin:  models.Admin{Name: "Dispatch", Email: "dispatch@example.com"},
		Client: models.Client{Name: "Harbour Flats"},
	}
	require.NoError(t, db.Create(&f.Admin).Error)
	require.NoError(t, db.Create(&f.Client).Error)
	f.Property = models.Property{ClientID: f.Client.ID, Address: "12 Quay Street"}
	require.NoError(t, db.Create(&f.Property).Error)
	return f
}

func seedWorker(t *testing.T, db *gorm.DB, adminID uint, name string, deployed, available bool) models.Worker {
	t.Helper()
	w := models.Worker{
		AdminID:   adminID,
		Name:      name,
		Deployed:  deployed,
		Available: available,
	}
	require.NoError(t, db.Create(&w).Error)
	return w
}

func seedProperty(t *testing.T, db *gorm.DB, clientID uint, address string) models.Property {
	t.Helper()
	p := models.Property{ClientID: clientID, Address: address}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.UTC)
}
