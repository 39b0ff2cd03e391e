package database

import (
	"fmt"

	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/utils"
	"gorm.io/gorm"
)

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Admin{},
		&models.Client{},
		&models.Worker{},
		&models.Property{},
		&models.CleaningTask{},
		&models.Escalation{},
		&models.Notification{},
	}
}

// Migrate creates or updates the schema and checks that the indexes the
// assignment path relies on are present.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	return VerifyIndexes(db)
}

// requiredIndexes maps a model to index names that must exist after migration.
var requiredIndexes = []struct {
	model interface{}
	name  string
}{
	{&models.CleaningTask{}, "idx_worker_date_shift"},
	{&models.Escalation{}, "idx_escalations_alert_id"},
}

func VerifyIndexes(db *gorm.DB) error {
	for _, idx := range requiredIndexes {
		if !db.Migrator().HasIndex(idx.model, idx.name) {
			return fmt.Errorf("missing index %s", idx.name)
		}
		utils.InfoLogger.Printf("Index verified: %s", idx.name)
	}
	return nil
}
