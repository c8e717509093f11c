package db

import (
	"rebelodds/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Wallet{},
		&models.Contract{},
		&models.Position{},
		&models.Trade{},
		&models.WalletTransaction{},
		&models.PortfolioSnapshot{},
	)
}
