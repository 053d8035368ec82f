package models

import (
	"log"

	"github.com/mmdatafocus/factory_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&WorkOrder{}, &JobOrder{}, &JobOrderDetail{},
		&Product{},
		&DailyProduction{}, &ProductionDetail{}, &DowntimeEntry{}, &ProductionLogEvent{},
		&QCCheck{},
		&Inventory{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
