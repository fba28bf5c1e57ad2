package main

import (
	"log"
	"os"

	"crewclock.app/crewclock/clock/model"
	"crewclock.app/crewclock/utils"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {

	dsn := os.Getenv("DSN") //"root:development@tcp(localhost:3306)/acme?parseTime=true"
	db, _ := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	models := []interface{}{
		&model.Worker{},
		&model.Job{},
		&model.Assignment{},
		&model.TimeEntry{},
		&model.ClockEvent{},
		&model.IdempotencyRecord{},
		&model.AuditRecord{},
	}

	for _, m := range models {
		if !db.Migrator().HasTable(m) {
			err := db.Migrator().CreateTable(m)
			if err != nil {
				log.Fatalf("failed to create table for %T: %v", m, err)
			}
		}
	}

	jobs := []model.Job{
		{JobID: 10, JobNo: "J-1001", Description: "Riverside site works", CenterLat: -27.4698, CenterLng: 153.0251, RadiusMeters: utils.Ptr(100.0)},
		{JobID: 11, JobNo: "J-1002", Description: "Depot maintenance", CenterLat: -27.3818, CenterLng: 153.1205},
		{JobID: 12, JobNo: "J-1003", Description: "Northern pipeline", CenterLat: -27.2000, CenterLng: 153.0100, RadiusMeters: utils.Ptr(250.0)},
	}
	if err := db.CreateInBatches(jobs, 100).Error; err != nil {
		log.Fatalf("failed to seed jobs: %v", err)
	}

	workers := []model.Worker{
		{WorkerID: 1, Code: "W-0001", FirstName: "Alex", Surname: "Nguyen"},
		{WorkerID: 2, Code: "W-0002", FirstName: "Sam", Surname: "Patel"},
		{WorkerID: 3, Code: "W-0003", FirstName: "Jordan", Surname: "Lee"},
	}
	if err := db.CreateInBatches(workers, 100).Error; err != nil {
		log.Fatalf("failed to seed workers: %v", err)
	}

	assignments := []model.Assignment{
		{WorkerID: 1, JobID: 10, StartsAt: utils.MustParseDate("2025-01-01")},
		{WorkerID: 2, JobID: 10, StartsAt: utils.MustParseDate("2025-01-01")},
		{WorkerID: 2, JobID: 11, StartsAt: utils.MustParseDate("2025-03-01"), EndsAt: utils.Ptr(utils.MustParseDate("2025-12-31"))},
		{WorkerID: 3, JobID: 12, StartsAt: utils.MustParseDate("2025-06-01")},
	}
	if err := db.CreateInBatches(assignments, 100).Error; err != nil {
		log.Fatalf("failed to seed assignments: %v", err)
	}

	log.Println("seed complete")
}
