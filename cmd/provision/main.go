package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"

	"crewclock.app/crewclock/clock/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schemaNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,40}$`)

// Provisions a new company: creates its schema and the engine tables inside
// it. The schema name doubles as the tenant subdomain, so it is kept strict.
func main() {
	company := flag.String("company", "", "company schema to create, e.g. acme")
	flag.Parse()

	if !schemaNamePattern.MatchString(*company) {
		fmt.Println("company must be lowercase alphanumeric, starting with a letter")
		os.Exit(1)
	}

	dsn := os.Getenv("DSN")
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}

	if err := db.Exec("CREATE DATABASE IF NOT EXISTS `" + *company + "`").Error; err != nil {
		log.Fatalf("failed to create schema %s: %v", *company, err)
	}
	if err := db.Exec("USE `" + *company + "`").Error; err != nil {
		log.Fatalf("failed to switch to schema %s: %v", *company, err)
	}

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
			if err := db.Migrator().CreateTable(m); err != nil {
				log.Fatalf("failed to create table for %T: %v", m, err)
			}
		}
	}

	log.Printf("provisioned company %s", *company)
}
