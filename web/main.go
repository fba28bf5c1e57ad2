package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	clockhandler "crewclock.app/crewclock/clock/web/handlers/clock"
	"crewclock.app/crewclock/clock/web/handlers/entries"
	"crewclock.app/crewclock/core"
	"crewclock.app/crewclock/infrastructure/communication"
	"crewclock.app/crewclock/infrastructure/devops"
	"crewclock.app/crewclock/web/middlewares"
	"github.com/gin-gonic/gin"
)

func main() {
	r := gin.Default()
	dsn := os.Getenv("DSN")
	fmt.Printf("using DSN: %s\n", dsn)

	dm, err := core.New(dsn, 30)
	if err != nil {
		log.Fatal(err)
	}
	defer dm.Close()

	cfg, err := devops.LoadEngineConfig(context.Background())
	if err != nil {
		log.Fatal("Failed to load engine config:", err)
	}

	base64Secret := os.Getenv("CREWCLOCK_SIGNING_SECRET")
	jwtSecret, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		log.Fatal("Failed to decode JWT secret:", err)
	}

	notifier := communication.ConnectSlack()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	protected := r.Group("/api/v1")
	protected.Use(middlewares.Authentication(jwtSecret))
	{
		protected.GET("/whoami", func(c *gin.Context) {
			claims, _ := c.Get("claims")
			c.JSON(200, gin.H{
				"claims": claims,
			})
		})

		clockhandler.Register(protected, dm, cfg, notifier)
		entries.Register(protected, dm, cfg, notifier)
	}

	r.Run("0.0.0.0:8090")
}
