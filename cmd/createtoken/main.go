package main

import (
	"flag"
	"fmt"
	"os"

	"crewclock.app/crewclock/security"
)

func main() {
	workerID := flag.Int("worker", 1, "worker id")
	code := flag.String("code", "W-0001", "worker code")
	company := flag.String("company", "acme", "company schema")
	role := flag.String("role", security.RoleWorker, "worker | manager | admin | service")
	ttl := flag.Int64("ttl", 3600, "token lifetime in seconds")
	flag.Parse()

	secret := os.Getenv("CREWCLOCK_SIGNING_SECRET")
	if secret == "" {
		fmt.Println("CREWCLOCK_SIGNING_SECRET is required")
		os.Exit(1)
	}

	token, err := security.CreateIdentityToken(&security.CrewIdentity{
		WorkerID: int32(*workerID),
		Code:     *code,
		Company:  *company,
		Role:     *role,
	}, secret, *ttl)
	if err != nil {
		fmt.Printf("failed to create token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
