package main

import (
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

// HashConfig holds hash generation configuration
type HashConfig struct {
	Password string
	Cost     int
}

// NewHashConfig creates a new hash configuration
func NewHashConfig() *HashConfig {
	password := flag.String("password", "", "Admin password to hash")
	cost := flag.Int("cost", bcrypt.DefaultCost, "Bcrypt cost factor")

	flag.Parse()

	return &HashConfig{
		Password: *password,
		Cost:     *cost,
	}
}

func main() {
	config := NewHashConfig()

	// Validate configuration
	if config.Password == "" {
		log.Fatal("Password cannot be empty, pass it with -password")
	}
	if len(config.Password) < 6 {
		log.Fatal("Password must be at least 6 characters long")
	}
	if config.Cost < bcrypt.MinCost || config.Cost > bcrypt.MaxCost {
		log.Fatalf("Cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(config.Password), config.Cost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	// The hash goes into the gateway's environment; the plaintext never does.
	fmt.Printf("ADMIN_PASSWORD_HASH=%s\n", hashedPassword)
}
