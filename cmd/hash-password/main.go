package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Prints a bcrypt hash for ADMIN_PASSWORD_HASH.
//
//	go run ./cmd/hash-password -password 'admin123'
//	echo 'admin123' | go run ./cmd/hash-password
func main() {
	password := flag.String("password", "", "plain-text admin password (read from stdin when empty)")
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	// 1. Read password
	plain := *password
	if plain == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("❌ No password given: %v", err)
		}
		plain = strings.TrimRight(line, "\r\n")
	}
	if plain == "" {
		log.Fatal("❌ Password must not be empty")
	}

	// 2. Hash
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), *cost)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	// 3. Print in .env form
	fmt.Printf("ADMIN_PASSWORD_HASH=%s\n", hashed)
}
