package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"umkm-inventory/pkg/jwt"

	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("sub", "", "subject recorded as createdBy/updatedBy")
	name := flag.String("name", "", "display name")
	scopes := flag.String("scopes", "item:write,stock:adjust,sale:create", "comma separated scopes")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if *subject == "" {
		log.Fatal("-sub is required")
	}

	var granted []string
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			granted = append(granted, s)
		}
	}

	token, err := jwt.GenerateToken([]byte(secret), *subject, *name, granted, *ttl)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
}
