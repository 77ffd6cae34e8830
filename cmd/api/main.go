package main

import (
	"log"
	"net/http"
	"os"

	"fieldserve-api/internal"
	"fieldserve-api/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	// Local development reads .env; missing file is fine
	_ = godotenv.Load()

	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	srv := internal.NewServer(dsn, cfg)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Println("Starting FieldServe API server...")
	log.Printf("JWT Issuer: %s", cfg.JWTIssuer)
	log.Printf("JWT Audience: %s", cfg.JWTAudience)
	log.Printf("JWT Expiry: %v", cfg.JWTExpiry)
	log.Printf("Listening on %s", addr)

	log.Fatal(http.ListenAndServe(addr, srv.Router))
}
