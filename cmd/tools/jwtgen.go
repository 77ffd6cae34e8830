package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"fieldserve-api/internal/auth"
	"fieldserve-api/internal/config"
)

func main() {
	var (
		userID     = flag.String("user", "", "User ID (UUID)")
		tenantID   = flag.String("tenant", "", "Tenant ID (UUID, empty for platform users)")
		vendorID   = flag.String("vendor", "", "Vendor ID (UUID, empty for non-vendor users)")
		roles      = flag.String("roles", "tenant_admin", "Comma-separated list of roles")
		expiryMins = flag.Int("expiry", 1440, "Token expiry in minutes (default: 24 hours)")
		secret     = flag.String("secret", "", "JWT secret (overrides JWT_SECRET env var)")
		issuer     = flag.String("issuer", "", "JWT issuer (overrides JWT_ISS env var)")
		audience   = flag.String("audience", "", "JWT audience (overrides JWT_AUD env var)")
	)
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	cfg := config.Load()

	if *secret != "" {
		cfg.JWTSecret = *secret
	}
	if *issuer != "" {
		cfg.JWTIssuer = *issuer
	}
	if *audience != "" {
		cfg.JWTAudience = *audience
	}

	roleList := strings.Split(*roles, ",")
	for i, role := range roleList {
		roleList[i] = strings.TrimSpace(role)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Duration(*expiryMins)*time.Minute)

	token, err := jwtManager.GenerateToken(*userID, *tenantID, *vendorID, roleList)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Printf("JWT Token generated successfully!\n\n")
	fmt.Printf("User ID: %s\n", *userID)
	if *tenantID != "" {
		fmt.Printf("Tenant ID: %s\n", *tenantID)
	}
	if *vendorID != "" {
		fmt.Printf("Vendor ID: %s\n", *vendorID)
	}
	fmt.Printf("Roles: %s\n", strings.Join(roleList, ", "))
	fmt.Printf("Expiry: %d minutes\n", *expiryMins)
	fmt.Printf("Issuer: %s\n", cfg.JWTIssuer)
	fmt.Printf("Audience: %s\n", cfg.JWTAudience)
	fmt.Printf("\nToken:\n%s\n\n", token)

	fmt.Printf("Usage example:\n")
	fmt.Printf("curl -H \"Authorization: Bearer %s\" http://localhost:8080/api/v1/work-orders\n", token)
}
