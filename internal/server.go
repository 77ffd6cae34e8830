package internal

import (
	"context"
	"database/sql"
	"embed"
	"log"
	"net/http"
	"os"
	"time"

	"fieldserve-api/internal/auth"
	"fieldserve-api/internal/config"
	"fieldserve-api/internal/handlers"
	"fieldserve-api/internal/match"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed openapi
var openapiFS embed.FS

type Server struct {
	DB          *sql.DB
	Pool        *pgxpool.Pool
	Router      *chi.Mux
	JWTManager  *auth.JWTManager
	Metrics     *Metrics
	coordinator *match.Coordinator
	ledger      *match.Ledger
}

func NewServer(dsn string, cfg *config.Config) *Server {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal("Failed to open database connection:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Database ping failed:", err)
	}

	// Also create a pgxpool for the importer and the reminder sweeper
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal("Failed to create pgxpool:", err)
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)

	// Validate JWT configuration
	if err := jwtManager.ValidateConfig(); err != nil {
		log.Fatal("JWT configuration validation failed:", err)
	}

	// Initialize metrics
	metrics := NewMetrics()

	s := &Server{
		DB:          db,
		Pool:        pool,
		Router:      chi.NewRouter(),
		JWTManager:  jwtManager,
		Metrics:     metrics,
		coordinator: &match.Coordinator{DB: db},
		ledger:      &match.Ledger{DB: db},
	}
	// Mount public routes FIRST (no middleware)
	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("db: ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	// Public routes (no JWT required)
	s.Router.Post("/api/v1/auth/login", s.loginUser)
	s.Router.Post("/api/v1/vendors/register", s.registerVendor)
	s.mountDocs(s.Router)

	// Mount metrics if enabled
	if os.Getenv("ENABLE_METRICS") == "true" {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	// Create a protected route group with middleware
	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			// Apply middleware to this group only
			r.Use(auth.AuthMiddleware(s.JWTManager))
			r.Use(s.withTenantSession)

			// Mount protected routes
			s.mountProtectedRoutes(r)
		})
	})

	return s
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// withTenantSession middleware for tenant isolation
func (s *Server) withTenantSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := auth.TenantIDFromContext(r.Context())
		conn, ctx2, err := withDBConn(r.Context(), s.DB, tenantID)
		if err != nil {
			http.Error(w, "db acquire: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if conn != nil {
			defer conn.Close()
		}
		next.ServeHTTP(w, r.WithContext(ctx2))
	})
}

// mountDocs serves the OpenAPI spec and Swagger UI
func (s *Server) mountDocs(mux *chi.Mux) {
	// Check if Swagger is enabled
	if os.Getenv("ENABLE_SWAGGER") != "true" {
		return
	}

	// Serve the raw YAML
	mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := openapiFS.ReadFile("openapi/openapi.yaml")
		if err != nil {
			http.Error(w, "Failed to read OpenAPI spec", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		if _, err := w.Write(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	// Serve Swagger UI page
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(200)
		w.Write([]byte(`<!doctype html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>FieldServe API - Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
    <style>
        body { margin: 0; background: #f7f7f7; }
        .swagger-ui .topbar { background: #1f2937; border-bottom: 3px solid #3b82f6; }
        .swagger-ui .topbar .download-url-wrapper { display: none; }
        .swagger-ui .info { margin: 20px 0; }
        .swagger-ui .info .title { color: #1f2937; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: '/openapi.yaml',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIBundle.presets.standalone
                ],
                plugins: [
                    SwaggerUIBundle.plugins.DownloadUrl
                ],
                layout: "StandaloneLayout",
                tryItOutEnabled: true
            });
        };
    </script>
</body>
</html>`))
	})
}

// mountProtectedRoutes mounts all protected routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router) {
	// Work orders
	r.Get("/work-orders", s.listWorkOrders)
	r.Get("/work-orders/available", auth.MustRole("vendor")(http.HandlerFunc(s.listAvailableWorkOrders)).(http.HandlerFunc))
	r.Get("/work-orders/{id}", s.getWorkOrder)
	r.Post("/work-orders", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.createWorkOrder)).(http.HandlerFunc))
	r.Post("/work-orders/{id}/notify-vendors", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.notifyVendors)).(http.HandlerFunc))
	r.Post("/work-orders/{id}/accept", auth.MustRole("vendor")(http.HandlerFunc(s.acceptWorkOrder)).(http.HandlerFunc))
	r.Post("/work-orders/{id}/complete", auth.MustRole("vendor")(http.HandlerFunc(s.completeWorkOrder)).(http.HandlerFunc))
	r.Get("/work-orders/{id}/responses", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.listWorkOrderResponses)).(http.HandlerFunc))

	// Vendors
	r.Get("/vendors", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.listVendors)).(http.HandlerFunc))
	r.Get("/vendors/{id}", s.getVendorProfile)
	r.Put("/vendors/{id}", auth.MustRole("vendor", "platform_admin")(http.HandlerFunc(s.updateVendor)).(http.HandlerFunc))

	// Qualifications
	r.Post("/vendors/{id}/qualify", auth.MustRole("tenant_admin")(http.HandlerFunc(s.qualifyVendor)).(http.HandlerFunc))
	r.Post("/vendors/{id}/disqualify", auth.MustRole("tenant_admin")(http.HandlerFunc(s.disqualifyVendor)).(http.HandlerFunc))
	r.Get("/vendors/{id}/qualifications", s.listVendorQualifications)
	r.Get("/qualifications/pending", auth.MustRole("tenant_admin")(http.HandlerFunc(s.listPendingQualifications)).(http.HandlerFunc))
	r.Get("/qualifications/vendors", auth.MustRole("tenant_admin")(http.HandlerFunc(s.listQualifiedVendors)).(http.HandlerFunc))

	// Documents
	r.Get("/document-types", s.listDocumentTypes)
	r.Post("/vendors/{id}/documents", auth.MustRole("vendor", "platform_admin")(http.HandlerFunc(s.uploadVendorDocument)).(http.HandlerFunc))
	r.Get("/vendors/{id}/documents", s.listVendorDocuments)
	r.Put("/documents/{id}/review", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.reviewDocument)).(http.HandlerFunc))
	r.Get("/documents/expiring", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.listExpiringDocuments)).(http.HandlerFunc))

	// Reminder sweeps over expiring documents
	r.Post("/reminders/run", auth.MustRole("platform_admin")(http.HandlerFunc(s.runReminderSweep)).(http.HandlerFunc))
	r.Get("/reminders", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.listReminders)).(http.HandlerFunc))

	// Catalog
	r.Get("/categories", s.listCategories)
	r.Get("/categories/{id}", s.getCategory)
	r.Get("/skus", s.listSkus)
	r.Get("/skus/{id}", s.getSku)
	r.Post("/skus", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.createSku)).(http.HandlerFunc))
	r.Put("/skus/{id}", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.updateSku)).(http.HandlerFunc))
	r.Get("/skus/{id}/price-history", s.getSkuPriceHistory)
	r.Get("/addons", s.listAddons)
	r.Post("/addons", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.createAddon)).(http.HandlerFunc))
	r.Delete("/addons/{id}", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.deleteAddon)).(http.HandlerFunc))

	// SKU catalog Excel import
	importsHandler := handlers.NewImportsHandler(s.Pool)
	r.Post("/imports/skus", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(importsHandler.UploadSkuCatalog)).(http.HandlerFunc))

	// Feedback
	r.Post("/feedback", s.submitFeedback)
	r.Get("/work-orders/{id}/feedback", s.getWorkOrderFeedback)
	r.Get("/vendors/{id}/feedback-summary", s.getVendorFeedbackSummary)

	// Invoices
	r.Get("/invoices", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.listInvoices)).(http.HandlerFunc))
	r.Get("/invoices/{id}", s.getInvoice)
	r.Post("/invoices", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.createInvoice)).(http.HandlerFunc))
	r.Post("/invoices/{id}/mark-paid", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.markInvoicePaid)).(http.HandlerFunc))

	// Tenant management - platform only
	r.Get("/tenants", auth.MustRole("platform_admin")(http.HandlerFunc(s.listTenants)).(http.HandlerFunc))
	r.Get("/tenants/{id}", auth.MustRole("platform_admin")(http.HandlerFunc(s.getTenant)).(http.HandlerFunc))
	r.Post("/tenants", auth.MustRole("platform_admin")(http.HandlerFunc(s.createTenant)).(http.HandlerFunc))
	r.Put("/tenants/{id}", auth.MustRole("platform_admin")(http.HandlerFunc(s.updateTenant)).(http.HandlerFunc))

	// User management
	r.Post("/users", auth.MustRole("tenant_admin", "platform_admin")(http.HandlerFunc(s.createUser)).(http.HandlerFunc))
	r.Get("/auth/profile", s.getUserProfile)
}
