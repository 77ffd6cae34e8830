package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"
)

// ImportOptions defines the configuration for a SKU catalog import
type ImportOptions struct {
	TenantID    string // empty imports into the platform-wide catalog
	MappingPath string // default "configs/mapping/sku_catalog.yaml"
	DryRun      bool
	MaxErrors   int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet
type SheetSummary struct {
	Name     string     `json:"name"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dry_run"`
}

// MappingConfig represents the YAML mapping configuration
type MappingConfig struct {
	Version  int                    `yaml:"version"`
	Defaults map[string]interface{} `yaml:"defaults"`
	Sheets   map[string]SheetConfig `yaml:"sheets"`
}

type SheetConfig struct {
	Aliases map[string][]string     `yaml:"aliases"`
	Columns map[string]ColumnConfig `yaml:"columns"`
}

type ColumnConfig struct {
	Field string `yaml:"field"`
	Type  string `yaml:"type"`
}

// skuRow is one parsed catalog row ready for upsert
type skuRow struct {
	SkuCode                  string
	Name                     string
	Description              *string
	Category                 string
	Price                    float64
	EstimatedDurationMinutes *int
	IsActive                 bool
	IsAddonAllowed           bool
}

// ImportCatalog reads an Excel workbook and upserts SKUs keyed by
// (tenant, sku_code). Price changes append a row to the price history.
func ImportCatalog(ctx context.Context, db *pgxpool.Pool, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{
		DryRun: opts.DryRun,
		Sheets: []SheetSummary{},
	}

	if opts.MappingPath == "" {
		opts.MappingPath = "configs/mapping/sku_catalog.yaml"
	}
	if opts.MaxErrors == 0 {
		opts.MaxErrors = 50
	}

	mapping, err := loadMappingConfig(opts.MappingPath)
	if err != nil {
		return summary, fmt.Errorf("failed to load mapping config: %w", err)
	}

	// xlsx needs an io.ReaderAt, so buffer the whole upload first
	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("failed to read Excel file: %w", err)
	}

	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return summary, fmt.Errorf("failed to open Excel file: %w", err)
	}

	conn, err := db.Acquire(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to acquire database connection: %w", err)
	}
	defer conn.Release()

	if opts.TenantID != "" {
		if _, err := conn.Exec(ctx, "SELECT set_config('app.current_tenant_id', $1, false)", opts.TenantID); err != nil {
			return summary, fmt.Errorf("failed to set tenant context: %w", err)
		}
	}

	categories, err := loadCategories(ctx, conn)
	if err != nil {
		return summary, fmt.Errorf("failed to load service categories: %w", err)
	}

	for _, sheet := range xlFile.Sheets {
		sheetConfig, exists := mapping.Sheets[sheet.Name]
		if !exists {
			continue // Skip sheets without mapping
		}

		sheetSummary := processSheet(ctx, conn, sheet, sheetConfig, opts, mapping.Defaults, categories)
		summary.Sheets = append(summary.Sheets, sheetSummary)

		summary.Inserted += sheetSummary.Inserted
		summary.Updated += sheetSummary.Updated
		summary.Skipped += sheetSummary.Skipped
		summary.Errors += sheetSummary.Errors

		if summary.Errors > opts.MaxErrors {
			return summary, fmt.Errorf("too many errors (%d), stopping import", summary.Errors)
		}
	}

	return summary, nil
}

func loadMappingConfig(path string) (*MappingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultMappingConfig(), nil
		}
		return nil, err
	}

	var cfg MappingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Sheets) == 0 {
		return nil, fmt.Errorf("mapping %s defines no sheets", path)
	}
	return &cfg, nil
}

// defaultMappingConfig mirrors configs/mapping/sku_catalog.yaml so imports
// still work when the binary runs outside the repo checkout
func defaultMappingConfig() *MappingConfig {
	return &MappingConfig{
		Version: 1,
		Defaults: map[string]interface{}{
			"is_active":        true,
			"is_addon_allowed": false,
		},
		Sheets: map[string]SheetConfig{
			"Catalog": {
				Aliases: map[string][]string{
					"SkuCode":  {"SKU", "SKU Code", "Code"},
					"Name":     {"Service Name", "Title"},
					"Price":    {"Current Price", "Unit Price", "Rate"},
					"Category": {"Service Category", "Trade"},
					"Duration": {"Estimated Duration", "Duration (min)"},
				},
				Columns: map[string]ColumnConfig{
					"SkuCode":     {Field: "sku_code", Type: "TEXT"},
					"Name":        {Field: "name", Type: "TEXT"},
					"Description": {Field: "description", Type: "TEXT?"},
					"Category":    {Field: "category", Type: "TEXT"},
					"Price":       {Field: "price", Type: "NUMERIC"},
					"Duration":    {Field: "estimated_duration_minutes", Type: "INT?"},
					"Active":      {Field: "is_active", Type: "BOOL?"},
					"AllowAddons": {Field: "is_addon_allowed", Type: "BOOL?"},
				},
			},
		},
	}
}

// loadCategories maps lower-cased category names to their IDs
func loadCategories(ctx context.Context, conn *pgxpool.Conn) (map[string]string, error) {
	rows, err := conn.Query(ctx, "SELECT id, name FROM service_categories")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		categories[strings.ToLower(strings.TrimSpace(name))] = id
	}
	return categories, rows.Err()
}

func processSheet(ctx context.Context, conn *pgxpool.Conn, sheet *xlsx.Sheet, config SheetConfig, opts ImportOptions, defaults map[string]interface{}, categories map[string]string) SheetSummary {
	summary := SheetSummary{Name: sheet.Name}

	headerRow, err := sheet.Row(0)
	if err != nil {
		summary.Errors++
		summary.Samples = append(summary.Samples, RowError{
			Sheet:   sheet.Name,
			Row:     1,
			Message: "Failed to read header row: " + err.Error(),
		})
		return summary
	}

	headerMap := parseHeader(headerRow, sheet.MaxCol, config)

	for rowIdx := 1; rowIdx < sheet.MaxRow; rowIdx++ {
		row, err := sheet.Row(rowIdx)
		if err != nil {
			break // No more rows
		}

		rowData := make(map[string]string)
		for colName, colIdx := range headerMap {
			cell := row.GetCell(colIdx)
			if cell == nil {
				continue
			}
			if value := strings.TrimSpace(cell.String()); value != "" {
				rowData[colName] = value
			}
		}

		if len(rowData) == 0 {
			summary.Skipped++
			continue
		}

		sku, err := buildSkuRow(rowData, config, defaults, categories)
		if err != nil {
			recordError(&summary, sheet.Name, rowIdx+1, err)
			continue
		}

		existingID, existingPrice, err := findExistingSku(ctx, conn, opts.TenantID, sku.SkuCode)
		if err != nil {
			recordError(&summary, sheet.Name, rowIdx+1, err)
			continue
		}

		if existingID != "" {
			if !opts.DryRun {
				if err := updateSku(ctx, conn, existingID, existingPrice, sku); err != nil {
					recordError(&summary, sheet.Name, rowIdx+1, err)
					continue
				}
			}
			summary.Updated++
		} else {
			if !opts.DryRun {
				if err := insertSku(ctx, conn, opts.TenantID, sku); err != nil {
					recordError(&summary, sheet.Name, rowIdx+1, err)
					continue
				}
			}
			summary.Inserted++
		}
	}

	return summary
}

// parseHeader maps canonical column names to cell indexes, resolving aliases
func parseHeader(headerRow *xlsx.Row, maxCol int, config SheetConfig) map[string]int {
	headerMap := make(map[string]int)

	for colIdx := 0; colIdx < maxCol; colIdx++ {
		cell := headerRow.GetCell(colIdx)
		if cell == nil {
			continue
		}
		headerName := strings.TrimSpace(cell.String())
		if headerName == "" {
			continue
		}

		canonical := canonicalColumn(headerName, config)
		if canonical != "" {
			headerMap[canonical] = colIdx
		}
	}

	return headerMap
}

func canonicalColumn(headerName string, config SheetConfig) string {
	for colName := range config.Columns {
		if strings.EqualFold(colName, headerName) {
			return colName
		}
	}
	for colName, aliases := range config.Aliases {
		for _, alias := range aliases {
			if strings.EqualFold(alias, headerName) {
				return colName
			}
		}
	}
	return ""
}

func recordError(summary *SheetSummary, sheet string, row int, err error) {
	summary.Errors++
	summary.Samples = append(summary.Samples, RowError{
		Sheet:   sheet,
		Row:     row,
		Message: err.Error(),
	})
}

func buildSkuRow(rowData map[string]string, config SheetConfig, defaults map[string]interface{}, categories map[string]string) (*skuRow, error) {
	sku := &skuRow{IsActive: true}
	if v, ok := defaults["is_active"].(bool); ok {
		sku.IsActive = v
	}
	if v, ok := defaults["is_addon_allowed"].(bool); ok {
		sku.IsAddonAllowed = v
	}

	for colName, columnConfig := range config.Columns {
		value, exists := rowData[colName]
		if !exists || value == "" {
			if strings.HasSuffix(columnConfig.Type, "?") {
				continue
			}
			return nil, fmt.Errorf("missing required column %s", colName)
		}

		parsed, err := parseValue(value, columnConfig.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %v", colName, err)
		}

		switch columnConfig.Field {
		case "sku_code":
			sku.SkuCode = parsed.(string)
		case "name":
			sku.Name = parsed.(string)
		case "description":
			desc := parsed.(string)
			sku.Description = &desc
		case "category":
			sku.Category = parsed.(string)
		case "price":
			sku.Price = parsed.(float64)
		case "estimated_duration_minutes":
			minutes := parsed.(int)
			sku.EstimatedDurationMinutes = &minutes
		case "is_active":
			sku.IsActive = parsed.(bool)
		case "is_addon_allowed":
			sku.IsAddonAllowed = parsed.(bool)
		}
	}

	if sku.Price < 0 {
		return nil, fmt.Errorf("negative price %.2f for %s", sku.Price, sku.SkuCode)
	}

	categoryID, ok := categories[strings.ToLower(sku.Category)]
	if !ok {
		return nil, fmt.Errorf("unknown service category %q", sku.Category)
	}
	sku.Category = categoryID

	return sku, nil
}

func parseValue(value, valueType string) (interface{}, error) {
	valueType = strings.TrimSuffix(valueType, "?") // Remove optional marker

	switch valueType {
	case "TEXT", "string":
		return value, nil
	case "INT", "int":
		return strconv.Atoi(value)
	case "NUMERIC", "float":
		// Tolerate currency formatting
		cleaned := strings.TrimPrefix(strings.ReplaceAll(value, ",", ""), "$")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number: %s", value)
		}
		return f, nil
	case "BOOL", "bool":
		value = strings.ToLower(value)
		return value == "yes" || value == "y" || value == "true" || value == "1", nil
	default:
		return value, nil
	}
}

func findExistingSku(ctx context.Context, conn *pgxpool.Conn, tenantID, skuCode string) (string, float64, error) {
	var (
		query string
		args  []interface{}
	)
	if tenantID != "" {
		query = "SELECT id, current_price FROM skus WHERE tenant_id = $1 AND sku_code = $2"
		args = []interface{}{tenantID, skuCode}
	} else {
		query = "SELECT id, current_price FROM skus WHERE tenant_id IS NULL AND sku_code = $1"
		args = []interface{}{skuCode}
	}

	var (
		id    string
		price float64
	)
	err := conn.QueryRow(ctx, query, args...).Scan(&id, &price)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	return id, price, nil
}

func insertSku(ctx context.Context, conn *pgxpool.Conn, tenantID string, sku *skuRow) error {
	var tenant interface{}
	if tenantID != "" {
		tenant = tenantID
	}

	var skuID string
	err := conn.QueryRow(ctx, `
		INSERT INTO skus (tenant_id, category_id, sku_code, name, description,
			current_price, estimated_duration_minutes, is_active, is_addon_allowed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		tenant, sku.Category, sku.SkuCode, sku.Name, sku.Description,
		sku.Price, sku.EstimatedDurationMinutes, sku.IsActive, sku.IsAddonAllowed).Scan(&skuID)
	if err != nil {
		return err
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO sku_price_history (sku_id, price, effective_date, reason)
		VALUES ($1, $2, CURRENT_DATE, 'initial')`, skuID, sku.Price)
	return err
}

func updateSku(ctx context.Context, conn *pgxpool.Conn, skuID string, existingPrice float64, sku *skuRow) error {
	_, err := conn.Exec(ctx, `
		UPDATE skus
		SET category_id = $2, name = $3, description = COALESCE($4, description),
		    current_price = $5, estimated_duration_minutes = COALESCE($6, estimated_duration_minutes),
		    is_active = $7, is_addon_allowed = $8, updated_at = now()
		WHERE id = $1`,
		skuID, sku.Category, sku.Name, sku.Description,
		sku.Price, sku.EstimatedDurationMinutes, sku.IsActive, sku.IsAddonAllowed)
	if err != nil {
		return err
	}

	if sku.Price != existingPrice {
		_, err = conn.Exec(ctx, `
			INSERT INTO sku_price_history (sku_id, price, effective_date, reason)
			VALUES ($1, $2, CURRENT_DATE, 'catalog_import')`, skuID, sku.Price)
	}
	return err
}
