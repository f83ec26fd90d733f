// Package warehouse exports attribution results to the Snowflake data lake
// for downstream BI. Export is optional and strictly after-the-fact: report
// assembly never depends on it.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/ignite/roas-attribution/internal/domain"
)

// Config holds Snowflake connection settings.
type Config struct {
	Account   string
	User      string
	Password  string
	Database  string
	Schema    string
	Warehouse string
}

// Exporter writes flattened attribution rows into ATTRIBUTED_ORDERS.
type Exporter struct {
	db *sql.DB
}

// New creates a Snowflake exporter.
func New(cfg Config) (*Exporter, error) {
	// DSN format: user:password@account/database/schema?warehouse=xxx
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s",
		cfg.User,
		cfg.Password,
		cfg.Account,
		cfg.Database,
		cfg.Schema,
	)
	if cfg.Warehouse != "" {
		dsn += "?warehouse=" + cfg.Warehouse
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("warehouse: open connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Exporter{db: db}, nil
}

// Close closes the database connection.
func (e *Exporter) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (e *Exporter) Ping(ctx context.Context) error { return e.db.PingContext(ctx) }

// Row is one flattened customer-ad attribution fact.
type Row struct {
	TenantID     string
	Date         string
	Email        string
	Sales        int
	Revenue      float64
	AdID         string
	AdName       string
	AdsetID      string
	AdsetName    string
	CampaignID   string
	CampaignName string
	Timestamp    int64
}

// Flatten turns a report into warehouse rows, one per customer-ad pair.
func Flatten(report domain.Report) []Row {
	var rows []Row
	for email, res := range report.Customers {
		for _, ad := range res.Ads {
			rows = append(rows, Row{
				TenantID:     report.TenantID,
				Date:         report.Date,
				Email:        email,
				Sales:        res.Stats.Sales,
				Revenue:      res.Stats.Revenue,
				AdID:         ad.AdID,
				AdName:       ad.AdName,
				AdsetID:      ad.AdsetID,
				AdsetName:    ad.AdsetName,
				CampaignID:   ad.CampaignID,
				CampaignName: ad.CampaignName,
				Timestamp:    ad.Timestamp,
			})
		}
	}
	return rows
}

const insertRow = `
	INSERT INTO ATTRIBUTED_ORDERS (
		TENANT_ID, REPORT_DATE, EMAIL, SALES, REVENUE,
		AD_ID, AD_NAME, ADSET_ID, ADSET_NAME, CAMPAIGN_ID, CAMPAIGN_NAME,
		EVENT_TIMESTAMP, EXPORTED_AT
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// ExportReport inserts the report's rows. Rows for the same tenant and date
// from a prior run are replaced, keeping the export idempotent per report.
func (e *Exporter) ExportReport(ctx context.Context, report domain.Report) error {
	rows := Flatten(report)
	if len(rows) == 0 {
		return nil
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("warehouse: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ATTRIBUTED_ORDERS WHERE TENANT_ID = ? AND REPORT_DATE = ?`,
		report.TenantID, report.Date,
	); err != nil {
		return fmt.Errorf("warehouse: clear prior export: %w", err)
	}

	now := time.Now().UTC()
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, insertRow,
			r.TenantID, r.Date, r.Email, r.Sales, r.Revenue,
			r.AdID, r.AdName, r.AdsetID, r.AdsetName, r.CampaignID, r.CampaignName,
			r.Timestamp, now,
		); err != nil {
			return fmt.Errorf("warehouse: insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("warehouse: commit: %w", err)
	}
	return nil
}
