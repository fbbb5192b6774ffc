package duckdb

import (
	"context"
	"fmt"
)

// Schema contains table creation statements for all required tables

// CreateStocksTable creates the per-instrument fundamentals table
const CreateStocksTable = `
CREATE TABLE IF NOT EXISTS stocks (
    stock_id VARCHAR PRIMARY KEY,
    name VARCHAR,
    industry VARCHAR,
    market_type VARCHAR,
    pe_ratio DOUBLE,
    pb_ratio DOUBLE,
    yield_rate DOUBLE,
    eps DOUBLE,
    gross_margin DOUBLE,
    operating_margin DOUBLE,
    pretax_margin DOUBLE,
    net_margin DOUBLE,
    revenue_growth DOUBLE,
    eps_growth DOUBLE,
    revenue_streak DOUBLE,
    capital DOUBLE,
    beta DOUBLE,
    year_high DOUBLE,
    year_low DOUBLE,
    year_high_2y DOUBLE,
    year_low_2y DOUBLE,
    vol_ma_5 DOUBLE,
    vol_ma_20 DOUBLE,
    consolidation_days DOUBLE,
    last_updated TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// CreateDailyPricesTable creates the daily bar fact table
const CreateDailyPricesTable = `
CREATE TABLE IF NOT EXISTS daily_prices (
    stock_id VARCHAR NOT NULL,
    date DATE NOT NULL,
    close DOUBLE,
    volume DOUBLE,
    change_pct DOUBLE,
    ma_20 DOUBLE,
    ma_60 DOUBLE,
    PRIMARY KEY (stock_id, date)
);
`

// CreateUserPresetsTable creates the named weight preset table
const CreateUserPresetsTable = `
CREATE TABLE IF NOT EXISTS user_presets (
    name VARCHAR PRIMARY KEY,
    settings VARCHAR NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema creates all required tables
func InitializeSchema(ctx context.Context, c *Client) error {
	schemas := []string{
		CreateStocksTable,
		CreateDailyPricesTable,
		CreateUserPresetsTable,
	}

	for _, schema := range schemas {
		if err := c.Exec(ctx, schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// DropAllTables drops all tables (use with caution)
func DropAllTables(ctx context.Context, c *Client) error {
	tables := []string{"user_presets", "daily_prices", "stocks"}
	for _, table := range tables {
		if err := c.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
