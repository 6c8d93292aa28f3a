//-------------------------------------------------------------------------
//
// pgEdge Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema SQL for the retail star schema.
const createSchemaSQL = `
-- Date Dimension
CREATE TABLE IF NOT EXISTS dimdate (
    dateid  BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    date    DATE NOT NULL UNIQUE,
    year    INTEGER NOT NULL,
    month   INTEGER NOT NULL,
    day     INTEGER NOT NULL
);

-- Customer Dimension (business id doubles as the surrogate key; 0 = anonymous)
CREATE TABLE IF NOT EXISTS dimcustomer (
    customerid   BIGINT PRIMARY KEY,
    customername VARCHAR(100)
);

-- Product Dimension (SCD Type 2)
CREATE TABLE IF NOT EXISTS dimproduct (
    productid      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    stockcode      VARCHAR(20) NOT NULL,
    description    VARCHAR(200) NOT NULL,
    price          NUMERIC(10,2) NOT NULL,
    is_shipping    BOOLEAN NOT NULL DEFAULT FALSE,
    effective_date DATE NOT NULL,
    end_date       DATE,
    is_current     BOOLEAN NOT NULL DEFAULT TRUE
);

-- Country Dimension
CREATE TABLE IF NOT EXISTS dimcountry (
    countryid   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    countryname VARCHAR(100) NOT NULL UNIQUE
);

-- Sales Fact
CREATE TABLE IF NOT EXISTS factsales (
    dateid_fk     BIGINT NOT NULL REFERENCES dimdate(dateid),
    customerid_fk BIGINT NOT NULL REFERENCES dimcustomer(customerid),
    productid_fk  BIGINT NOT NULL REFERENCES dimproduct(productid),
    countryid_fk  BIGINT NOT NULL REFERENCES dimcountry(countryid),
    quantity      BIGINT NOT NULL,
    unitprice     NUMERIC(10,2) NOT NULL,
    revenue       NUMERIC(12,2) NOT NULL
);

-- Cancellation Fact (positive magnitudes)
CREATE TABLE IF NOT EXISTS factcancellations (
    dateid_fk          BIGINT NOT NULL REFERENCES dimdate(dateid),
    customerid_fk      BIGINT NOT NULL REFERENCES dimcustomer(customerid),
    productid_fk       BIGINT NOT NULL REFERENCES dimproduct(productid),
    countryid_fk       BIGINT NOT NULL REFERENCES dimcountry(countryid),
    quantity_cancelled BIGINT NOT NULL,
    revenue_lost       NUMERIC(12,2) NOT NULL
);

-- At most one current version per stock code
CREATE UNIQUE INDEX IF NOT EXISTS idx_dimproduct_current
    ON dimproduct(stockcode) WHERE is_current;
CREATE INDEX IF NOT EXISTS idx_dimproduct_stockcode ON dimproduct(stockcode);

CREATE INDEX IF NOT EXISTS idx_factsales_date ON factsales(dateid_fk);
CREATE INDEX IF NOT EXISTS idx_factsales_customer ON factsales(customerid_fk);
CREATE INDEX IF NOT EXISTS idx_factsales_product ON factsales(productid_fk);
CREATE INDEX IF NOT EXISTS idx_factsales_country ON factsales(countryid_fk);

CREATE INDEX IF NOT EXISTS idx_factcancellations_date ON factcancellations(dateid_fk);
CREATE INDEX IF NOT EXISTS idx_factcancellations_product ON factcancellations(productid_fk);
`

// Drop schema SQL
const dropSchemaSQL = `
DROP TABLE IF EXISTS factcancellations CASCADE;
DROP TABLE IF EXISTS factsales CASCADE;
DROP TABLE IF EXISTS dimcountry CASCADE;
DROP TABLE IF EXISTS dimproduct CASCADE;
DROP TABLE IF EXISTS dimcustomer CASCADE;
DROP TABLE IF EXISTS dimdate CASCADE;
`

// Facts are cleared before dimensions so the FK constraints never block the
// reset. Identities restart so repeated runs assign identical surrogate keys.
const truncateAllSQL = `
TRUNCATE TABLE factsales, factcancellations;
TRUNCATE TABLE dimdate, dimcustomer, dimproduct, dimcountry
    RESTART IDENTITY CASCADE;
`

// CreateSchema creates the warehouse star schema.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, createSchemaSQL)
	return err
}

// DropSchema drops the warehouse star schema.
func DropSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, dropSchemaSQL)
	return err
}

// TruncateAll clears every fact and dimension table. This wholesale reset is
// what makes re-running the pipeline safe; individual writes are not
// idempotent.
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, truncateAllSQL)
	return err
}
