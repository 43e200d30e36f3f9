// Package db provides the embedded storefront schema.
package db

import _ "embed"

// Schema contains the idempotent DDL for every storefront table. It is safe to
// execute on each boot.
//
//go:embed migrations/001_schema.sql
var Schema string
