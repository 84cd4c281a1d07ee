// Package db embeds the store schema.
package db

import _ "embed"

// Schema holds idempotent DDL for every table the API uses.
//
//go:embed migrations/001_schema.sql
var Schema string
