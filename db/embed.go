// Package db provides the embedded schema migrations.
package db

import "embed"

// Migrations holds the versioned golang-migrate files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
