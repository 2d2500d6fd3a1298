package model

import (
	"errors"
)

var (
	// ErrFormat means an observation plan could not be parsed as its
	// expected encoding (TOML table-of-tables or tabular ECSV).
	ErrFormat = errors.New("malformed observation plan")
	// ErrMissingColumn means a tabular plan lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyPlan means expansion produced no jobs where at least one
	// was expected.
	ErrEmptyPlan = errors.New("observation plan has no work")
	// ErrSchemaMismatch means component catalogs disagree on their
	// column sets and cannot be concatenated.
	ErrSchemaMismatch = errors.New("catalog schema mismatch")
	// ErrFluxCatalogRead means the externally supplied flux catalog
	// could not be read or parsed.
	ErrFluxCatalogRead = errors.New("flux catalog unreadable")
	// ErrUpdate means the flux correction routine itself failed.
	ErrUpdate = errors.New("flux update failed")
)
