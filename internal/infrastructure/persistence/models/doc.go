// Package models contains GORM persistence models that map to the clinic tables.
// Domain entities stay free of ORM tags; each model converts with ToDomain and
// FromDomain. The SQL migrations under migrations/ are the schema of record;
// the tags here mirror them closely enough for AutoMigrate on SQLite in tests.
package models
