// Package models contains the GORM models of the tables written by the
// storage executor. The executor writes rows as column maps; the models are
// used to create the schema where migrations are not run (sqlite, tests) and
// to read rows back in typed form.
package models
