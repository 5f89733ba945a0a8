// Package gormstore implements the goSession TokenStore and UserStore
// contracts on GORM, with SQLite and PostgreSQL dialectors selected from
// the DSN.
package gormstore
