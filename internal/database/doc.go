// Package database provides PostgreSQL connection pool management for the
// optional trade archive.
package database
