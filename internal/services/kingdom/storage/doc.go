// Package storage holds the record types and interfaces the kingdom service
// persists through. The sqlite subpackage is the only implementation.
package storage
