// Package models holds the GORM models for every table in the shared
// database. Services map them to their own entities.
package models

import (
	"github.com/google/uuid"
)

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}
