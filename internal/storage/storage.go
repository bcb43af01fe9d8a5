// Package storage persists the engine's event journal.
package storage

import "futarchy/internal/model"

// Storage is a sink for committed engine events.
type Storage interface {
	PutEvents(events []model.TypedEvent) error
}
