package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportLogEntry captures a row level failure that occurred during an import.
type ImportLogEntry struct {
	ID                   uuid.UUID `json:"id"`
	FileName             string    `json:"fileName"`
	Mode                 string    `json:"mode"`
	RowNumber            *int      `json:"rowNumber,omitempty"`
	ServiceRequestNumber string    `json:"serviceRequestNumber,omitempty"`
	ErrorMessage         string    `json:"errorMessage"`
	CreatedAt            time.Time `json:"createdAt"`
}
