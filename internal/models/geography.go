package models

import (
	"time"

	"github.com/google/uuid"
)

type Municipality struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Barangay всегда принадлежит ровно одному муниципалитету
type Barangay struct {
	ID             uuid.UUID `json:"id"`
	MunicipalityID uuid.UUID `json:"municipality_id"`
	Name           string    `json:"name"`
	Code           string    `json:"code,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
