package dto

import (
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/google/uuid"
)

type TagRequest struct {
	Name        string  `json:"name"`
	Color       string  `json:"color,omitempty"`
	Description *string `json:"description,omitempty"`
}

type SectionRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Order       int     `json:"order"`
}

type QuestionRequest struct {
	SectionID   *uuid.UUID             `json:"section_id,omitempty"`
	Text        string                 `json:"text"`
	Type        string                 `json:"type"`
	Required    bool                   `json:"required"`
	Description *string                `json:"description,omitempty"`
	Options     []string               `json:"options,omitempty"`
	Validation  models.ValidationRules `json:"validation"`
	Tags        []string               `json:"tags"`
	Order       int                    `json:"order"`
}
