package dto

import "github.com/dimitrije/boltstax-api/internal/models"

type CreateTemplateRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Sections    []models.Section `json:"sections"`
	Tags        []string         `json:"tags"`
}

type UpdateTemplateRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Sections    []models.Section `json:"sections,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Change      string           `json:"change"`
}

type AddQuestionRequest struct {
	Question models.Question `json:"question"`
}
