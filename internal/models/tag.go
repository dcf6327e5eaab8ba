package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

const DefaultTagColor = "#2E7D32"

var tagColorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

type Tag struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TagColor returns color when it is a #rgb or #rrggbb hex value and the
// default colour otherwise.
func TagColor(color string) string {
	if tagColorPattern.MatchString(color) {
		return color
	}
	return DefaultTagColor
}
