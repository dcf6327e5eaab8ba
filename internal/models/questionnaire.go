package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionTypeShortText    QuestionType = "shortText"
	QuestionTypeLongText     QuestionType = "longText"
	QuestionTypeSingleChoice QuestionType = "singleChoice"
	QuestionTypeMultiChoice  QuestionType = "multiChoice"
	QuestionTypeNumber       QuestionType = "number"
	QuestionTypeDate         QuestionType = "date"
	QuestionTypeFile         QuestionType = "file"
	QuestionTypeBoolean      QuestionType = "boolean"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeShortText, QuestionTypeLongText, QuestionTypeSingleChoice, QuestionTypeMultiChoice,
		QuestionTypeNumber, QuestionTypeDate, QuestionTypeFile, QuestionTypeBoolean:
		return true
	}
	return false
}

// HasOptions reports whether answers are picked from Question.Options.
func (t QuestionType) HasOptions() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultiChoice
}

type ValidationRules struct {
	Min              *float64 `json:"min,omitempty"`
	Max              *float64 `json:"max,omitempty"`
	Pattern          string   `json:"pattern,omitempty"`
	AllowedFileTypes []string `json:"allowed_file_types,omitempty"`
}

type Question struct {
	ID          uuid.UUID       `json:"id"`
	SectionID   *uuid.UUID      `json:"section_id,omitempty"`
	Text        string          `json:"text"`
	Type        QuestionType    `json:"type"`
	Required    bool            `json:"required"`
	Description *string         `json:"description,omitempty"`
	Options     []string        `json:"options,omitempty"`
	Validation  ValidationRules `json:"validation"`
	Tags        []string        `json:"tags"`
	Order       int             `json:"order"`
	CreatedAt   time.Time       `json:"created_at,omitzero"`
	UpdatedAt   time.Time       `json:"updated_at,omitzero"`
}

// MatchesTags reports whether the question shares at least one tag with tags.
func (q *Question) MatchesTags(tags []string) bool {
	for _, t := range q.Tags {
		if slices.Contains(tags, t) {
			return true
		}
	}
	return false
}

// FilterQuestionsByTags keeps the questions that apply to a tag selection.
func FilterQuestionsByTags(questions []Question, tags []string) []Question {
	var out []Question
	for _, q := range questions {
		if q.MatchesTags(tags) {
			out = append(out, q)
		}
	}
	return out
}

// QuestionSection groups questions in the question bank.
type QuestionSection struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
}

// Section is an ordered group of questions inside a template.
type Section struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Order       int        `json:"order"`
	Questions   []Question `json:"questions"`
}

type Template struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Sections    []Section `json:"sections"`
	Tags        []string  `json:"tags"`
	CreatedBy   uuid.UUID `json:"created_by"`
	IsArchived  bool      `json:"is_archived"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FilterByTags returns a copy of the template's sections restricted to
// questions matching tags. Sections left empty are dropped.
func (t *Template) FilterByTags(tags []string) []Section {
	var out []Section
	for _, s := range t.Sections {
		qs := FilterQuestionsByTags(s.Questions, tags)
		if len(qs) == 0 {
			continue
		}
		s.Questions = qs
		out = append(out, s)
	}
	return out
}

// TemplateVersion is the snapshot of a template's sections as they were
// before the update that produced version Version+1.
type TemplateVersion struct {
	ID         uuid.UUID `json:"id"`
	TemplateID uuid.UUID `json:"template_id"`
	Version    int       `json:"version"`
	Changes    []string  `json:"changes"`
	Sections   []Section `json:"sections"`
	UpdatedAt  time.Time `json:"updated_at"`
	UpdatedBy  uuid.UUID `json:"updated_by"`
}
