package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

const templateColumns = `id, title, description, sections, tags, created_by, is_archived, version, created_at, updated_at`

const templateVersionColumns = `id, template_id, version, changes, sections, updated_by, updated_at`

func scanTemplate(row scanner) (*models.Template, error) {
	var (
		t        models.Template
		sections []byte
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &sections, &t.Tags, &t.CreatedBy,
		&t.IsArchived, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalSections(sections, &t.Sections); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTemplateVersion(row scanner) (*models.TemplateVersion, error) {
	var (
		v        models.TemplateVersion
		sections []byte
	)
	err := row.Scan(&v.ID, &v.TemplateID, &v.Version, &v.Changes, &sections, &v.UpdatedBy, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalSections(sections, &v.Sections); err != nil {
		return nil, err
	}
	return &v, nil
}

func unmarshalSections[T any](raw []byte, dst *[]T) error {
	*dst = []T{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode sections: %w", err)
	}
	return nil
}

// assignIDs gives new sections and questions an id and normalises order to
// their position.
func assignIDs(sections []models.Section) []models.Section {
	if sections == nil {
		return []models.Section{}
	}
	for i := range sections {
		if sections[i].ID == uuid.Nil {
			sections[i].ID = uuid.New()
		}
		sections[i].Order = i
		if sections[i].Questions == nil {
			sections[i].Questions = []models.Question{}
		}
		for j := range sections[i].Questions {
			q := &sections[i].Questions[j]
			if q.ID == uuid.Nil {
				q.ID = uuid.New()
			}
			q.Order = j
			if q.Tags == nil {
				q.Tags = []string{}
			}
		}
	}
	return sections
}

type CreateTemplateInput struct {
	Title       string `validate:"required"`
	Description string
	Sections    []models.Section
	Tags        []string
}

// TemplateUpdate holds the fields to change. Nil fields are kept.
type TemplateUpdate struct {
	Title       *string
	Description *string
	Sections    []models.Section
	Tags        []string
}

type TemplateService struct {
	db  *database.DB
	log logrus.FieldLogger
}

func NewTemplateService(db *database.DB, log logrus.FieldLogger) *TemplateService {
	return &TemplateService{db: db, log: log}
}

func (s *TemplateService) Create(ctx context.Context, in CreateTemplateInput, userID uuid.UUID) (*models.Template, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}

	sections, err := json.Marshal(assignIDs(in.Sections))
	if err != nil {
		return nil, fmt.Errorf("failed to encode sections: %w", err)
	}

	t, err := scanTemplate(s.db.Pool.QueryRow(ctx, `
		INSERT INTO questionnaire_templates (title, description, sections, tags, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+templateColumns,
		in.Title, in.Description, sections, in.Tags, userID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return t, nil
}

func (s *TemplateService) Get(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	t, err := scanTemplate(s.db.Pool.QueryRow(ctx, `
		SELECT `+templateColumns+` FROM questionnaire_templates WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, ErrTemplateNotFound, "get template")
	}
	return t, nil
}

func (s *TemplateService) List(ctx context.Context, includeArchived bool) ([]models.Template, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+templateColumns+` FROM questionnaire_templates
		WHERE $1 OR NOT is_archived
		ORDER BY updated_at DESC
	`, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return collectTemplates(rows)
}

// ListByTags returns templates sharing at least one tag with tags.
func (s *TemplateService) ListByTags(ctx context.Context, tags []string, includeArchived bool) ([]models.Template, error) {
	if len(tags) == 0 {
		return []models.Template{}, nil
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+templateColumns+` FROM questionnaire_templates
		WHERE tags && $1 AND ($2 OR NOT is_archived)
		ORDER BY updated_at DESC
	`, tags, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates by tags: %w", err)
	}
	return collectTemplates(rows)
}

func collectTemplates(rows pgx.Rows) ([]models.Template, error) {
	defer rows.Close()

	templates := []models.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// Archive soft-deletes a template. Archived templates keep their versions
// and stay readable by id.
func (s *TemplateService) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE questionnaire_templates SET is_archived = TRUE, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to archive template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// Update snapshots the current sections as a TemplateVersion, applies upd
// and bumps the version, all in one transaction.
func (s *TemplateService) Update(ctx context.Context, id uuid.UUID, upd TemplateUpdate, change string, userID uuid.UUID) (*models.Template, error) {
	return s.update(ctx, id, change, userID, func(t *models.Template) error {
		if upd.Title != nil {
			if *upd.Title == "" {
				return validation.New("title", "required", "title is required")
			}
			t.Title = *upd.Title
		}
		if upd.Description != nil {
			t.Description = *upd.Description
		}
		if upd.Sections != nil {
			t.Sections = upd.Sections
		}
		if upd.Tags != nil {
			t.Tags = upd.Tags
		}
		return nil
	})
}

// AddQuestionToSection appends q to one section of the template as a
// versioned update.
func (s *TemplateService) AddQuestionToSection(ctx context.Context, templateID, sectionID uuid.UUID, q models.Question, userID uuid.UUID) (*models.Template, error) {
	if q.Text == "" || !q.Type.Valid() {
		return nil, validation.New("question", "required", "question needs text and a known type")
	}

	change := fmt.Sprintf("added question %q", q.Text)
	return s.update(ctx, templateID, change, userID, func(t *models.Template) error {
		for i := range t.Sections {
			if t.Sections[i].ID == sectionID {
				q.ID = uuid.Nil
				t.Sections[i].Questions = append(t.Sections[i].Questions, q)
				return nil
			}
		}
		return ErrSectionNotFound
	})
}

func (s *TemplateService) update(ctx context.Context, id uuid.UUID, change string, userID uuid.UUID, apply func(*models.Template) error) (*models.Template, error) {
	var updated *models.Template

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		current, err := scanTemplate(tx.QueryRow(ctx, `
			SELECT `+templateColumns+` FROM questionnaire_templates WHERE id = $1 FOR UPDATE
		`, id))
		if err != nil {
			return notFound(err, ErrTemplateNotFound, "lock template")
		}

		snapshot, err := json.Marshal(current.Sections)
		if err != nil {
			return fmt.Errorf("failed to encode sections: %w", err)
		}
		changes := []string{}
		if change != "" {
			changes = append(changes, change)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO template_versions (template_id, version, changes, sections, updated_by)
			VALUES ($1, $2, $3, $4, $5)
		`, id, current.Version, changes, snapshot, userID)
		if err != nil {
			return fmt.Errorf("failed to record template version: %w", err)
		}

		if err := apply(current); err != nil {
			return err
		}
		if current.Tags == nil {
			current.Tags = []string{}
		}
		sections, err := json.Marshal(assignIDs(current.Sections))
		if err != nil {
			return fmt.Errorf("failed to encode sections: %w", err)
		}

		updated, err = scanTemplate(tx.QueryRow(ctx, `
			UPDATE questionnaire_templates
			SET title = $2, description = $3, sections = $4, tags = $5,
			    version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING `+templateColumns,
			id, current.Title, current.Description, sections, current.Tags,
		))
		if err != nil {
			return fmt.Errorf("failed to update template: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"template_id": id,
		"version":     updated.Version,
	}).Info("template updated")
	return updated, nil
}

func (s *TemplateService) GetVersion(ctx context.Context, templateID uuid.UUID, version int) (*models.TemplateVersion, error) {
	v, err := scanTemplateVersion(s.db.Pool.QueryRow(ctx, `
		SELECT `+templateVersionColumns+` FROM template_versions
		WHERE template_id = $1 AND version = $2
	`, templateID, version))
	if err != nil {
		return nil, notFound(err, ErrTemplateVersionNotFound, "get template version")
	}
	return v, nil
}

func (s *TemplateService) ListVersions(ctx context.Context, templateID uuid.UUID) ([]models.TemplateVersion, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+templateVersionColumns+` FROM template_versions
		WHERE template_id = $1
		ORDER BY version DESC
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list template versions: %w", err)
	}
	defer rows.Close()

	versions := []models.TemplateVersion{}
	for rows.Next() {
		v, err := scanTemplateVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template version: %w", err)
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}
