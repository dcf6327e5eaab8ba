package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

const (
	tagColumns      = `id, name, color, description, created_at, updated_at`
	sectionColumns  = `id, name, description, sort_order, created_at`
	questionColumns = `id, section_id, text, type, required, description, options, validation, tags, sort_order, created_at, updated_at`

	bankQuestionColumns = `q.id, q.section_id, q.text, q.type, q.required, q.description, q.options, q.validation, q.tags, q.sort_order, q.created_at, q.updated_at`
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanTag(row scanner) (*models.Tag, error) {
	var t models.Tag
	if err := row.Scan(&t.ID, &t.Name, &t.Color, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanQuestionSection(row scanner) (*models.QuestionSection, error) {
	var s models.QuestionSection
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Order, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanQuestion(row scanner) (*models.Question, error) {
	var (
		q     models.Question
		rules []byte
	)
	err := row.Scan(
		&q.ID, &q.SectionID, &q.Text, &q.Type, &q.Required, &q.Description,
		&q.Options, &rules, &q.Tags, &q.Order, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &q.Validation); err != nil {
			return nil, fmt.Errorf("failed to decode validation rules: %w", err)
		}
	}
	return &q, nil
}

func collectQuestions(rows pgx.Rows) ([]models.Question, error) {
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// questionsByTags returns bank questions sharing at least one tag with tags,
// ordered by section and position.
func questionsByTags(ctx context.Context, q querier, tags []string) ([]models.Question, error) {
	if len(tags) == 0 {
		return []models.Question{}, nil
	}

	rows, err := q.Query(ctx, `
		SELECT `+bankQuestionColumns+` FROM questions q
		LEFT JOIN question_sections s ON s.id = q.section_id
		WHERE q.tags && $1
		ORDER BY s.sort_order NULLS LAST, q.sort_order, q.created_at
	`, tags)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions by tags: %w", err)
	}
	return collectQuestions(rows)
}

type TagInput struct {
	Name        string `validate:"required,max=100"`
	Color       string
	Description *string
}

type SectionInput struct {
	Name        string `validate:"required"`
	Description *string
	Order       int `validate:"gte=0"`
}

type QuestionInput struct {
	SectionID   *uuid.UUID
	Text        string              `validate:"required"`
	Type        models.QuestionType `validate:"required"`
	Required    bool
	Description *string
	Options     []string
	Validation  models.ValidationRules
	Tags        []string
	Order       int `validate:"gte=0"`
}

func (in *QuestionInput) check() error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return validation.New("type", "oneof", "type is not a known question type")
	}
	if in.Type.HasOptions() && len(in.Options) == 0 {
		return validation.New("options", "required", "options is required for choice questions")
	}
	if in.Options == nil {
		in.Options = []string{}
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	return nil
}

// QuestionService manages the question bank: tags, bank sections and the
// questions product sheets are scoped from.
type QuestionService struct {
	db  *database.DB
	log logrus.FieldLogger
}

func NewQuestionService(db *database.DB, log logrus.FieldLogger) *QuestionService {
	return &QuestionService{db: db, log: log}
}

func (s *QuestionService) CreateTag(ctx context.Context, in TagInput) (*models.Tag, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	tag, err := scanTag(s.db.Pool.QueryRow(ctx, `
		INSERT INTO question_tags (name, color, description)
		VALUES ($1, $2, $3)
		RETURNING `+tagColumns,
		in.Name, models.TagColor(in.Color), in.Description,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, validation.New("name", "unique", "a tag with this name already exists")
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return tag, nil
}

func (s *QuestionService) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT `+tagColumns+` FROM question_tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

func (s *QuestionService) UpdateTag(ctx context.Context, id uuid.UUID, in TagInput) (*models.Tag, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	tag, err := scanTag(s.db.Pool.QueryRow(ctx, `
		UPDATE question_tags
		SET name = $2, color = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+tagColumns,
		id, in.Name, models.TagColor(in.Color), in.Description,
	))
	if err != nil {
		return nil, notFound(err, ErrTagNotFound, "update tag")
	}
	return tag, nil
}

// DeleteTag removes the tag. Questions and templates keep the tag name in
// their arrays; it simply stops being offered for selection.
func (s *QuestionService) DeleteTag(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM question_tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (s *QuestionService) CreateSection(ctx context.Context, in SectionInput) (*models.QuestionSection, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	section, err := scanQuestionSection(s.db.Pool.QueryRow(ctx, `
		INSERT INTO question_sections (name, description, sort_order)
		VALUES ($1, $2, $3)
		RETURNING `+sectionColumns,
		in.Name, in.Description, in.Order,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create section: %w", err)
	}
	return section, nil
}

func (s *QuestionService) ListSections(ctx context.Context) ([]models.QuestionSection, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT `+sectionColumns+` FROM question_sections ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()

	sections := []models.QuestionSection{}
	for rows.Next() {
		sec, err := scanQuestionSection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, *sec)
	}
	return sections, rows.Err()
}

func (s *QuestionService) UpdateSection(ctx context.Context, id uuid.UUID, in SectionInput) (*models.QuestionSection, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	section, err := scanQuestionSection(s.db.Pool.QueryRow(ctx, `
		UPDATE question_sections SET name = $2, description = $3, sort_order = $4
		WHERE id = $1
		RETURNING `+sectionColumns,
		id, in.Name, in.Description, in.Order,
	))
	if err != nil {
		return nil, notFound(err, ErrSectionNotFound, "update section")
	}
	return section, nil
}

// DeleteSection removes a bank section; its questions become unsectioned.
func (s *QuestionService) DeleteSection(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM question_sections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete section: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSectionNotFound
	}
	return nil
}

func (s *QuestionService) CreateQuestion(ctx context.Context, in QuestionInput) (*models.Question, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	rules, err := json.Marshal(in.Validation)
	if err != nil {
		return nil, fmt.Errorf("failed to encode validation rules: %w", err)
	}

	q, err := scanQuestion(s.db.Pool.QueryRow(ctx, `
		INSERT INTO questions (section_id, text, type, required, description, options, validation, tags, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+questionColumns,
		in.SectionID, in.Text, in.Type, in.Required, in.Description, in.Options, rules, in.Tags, in.Order,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return q, nil
}

func (s *QuestionService) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	q, err := scanQuestion(s.db.Pool.QueryRow(ctx, `
		SELECT `+questionColumns+` FROM questions WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, ErrQuestionNotFound, "get question")
	}
	return q, nil
}

func (s *QuestionService) ListQuestions(ctx context.Context) ([]models.Question, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+questionColumns+` FROM questions ORDER BY sort_order, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return collectQuestions(rows)
}

func (s *QuestionService) GetQuestionsByTags(ctx context.Context, tags []string) ([]models.Question, error) {
	return questionsByTags(ctx, s.db.Pool, tags)
}

func (s *QuestionService) UpdateQuestion(ctx context.Context, id uuid.UUID, in QuestionInput) (*models.Question, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	rules, err := json.Marshal(in.Validation)
	if err != nil {
		return nil, fmt.Errorf("failed to encode validation rules: %w", err)
	}

	q, err := scanQuestion(s.db.Pool.QueryRow(ctx, `
		UPDATE questions
		SET section_id = $2, text = $3, type = $4, required = $5, description = $6,
		    options = $7, validation = $8, tags = $9, sort_order = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING `+questionColumns,
		id, in.SectionID, in.Text, in.Type, in.Required, in.Description, in.Options, rules, in.Tags, in.Order,
	))
	if err != nil {
		return nil, notFound(err, ErrQuestionNotFound, "update question")
	}
	return q, nil
}

func (s *QuestionService) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}
	s.log.WithField("question_id", id).Info("question deleted")
	return nil
}
