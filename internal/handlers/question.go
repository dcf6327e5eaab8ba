package handlers

import (
	"net/http"

	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

// QuestionHandler serves the question bank: tags, bank sections and
// questions.
type QuestionHandler struct {
	questionService QuestionServiceInterface
	log             logrus.FieldLogger
}

func NewQuestionHandler(questionService QuestionServiceInterface, log logrus.FieldLogger) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, log: log}
}

func (h *QuestionHandler) ListTags(c *drift.Context) {
	tags, err := h.questionService.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "list tags")
		return
	}
	_ = c.JSON(http.StatusOK, tags)
}

func (h *QuestionHandler) CreateTag(c *drift.Context) {
	var req dto.TagRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	tag, err := h.questionService.CreateTag(c.Request.Context(), services.TagInput{
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.log, err, "create tag")
		return
	}
	_ = c.JSON(http.StatusCreated, tag)
}

func (h *QuestionHandler) UpdateTag(c *drift.Context) {
	id, ok := paramID(c, "id", "tag")
	if !ok {
		return
	}

	var req dto.TagRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	tag, err := h.questionService.UpdateTag(c.Request.Context(), id, services.TagInput{
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.log, err, "update tag")
		return
	}
	_ = c.JSON(http.StatusOK, tag)
}

func (h *QuestionHandler) DeleteTag(c *drift.Context) {
	id, ok := paramID(c, "id", "tag")
	if !ok {
		return
	}

	if err := h.questionService.DeleteTag(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err, "delete tag")
		return
	}
	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "tag deleted"})
}

func (h *QuestionHandler) ListSections(c *drift.Context) {
	sections, err := h.questionService.ListSections(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "list question sections")
		return
	}
	_ = c.JSON(http.StatusOK, sections)
}

func (h *QuestionHandler) CreateSection(c *drift.Context) {
	var req dto.SectionRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	section, err := h.questionService.CreateSection(c.Request.Context(), services.SectionInput{
		Name:        req.Name,
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		respondError(c, h.log, err, "create question section")
		return
	}
	_ = c.JSON(http.StatusCreated, section)
}

func (h *QuestionHandler) UpdateSection(c *drift.Context) {
	id, ok := paramID(c, "id", "section")
	if !ok {
		return
	}

	var req dto.SectionRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	section, err := h.questionService.UpdateSection(c.Request.Context(), id, services.SectionInput{
		Name:        req.Name,
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		respondError(c, h.log, err, "update question section")
		return
	}
	_ = c.JSON(http.StatusOK, section)
}

func (h *QuestionHandler) DeleteSection(c *drift.Context) {
	id, ok := paramID(c, "id", "section")
	if !ok {
		return
	}

	if err := h.questionService.DeleteSection(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err, "delete question section")
		return
	}
	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "section deleted"})
}

// ListQuestions returns the whole bank, or with ?tags=a,b only the
// questions sharing at least one tag.
func (h *QuestionHandler) ListQuestions(c *drift.Context) {
	ctx := c.Request.Context()

	var (
		questions []models.Question
		err       error
	)
	if tags := queryList(c, "tags"); len(tags) > 0 {
		questions, err = h.questionService.GetQuestionsByTags(ctx, tags)
	} else {
		questions, err = h.questionService.ListQuestions(ctx)
	}
	if err != nil {
		respondError(c, h.log, err, "list questions")
		return
	}
	_ = c.JSON(http.StatusOK, questions)
}

func (h *QuestionHandler) GetQuestion(c *drift.Context) {
	id, ok := paramID(c, "id", "question")
	if !ok {
		return
	}

	question, err := h.questionService.GetQuestion(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "get question")
		return
	}
	_ = c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) CreateQuestion(c *drift.Context) {
	var req dto.QuestionRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	question, err := h.questionService.CreateQuestion(c.Request.Context(), toQuestionInput(req))
	if err != nil {
		respondError(c, h.log, err, "create question")
		return
	}
	_ = c.JSON(http.StatusCreated, question)
}

func (h *QuestionHandler) UpdateQuestion(c *drift.Context) {
	id, ok := paramID(c, "id", "question")
	if !ok {
		return
	}

	var req dto.QuestionRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	question, err := h.questionService.UpdateQuestion(c.Request.Context(), id, toQuestionInput(req))
	if err != nil {
		respondError(c, h.log, err, "update question")
		return
	}
	_ = c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) DeleteQuestion(c *drift.Context) {
	id, ok := paramID(c, "id", "question")
	if !ok {
		return
	}

	if err := h.questionService.DeleteQuestion(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err, "delete question")
		return
	}
	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "question deleted"})
}

func toQuestionInput(req dto.QuestionRequest) services.QuestionInput {
	return services.QuestionInput{
		SectionID:   req.SectionID,
		Text:        req.Text,
		Type:        models.QuestionType(req.Type),
		Required:    req.Required,
		Description: req.Description,
		Options:     req.Options,
		Validation:  req.Validation,
		Tags:        req.Tags,
		Order:       req.Order,
	}
}
