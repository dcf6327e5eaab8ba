package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CreateInviteRequest struct {
	Name           string   `json:"name"`
	ContactName    string   `json:"contact_name"`
	PrimaryContact string   `json:"primary_contact"`
	Role           string   `json:"role"`
	Tags           []string `json:"tags,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
}

type CreateInviteResponse struct {
	InviteCode      uuid.UUID `json:"invite_code"`
	TargetCompanyID uuid.UUID `json:"target_company_id"`
}

type InviteResponse struct {
	Code              uuid.UUID `json:"code"`
	InvitingCompanyID uuid.UUID `json:"inviting_company_id"`
	Name              string    `json:"name"`
	ContactName       string    `json:"contact_name"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	Tags              []string  `json:"tags"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

type AnswerRequest struct {
	QuestionID uuid.UUID       `json:"question_id"`
	Value      json.RawMessage `json:"value"`
}

type RedeemInviteRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Name     string          `json:"name"`
	Answers  []AnswerRequest `json:"answers,omitempty"`
}
