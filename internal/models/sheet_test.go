package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSheetStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to SheetStatus
		want     bool
	}{
		{SheetStatusDraft, SheetStatusSent, true},
		{SheetStatusSent, SheetStatusInProgress, true},
		{SheetStatusInProgress, SheetStatusCompleted, true},
		{SheetStatusDraft, SheetStatusInProgress, false},
		{SheetStatusDraft, SheetStatusCompleted, false},
		{SheetStatusSent, SheetStatusDraft, false},
		{SheetStatusCompleted, SheetStatusDraft, false},
		{SheetStatusCompleted, SheetStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRelationshipRole(t *testing.T) {
	assert.Equal(t, RoleCustomer, RoleSupplier.Inverse())
	assert.Equal(t, RoleSupplier, RoleCustomer.Inverse())
	assert.Equal(t, "suppliers", RoleSupplier.Column())
	assert.Equal(t, "customers", RoleCustomer.Column())
	assert.False(t, RelationshipRole("partner").Valid())
}

func TestTagColor(t *testing.T) {
	assert.Equal(t, "#abc", TagColor("#abc"))
	assert.Equal(t, "#A1B2C3", TagColor("#A1B2C3"))
	assert.Equal(t, DefaultTagColor, TagColor("red"))
	assert.Equal(t, DefaultTagColor, TagColor("#12345"))
	assert.Equal(t, DefaultTagColor, TagColor(""))
}

func TestInvite_MatchesEmail(t *testing.T) {
	inv := Invite{Email: "Buyer@Example.com"}
	assert.True(t, inv.MatchesEmail("buyer@example.com "))
	assert.False(t, inv.MatchesEmail("other@example.com"))
}
