package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/storage"
)

type participantMap map[string]*models.Participant

func (m participantMap) GetParticipant(_ context.Context, id string) (*models.Participant, error) {
	p, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("%w: participant %s", storage.ErrNotFound, id)
	}
	return p, nil
}

func TestResolveReceiver(t *testing.T) {
	tree := participantMap{
		"root":   {ID: "root"},
		"gp":     {ID: "gp", ParentID: "root", SponsorID: "root"},
		"parent": {ID: "parent", ParentID: "gp", SponsorID: "gp"},
		"orphan": {ID: "orphan", ParentID: "root"},
	}

	tests := []struct {
		name  string
		child *models.Participant
		want  string
	}{
		{
			name:  "no sponsor",
			child: &models.Participant{ID: "c", ParentID: "parent"},
			want:  "",
		},
		{
			name:  "sponsor is not the parent",
			child: &models.Participant{ID: "c", ParentID: "parent", SponsorID: "gp"},
			want:  "gp",
		},
		{
			name:  "sponsor is the parent",
			child: &models.Participant{ID: "c", ParentID: "parent", SponsorID: "parent"},
			want:  "gp",
		},
		{
			name:  "sponsor is the parent without a sponsor",
			child: &models.Participant{ID: "c", ParentID: "orphan", SponsorID: "orphan"},
			want:  "orphan",
		},
		{
			name:  "sponsor is the root",
			child: &models.Participant{ID: "c", ParentID: "root", SponsorID: "root"},
			want:  "root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveReceiver(context.Background(), tree, tt.child)
			if err != nil {
				t.Fatalf("ResolveReceiver failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveReceiver() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveReceiverMissingParent(t *testing.T) {
	child := &models.Participant{ID: "c", ParentID: "ghost", SponsorID: "ghost"}
	_, err := ResolveReceiver(context.Background(), participantMap{}, child)
	if err == nil {
		t.Fatal("Expected error for missing parent")
	}
}

func TestRouteOutcomeForfeited(t *testing.T) {
	forfeited := map[RouteOutcome]bool{
		OutcomeCredited:           false,
		OutcomeAlreadyCredited:    false,
		OutcomeNoSponsor:          true,
		OutcomeReceiverIneligible: true,
		OutcomeNothingToMirror:    false,
		OutcomeChildUnsettled:     false,
		OutcomeReceiverOutsideRun: false,
	}
	for outcome, want := range forfeited {
		if got := outcome.Forfeited(); got != want {
			t.Errorf("%s.Forfeited() = %v, want %v", outcome, got, want)
		}
	}
}
