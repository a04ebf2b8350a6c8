package services

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/courtside/bracket-engine/brackets"
	"github.com/courtside/bracket-engine/models"
)

// LivePublisher pushes match row mutations to everyone watching the
// bracket. Publishing is fire-and-forget: it never fails the operation
// that triggered it.
type LivePublisher interface {
	PublishMatchCreated(match *models.BracketMatch)
	PublishMatchUpdated(match *models.BracketMatch)
}

type hubPublisher struct {
	hub    *brackets.Hub
	logger *slog.Logger
}

func NewHubPublisher(hub *brackets.Hub, logger *slog.Logger) LivePublisher {
	return &hubPublisher{hub: hub, logger: logger}
}

func (p *hubPublisher) PublishMatchCreated(match *models.BracketMatch) {
	p.publish(brackets.EventMatchCreated, match)
}

func (p *hubPublisher) PublishMatchUpdated(match *models.BracketMatch) {
	p.publish(brackets.EventMatchUpdated, match)
}

func (p *hubPublisher) publish(eventType string, match *models.BracketMatch) {
	if match == nil {
		return
	}
	p.hub.BroadcastMatchEvent(&brackets.MatchEvent{
		Type:            eventType,
		EventID:         uuid.NewString(),
		BracketConfigID: match.BracketConfigID,
		Match:           match,
	})
	p.logger.Debug("published match event",
		slog.String("type", eventType),
		slog.Int("match_id", match.ID),
		slog.Int("bracket_config_id", match.BracketConfigID),
	)
}

// NopPublisher discards events; used when no hub is wired (tests, CLIs).
type NopPublisher struct{}

func (NopPublisher) PublishMatchCreated(*models.BracketMatch) {}
func (NopPublisher) PublishMatchUpdated(*models.BracketMatch) {}
