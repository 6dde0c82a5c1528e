package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"videostack-backend/internal/models"
)

// StatusPublisher announces generation status changes. Delivery is best effort.
type StatusPublisher interface {
	Publish(ctx context.Context, g *models.Generation)
}

type RedisStatusPublisher struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisStatusPublisher(client *redis.Client, logger *slog.Logger) *RedisStatusPublisher {
	return &RedisStatusPublisher{client: client, logger: logger}
}

func (p *RedisStatusPublisher) Publish(ctx context.Context, g *models.Generation) {
	data, err := json.Marshal(models.WSMessage{
		Type: models.WSTypeGenerationStatus,
		Payload: models.GenerationStatusEvent{
			GenerationID:        g.ID,
			Status:              g.Status,
			GeneratedContentURL: g.GeneratedContentURL,
			ErrorMessage:        g.ErrorMessage,
		},
	})
	if err != nil {
		return
	}

	if err := p.client.Publish(ctx, models.GenerationUpdatesChannel(g.UserID), data).Err(); err != nil {
		p.logger.Warn("failed to publish generation status", "generation_id", g.ID, "status", g.Status, "error", err)
	}
}
