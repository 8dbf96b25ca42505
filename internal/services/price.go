package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/metrics"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/pricing"
)

// PriceService proxies the external price-comparison service
type PriceService struct {
	client  *pricing.Client
	metrics *metrics.AppMetrics
	log     *zap.Logger
}

// NewPriceService creates a new price service. A nil client means no collaborator is configured.
func NewPriceService(client *pricing.Client, m *metrics.AppMetrics, log *zap.Logger) *PriceService {
	return &PriceService{client: client, metrics: m, log: log}
}

// Offers returns the raw offers for a component. Without a collaborator, or when it fails,
// the list is empty.
func (s *PriceService) Offers(ctx context.Context, componentID string) []models.PriceOffer {
	if s.client == nil {
		s.record(ctx, "disabled")
		return []models.PriceOffer{}
	}
	offers, err := s.client.Offers(ctx, componentID)
	if err != nil {
		s.record(ctx, "error")
		return []models.PriceOffer{}
	}
	s.record(ctx, "success")
	if offers == nil {
		offers = []models.PriceOffer{}
	}
	return offers
}

// Comparison ranks the offers of a component
func (s *PriceService) Comparison(ctx context.Context, componentID string) pricing.Comparison {
	return pricing.Compare(componentID, s.Offers(ctx, componentID))
}

func (s *PriceService) record(ctx context.Context, status string) {
	s.metrics.PriceLookups.Add(ctx, 1, s.metrics.Attrs(attribute.String("status", status)))
}
