package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/build"
	"github.com/SigNoz/pcparts-store/internal/metrics"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/store"
)

// BuildService handles saved builds and the summary of unsaved selections
type BuildService struct {
	store      store.Store
	components *ComponentService
	aggregator *build.Aggregator
	metrics    *metrics.AppMetrics
	log        *zap.Logger
}

// NewBuildService creates a new build service
func NewBuildService(s store.Store, components *ComponentService, aggregator *build.Aggregator, m *metrics.AppMetrics, log *zap.Logger) *BuildService {
	return &BuildService{
		store:      s,
		components: components,
		aggregator: aggregator,
		metrics:    m,
		log:        log,
	}
}

// ListBuilds returns the builds of one user, or every build when userID is empty
func (s *BuildService) ListBuilds(ctx context.Context, userID string) ([]models.Build, error) {
	return s.store.ListBuilds(ctx, store.BuildFilter{OwnerID: userID})
}

// GetBuild returns a build by id
func (s *BuildService) GetBuild(ctx context.Context, id string) (*models.Build, error) {
	return s.store.GetBuild(ctx, id)
}

// Check summarizes a selection without saving it
func (s *BuildService) Check(ctx context.Context, req models.CheckBuildRequest) (*build.Summary, error) {
	sel, err := s.components.Selection(ctx, req.Components)
	if err != nil {
		return nil, err
	}
	summary := s.aggregator.Summarize(sel)
	return &summary, nil
}

// CreateBuild prices, scores and stores a new build
func (s *BuildService) CreateBuild(ctx context.Context, req models.CreateBuildRequest) (*models.Build, error) {
	b := &models.Build{ID: uuid.NewString()}
	if err := s.apply(ctx, b, req); err != nil {
		return nil, err
	}
	if err := s.store.CreateBuild(ctx, b); err != nil {
		return nil, err
	}

	attrs := s.metrics.Attrs(attribute.String("use_case", string(b.UseCase)))
	s.metrics.BuildsCreated.Add(ctx, 1, attrs)
	s.metrics.BuildValueTotal.Add(ctx, b.TotalPrice.InexactFloat64(), attrs)

	s.log.Info("Build created",
		zap.String("build_id", b.ID),
		zap.String("use_case", string(b.UseCase)),
		zap.Int("components", len(b.Components)),
		zap.String("total_price", b.TotalPrice.StringFixed(2)))
	return b, nil
}

// UpdateBuild replaces the contents of a build and recomputes its price and score
func (s *BuildService) UpdateBuild(ctx context.Context, id string, req models.CreateBuildRequest) (*models.Build, error) {
	b, err := s.store.GetBuild(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, b, req); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBuild(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBuild removes a build
func (s *BuildService) DeleteBuild(ctx context.Context, id string) error {
	return s.store.DeleteBuild(ctx, id)
}

func (s *BuildService) apply(ctx context.Context, b *models.Build, req models.CreateBuildRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return fmt.Errorf("%w: build name is required", store.ErrInvalid)
	}
	useCase := req.UseCase
	if useCase == "" {
		useCase = models.UseCaseCustom
	}
	if !useCase.Valid() {
		return fmt.Errorf("%w: unknown build category %q", store.ErrInvalid, req.UseCase)
	}

	sel, err := s.components.Selection(ctx, req.Components)
	if err != nil {
		return err
	}

	b.Name = name
	b.Description = req.Description
	b.UseCase = useCase
	b.Components = req.Components
	if b.Components == nil {
		b.Components = models.BuildComponents{}
	}
	b.TotalPrice = build.TotalPrice(sel)
	b.PerformanceScore = s.aggregator.Performance(sel).Score(useCase)
	if req.UserID != "" {
		b.OwnerID = req.UserID
	}
	b.IsPublic = req.IsPublic
	return nil
}
