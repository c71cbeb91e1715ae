package application

import (
	"context"
	"fmt"

	"github.com/cfs-platform/transaction-service/internal/domain"
	"github.com/cfs-platform/transaction-service/pkg/logging"
)

// FlowService handles business process flow configuration
type FlowService struct {
	flows  domain.FlowRepository
	logger *logging.Logger
}

// NewFlowService creates a new FlowService
func NewFlowService(flows domain.FlowRepository, logger *logging.Logger) *FlowService {
	return &FlowService{flows: flows, logger: logger}
}

// GetFlow returns the ordered step list for a named flow. An unknown flow is
// an error; a flow with zero steps is not.
func (s *FlowService) GetFlow(ctx context.Context, name string) (*domain.Flow, error) {
	flow, err := s.flows.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if flow == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, name)
	}
	return flow, nil
}

// ListFlows returns all configured flows
func (s *FlowService) ListFlows(ctx context.Context) ([]*domain.Flow, error) {
	return s.flows.FindAll(ctx)
}

// SaveFlow validates and persists a flow definition
func (s *FlowService) SaveFlow(ctx context.Context, flow *domain.Flow) error {
	if err := flow.Validate(); err != nil {
		return err
	}
	if err := s.flows.Save(ctx, flow); err != nil {
		return err
	}

	s.logger.Info("Saved flow definition", "flow", flow.Name, "steps", len(flow.Steps))
	return nil
}

// SeedFlows persists a set of flow definitions, typically loaded from the
// flow configuration file at startup. Invalid definitions abort the seed.
func (s *FlowService) SeedFlows(ctx context.Context, flows []*domain.Flow) error {
	for _, flow := range flows {
		if err := s.SaveFlow(ctx, flow); err != nil {
			return fmt.Errorf("seeding flow %s: %w", flow.Name, err)
		}
	}
	return nil
}
