package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cfs-platform/transaction-service/internal/domain"
	"github.com/cfs-platform/transaction-service/pkg/logging"
)

// TransactionService handles package transaction operations
type TransactionService struct {
	transactions domain.PackageTransactionRepository
	flows        domain.FlowRepository
	packingLists domain.PackingListRepository
	locations    domain.StorageLocationRepository
	logger       *logging.Logger
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	transactions domain.PackageTransactionRepository,
	flows domain.FlowRepository,
	packingLists domain.PackingListRepository,
	locations domain.StorageLocationRepository,
	logger *logging.Logger,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		flows:        flows,
		packingLists: packingLists,
		locations:    locations,
		logger:       logger,
	}
}

// CreateTransaction opens a new transaction. The server is authoritative: an
// in-progress transaction for the same packing list rejects the request even
// when the caller skipped its own check.
func (s *TransactionService) CreateTransaction(ctx context.Context, cmd CreateTransactionCommand) (*domain.PackageTransaction, error) {
	flow, err := s.resolveFlow(ctx, cmd.FlowName)
	if err != nil {
		return nil, err
	}

	list, err := s.packingLists.FindByID(ctx, cmd.PackingListID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPackingListNotFound, cmd.PackingListID)
	}

	existing, err := s.transactions.FindInProgressByPackingList(ctx, cmd.PackingListID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionInProgress, existing.TransactionID)
	}

	transactionID := cmd.TransactionID
	if transactionID == "" {
		transactionID = fmt.Sprintf("TXN-%s", uuid.New().String())
	}

	tx := domain.NewPackageTransaction(transactionID, cmd.PackingListID, flow.Name)
	if err := s.transactions.Save(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.WithTransaction(tx.TransactionID, tx.PackingListID).
		WithContext(ctx).
		Info("Created package transaction", "flow", tx.FlowName)

	return tx, nil
}

// GetTransaction hydrates a transaction with its nested packages
func (s *TransactionService) GetTransaction(ctx context.Context, transactionID string) (*domain.PackageTransaction, error) {
	tx, err := s.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, transactionID)
	}
	return tx, nil
}

// GetActiveTransaction resolves the transaction the console should display
// for a packing list. An in-progress transaction always takes precedence;
// otherwise the most recently created (hence latest done) one is returned.
// A nil result means no transaction exists.
func (s *TransactionService) GetActiveTransaction(ctx context.Context, packingListID string) (*domain.PackageTransaction, error) {
	inProgress, err := s.transactions.FindInProgressByPackingList(ctx, packingListID)
	if err != nil {
		return nil, err
	}
	if inProgress != nil {
		return inProgress, nil
	}

	all, err := s.transactions.FindByPackingList(ctx, packingListID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// ListTransactions returns all transactions of a packing list, newest first
func (s *TransactionService) ListTransactions(ctx context.Context, packingListID string) ([]*domain.PackageTransaction, error) {
	return s.transactions.FindByPackingList(ctx, packingListID)
}

// HandleStep executes one step against a transaction. The step code is
// resolved against the transaction's flow and the command fields are lifted
// into the typed payload for that step kind.
func (s *TransactionService) HandleStep(ctx context.Context, cmd HandleStepCommand) (*domain.PackageTransaction, error) {
	start := time.Now()

	tx, err := s.GetTransaction(ctx, cmd.TransactionID)
	if err != nil {
		return nil, err
	}

	flow, err := s.resolveFlow(ctx, tx.FlowName)
	if err != nil {
		return nil, err
	}

	step, ok := flow.StepByCode(cmd.Step)
	if !ok {
		return nil, fmt.Errorf("%w: %s in flow %s", domain.ErrStepNotInFlow, cmd.Step, flow.Name)
	}

	req, err := s.buildStepRequest(ctx, tx, step, cmd)
	if err != nil {
		return nil, err
	}

	if err := tx.ApplyStep(step, req); err != nil {
		s.logger.StepExecuted(ctx, tx.TransactionID, flow.Name, string(step.Code), len(tx.Packages), time.Since(start), false)
		return nil, err
	}

	if err := s.transactions.Save(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.StepExecuted(ctx, tx.TransactionID, flow.Name, string(step.Code), len(tx.Packages), time.Since(start), true)

	return tx, nil
}

// buildStepRequest maps the loose command fields onto the typed payload for
// the step kind, validating referenced lookups on the way.
func (s *TransactionService) buildStepRequest(ctx context.Context, tx *domain.PackageTransaction, step domain.Step, cmd HandleStepCommand) (domain.StepRequest, error) {
	switch step.Code {
	case domain.StepCreate:
		list, err := s.packingLists.FindByID(ctx, tx.PackingListID)
		if err != nil {
			return nil, err
		}
		if list == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrPackingListNotFound, tx.PackingListID)
		}
		if _, ok := list.LineByID(cmd.LineID); !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrLineNotFound, cmd.LineID)
		}
		packageNo := cmd.PackageNo
		if packageNo == "" {
			packageNo = fmt.Sprintf("%s-%04d", tx.PackingListID, len(tx.Packages)+1)
		}
		return domain.CreateStepRequest{LineID: cmd.LineID, PackageNo: packageNo}, nil

	case domain.StepInspect:
		return domain.InspectStepRequest{PackageIDs: cmd.PackageIDs}, nil

	case domain.StepHandover:
		return domain.HandoverStepRequest{PackageIDs: cmd.PackageIDs}, nil

	case domain.StepStore:
		loc, err := s.locations.FindByID(ctx, cmd.LocationID)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrLocationNotFound, cmd.LocationID)
		}
		if !loc.CanAccept(len(cmd.PackageIDs)) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLocationFull, loc.LocationID)
		}
		return domain.StoreStepRequest{PackageIDs: cmd.PackageIDs, LocationID: cmd.LocationID}, nil

	default:
		return nil, fmt.Errorf("%w: %s has no server-side handler", domain.ErrStepNotInFlow, step.Code)
	}
}

// CompleteTransaction closes a transaction. The terminal condition is
// re-checked server-side regardless of what the caller determined locally.
func (s *TransactionService) CompleteTransaction(ctx context.Context, cmd CompleteTransactionCommand) (*domain.PackageTransaction, error) {
	tx, err := s.GetTransaction(ctx, cmd.TransactionID)
	if err != nil {
		return nil, err
	}

	flow, err := s.resolveFlow(ctx, tx.FlowName)
	if err != nil {
		return nil, err
	}

	terminal, ok := flow.TerminalStatus()
	if !ok {
		return nil, fmt.Errorf("flow %s has no steps: %w", flow.Name, domain.ErrNotCompletable)
	}

	if err := tx.Complete(terminal); err != nil {
		return nil, err
	}

	if err := s.transactions.Save(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.WithTransaction(tx.TransactionID, tx.PackingListID).
		WithContext(ctx).
		Info("Completed package transaction", "packageCount", len(tx.Packages))

	return tx, nil
}

// DeleteTransaction removes a transaction that holds zero packages
func (s *TransactionService) DeleteTransaction(ctx context.Context, cmd DeleteTransactionCommand) error {
	tx, err := s.GetTransaction(ctx, cmd.TransactionID)
	if err != nil {
		return err
	}

	if err := tx.MarkDeleted(); err != nil {
		return err
	}

	if err := s.transactions.Delete(ctx, tx); err != nil {
		return err
	}

	s.logger.WithTransaction(tx.TransactionID, tx.PackingListID).
		WithContext(ctx).
		Info("Deleted package transaction")

	return nil
}

// resolveFlow loads and validates a flow definition. A misconfigured flow
// fails here, before any transaction mutation can observe it.
func (s *TransactionService) resolveFlow(ctx context.Context, name string) (*domain.Flow, error) {
	flow, err := s.flows.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if flow == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, name)
	}
	if err := flow.Validate(); err != nil {
		return nil, err
	}
	return flow, nil
}
