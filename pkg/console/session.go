// Package console drives the package transaction workflow from an operator
// terminal. A Session holds the active transaction for one packing list,
// renders step editors from the flow definition, and executes steps through
// the API client. The server is authoritative: the session refreshes after
// every mutation attempt instead of merging results optimistically.
package console

import (
	"context"
	"errors"
	"fmt"

	"github.com/cfs-platform/transaction-service/pkg/console/client"
)

// Session errors
var (
	ErrNoTransaction     = errors.New("no transaction is open for this packing list")
	ErrNoStepSelected    = errors.New("no step is selected")
	ErrNothingSelected   = errors.New("no packages selected")
	ErrStaleSelection    = errors.New("some selected packages are no longer eligible")
	ErrSelectionTooLarge = errors.New("selection exceeds the store batch limit")
)

// MaxStoreBatch caps how many packages one store submission may carry
const MaxStoreBatch = 50

// ConfigError marks a blocking flow configuration failure. The session
// cannot render step editors until the flow resolves.
type ConfigError struct {
	FlowName string
	Err      error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("flow %s could not be resolved: %v", e.FlowName, e.Err)
}

// Unwrap returns the wrapped error
func (e *ConfigError) Unwrap() error { return e.Err }

// API is the surface of the transaction service the session depends on
type API interface {
	CreateTransaction(ctx context.Context, packingListID, flowName string) (*client.Transaction, error)
	GetTransaction(ctx context.Context, transactionID string) (*client.Transaction, error)
	GetActiveTransaction(ctx context.Context, packingListID string) (*client.Transaction, error)
	HandleStep(ctx context.Context, transactionID string, req client.StepRequest) (*client.Transaction, error)
	CompleteTransaction(ctx context.Context, transactionID string) (*client.Transaction, error)
	DeleteTransaction(ctx context.Context, transactionID string) error
	GetFlow(ctx context.Context, name string) (*client.Flow, error)
}

// StepEditor describes how one flow step renders. Unknown step codes render
// as an unsupported placeholder, never as an error.
type StepEditor struct {
	Code       string
	FromStatus string
	ToStatus   string
	Supported  bool
}

// BatchResult reports the outcome of a sequential batch of single-unit calls.
// Succeeded counts the calls that completed before the first failure.
type BatchResult struct {
	Requested int
	Succeeded int
	Err       error
}

// SelectAllState is the tri-state of the select-all checkbox
type SelectAllState int

const (
	SelectAllUnchecked SelectAllState = iota
	SelectAllIndeterminate
	SelectAllChecked
)

// Session is the executor for one packing list's transaction workflow
type Session struct {
	api           API
	packingListID string

	tx        *client.Transaction
	flow      *client.Flow
	stepIndex int
	selection map[string]bool
}

// NewSession creates a session for a packing list. Call Open to resolve the
// active transaction.
func NewSession(api API, packingListID string) *Session {
	return &Session{
		api:           api,
		packingListID: packingListID,
		selection:     make(map[string]bool),
	}
}

// Open resolves the transaction to display. An in-progress transaction wins
// over the latest done one; no transaction leaves the session empty.
func (s *Session) Open(ctx context.Context) error {
	tx, err := s.api.GetActiveTransaction(ctx, s.packingListID)
	if err != nil {
		return err
	}
	s.setTransaction(tx)

	if s.tx != nil {
		return s.loadFlow(ctx)
	}
	return nil
}

// Create opens a new transaction for the session's packing list
func (s *Session) Create(ctx context.Context, flowName string) error {
	tx, err := s.api.CreateTransaction(ctx, s.packingListID, flowName)
	if err != nil {
		return err
	}
	s.setTransaction(tx)
	return s.loadFlow(ctx)
}

// Refresh re-fetches the session's transaction from the server. A vanished
// transaction falls back to resolving the active one again.
func (s *Session) Refresh(ctx context.Context) error {
	if s.tx == nil {
		return s.Open(ctx)
	}

	tx, err := s.api.GetTransaction(ctx, s.tx.TransactionID)
	if err != nil {
		if client.IsNotFound(err) {
			return s.Open(ctx)
		}
		return err
	}

	s.tx = tx
	s.pruneSelection()
	s.clampStepIndex()
	return nil
}

// Transaction returns the session's current transaction, nil when none is open
func (s *Session) Transaction() *client.Transaction {
	return s.tx
}

// StepEditors returns one editor descriptor per flow step, in flow order
func (s *Session) StepEditors() []StepEditor {
	if s.flow == nil {
		return nil
	}
	editors := make([]StepEditor, len(s.flow.Steps))
	for i, step := range s.flow.Steps {
		editors[i] = StepEditor{
			Code:       step.Code,
			FromStatus: step.FromStatus,
			ToStatus:   step.ToStatus,
			Supported:  isBuiltinStep(step.Code),
		}
	}
	return editors
}

// StepIndex returns the selected step index. It is always valid while the
// flow has steps.
func (s *Session) StepIndex() int {
	return s.stepIndex
}

// SelectStep moves the step selection. Out-of-range indexes clamp to the
// nearest valid one.
func (s *Session) SelectStep(index int) {
	s.stepIndex = index
	s.clampStepIndex()
	s.resetSelection()
}

// CurrentEditor returns the editor for the selected step
func (s *Session) CurrentEditor() (StepEditor, bool) {
	editors := s.StepEditors()
	if len(editors) == 0 {
		return StepEditor{}, false
	}
	return editors[s.stepIndex], true
}

// EligiblePackages returns the packages the current step can act on, in
// transaction order
func (s *Session) EligiblePackages() []client.Package {
	editor, ok := s.CurrentEditor()
	if !ok || s.tx == nil {
		return nil
	}
	var out []client.Package
	for _, pkg := range s.tx.Packages {
		if pkg.Status == editor.FromStatus {
			out = append(out, pkg)
		}
	}
	return out
}

// Select marks an eligible package as selected. Selecting an ineligible
// package is a no-op.
func (s *Session) Select(packageID string) {
	for _, pkg := range s.EligiblePackages() {
		if pkg.ID == packageID {
			s.selection[packageID] = true
			return
		}
	}
}

// Deselect removes a package from the selection
func (s *Session) Deselect(packageID string) {
	delete(s.selection, packageID)
}

// SelectAll selects every eligible package
func (s *Session) SelectAll() {
	for _, pkg := range s.EligiblePackages() {
		s.selection[pkg.ID] = true
	}
}

// ClearSelection empties the selection
func (s *Session) ClearSelection() {
	s.resetSelection()
}

// ToggleSelectAll flips the select-all checkbox. An indeterminate selection
// becomes fully checked.
func (s *Session) ToggleSelectAll() {
	if s.SelectAllState() == SelectAllChecked {
		s.resetSelection()
		return
	}
	s.SelectAll()
}

// SelectAllState derives the tri-state of the select-all checkbox from the
// current selection
func (s *Session) SelectAllState() SelectAllState {
	eligible := s.EligiblePackages()
	if len(eligible) == 0 || len(s.selection) == 0 {
		return SelectAllUnchecked
	}
	if len(s.selection) == len(eligible) {
		return SelectAllChecked
	}
	return SelectAllIndeterminate
}

// SelectedIDs returns the selected package IDs in transaction order
func (s *Session) SelectedIDs() []string {
	if s.tx == nil {
		return nil
	}
	var out []string
	for _, pkg := range s.tx.Packages {
		if s.selection[pkg.ID] {
			out = append(out, pkg.ID)
		}
	}
	return out
}

// CreateUnits receives n packages against a packing-list line as n sequential
// single-unit calls. The sequence stops at the first failure, so a failure on
// call K leaves K-1 packages created. The session refreshes afterwards either
// way.
func (s *Session) CreateUnits(ctx context.Context, lineID string, n int) BatchResult {
	result := BatchResult{Requested: n}
	if s.tx == nil {
		result.Err = ErrNoTransaction
		return result
	}

	for i := 0; i < n; i++ {
		if _, err := s.api.HandleStep(ctx, s.tx.TransactionID, client.CreateStep{LineID: lineID}); err != nil {
			result.Err = err
			break
		}
		result.Succeeded++
	}

	if err := s.Refresh(ctx); err != nil && result.Err == nil {
		result.Err = err
	}
	return result
}

// InspectSelected advances the selected packages through the inspect step as
// one bulk call. The server applies it all-or-nothing.
func (s *Session) InspectSelected(ctx context.Context) error {
	ids := s.SelectedIDs()
	return s.bulkStep(ctx, client.InspectStep{PackageIDs: ids}, ids)
}

// HandoverSelected advances the selected packages through the handover step
// as one bulk call
func (s *Session) HandoverSelected(ctx context.Context) error {
	ids := s.SelectedIDs()
	return s.bulkStep(ctx, client.HandoverStep{PackageIDs: ids}, ids)
}

// StoreSelected assigns the selected packages to a location, one call per
// package. The selection is re-validated against the step's source status
// right before submission; a stale selection aborts without issuing any call.
func (s *Session) StoreSelected(ctx context.Context, locationID string) BatchResult {
	ids := s.SelectedIDs()
	result := BatchResult{Requested: len(ids)}

	if s.tx == nil {
		result.Err = ErrNoTransaction
		return result
	}
	if len(ids) == 0 {
		result.Err = ErrNothingSelected
		return result
	}
	if len(ids) > MaxStoreBatch {
		result.Err = fmt.Errorf("%w: %d selected, limit %d", ErrSelectionTooLarge, len(ids), MaxStoreBatch)
		return result
	}
	if err := s.revalidateSelection(ids); err != nil {
		result.Err = err
		return result
	}

	for _, id := range ids {
		if _, err := s.api.HandleStep(ctx, s.tx.TransactionID, client.StoreStep{PackageIDs: []string{id}, LocationID: locationID}); err != nil {
			if client.IsStaleSelection(err) {
				err = fmt.Errorf("%w: %v", ErrStaleSelection, err)
			}
			result.Err = err
			break
		}
		result.Succeeded++
	}

	if err := s.Refresh(ctx); err != nil && result.Err == nil {
		result.Err = err
	}
	if result.Err == nil {
		s.resetSelection()
	}
	return result
}

// Completable reports whether the complete action is enabled
func (s *Session) Completable() bool {
	return s.tx != nil && s.tx.Completable
}

// Deletable reports whether the delete action is enabled
func (s *Session) Deletable() bool {
	return s.tx != nil && s.tx.Deletable
}

// Complete closes the session's transaction. The server re-checks the
// terminal condition.
func (s *Session) Complete(ctx context.Context) error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	_, err := s.api.CompleteTransaction(ctx, s.tx.TransactionID)
	if refreshErr := s.Refresh(ctx); refreshErr != nil && err == nil {
		err = refreshErr
	}
	return err
}

// Delete removes the session's transaction and re-resolves the active one
func (s *Session) Delete(ctx context.Context) error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	err := s.api.DeleteTransaction(ctx, s.tx.TransactionID)
	if err != nil {
		if refreshErr := s.Refresh(ctx); refreshErr != nil {
			return refreshErr
		}
		return err
	}
	s.setTransaction(nil)
	return s.Open(ctx)
}

func (s *Session) bulkStep(ctx context.Context, req client.StepRequest, ids []string) error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	if len(ids) == 0 {
		return ErrNothingSelected
	}

	_, err := s.api.HandleStep(ctx, s.tx.TransactionID, req)
	if client.IsStaleSelection(err) {
		err = fmt.Errorf("%w: %v", ErrStaleSelection, err)
	}

	if refreshErr := s.Refresh(ctx); refreshErr != nil && err == nil {
		err = refreshErr
	}
	if err == nil {
		s.resetSelection()
	}
	return err
}

// revalidateSelection checks every selected package against the current
// step's source status in the latest known snapshot
func (s *Session) revalidateSelection(ids []string) error {
	editor, ok := s.CurrentEditor()
	if !ok {
		return ErrNoStepSelected
	}

	statusByID := make(map[string]string, len(s.tx.Packages))
	for _, pkg := range s.tx.Packages {
		statusByID[pkg.ID] = pkg.Status
	}

	var stale []string
	for _, id := range ids {
		if statusByID[id] != editor.FromStatus {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		return fmt.Errorf("%w: %v", ErrStaleSelection, stale)
	}
	return nil
}

func (s *Session) loadFlow(ctx context.Context) error {
	flow, err := s.api.GetFlow(ctx, s.tx.FlowName)
	if err != nil {
		return &ConfigError{FlowName: s.tx.FlowName, Err: err}
	}
	s.flow = flow
	s.clampStepIndex()
	return nil
}

func (s *Session) setTransaction(tx *client.Transaction) {
	s.tx = tx
	if tx == nil {
		s.flow = nil
	}
	s.stepIndex = 0
	s.resetSelection()
}

// pruneSelection drops selected packages that left the current step's source
// status since the last refresh
func (s *Session) pruneSelection() {
	eligible := make(map[string]bool)
	for _, pkg := range s.EligiblePackages() {
		eligible[pkg.ID] = true
	}
	for id := range s.selection {
		if !eligible[id] {
			delete(s.selection, id)
		}
	}
}

func (s *Session) clampStepIndex() {
	if s.flow == nil || len(s.flow.Steps) == 0 {
		s.stepIndex = 0
		return
	}
	if s.stepIndex < 0 {
		s.stepIndex = 0
	}
	if s.stepIndex >= len(s.flow.Steps) {
		s.stepIndex = len(s.flow.Steps) - 1
	}
}

func (s *Session) resetSelection() {
	s.selection = make(map[string]bool)
}

func isBuiltinStep(code string) bool {
	switch code {
	case "create", "inspect", "store", "handover":
		return true
	default:
		return false
	}
}
