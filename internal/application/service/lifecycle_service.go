package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/approval"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	"github.com/garyjia/purchase-approval/internal/domain/reconcile"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Document is an uploaded bill image or PDF accompanying a submission
type Document struct {
	Filename string
	Content  []byte
}

// SubmitInput carries the user-declared fields of a new purchase request
type SubmitInput struct {
	UploaderName    string
	VendorName      string
	Purpose         entity.Purpose
	Amount          float64
	Hub             entity.Hub
	BillType        entity.BillType
	PaymentSequence entity.PaymentSequence
	PaymentDate     time.Time
	Document        *Document
}

// FieldEdits holds administrative corrections to non-status fields. Nil
// fields are left unchanged. Status, amount and approval records are
// deliberately not editable here: status integrity only ever changes
// through Transition.
type FieldEdits struct {
	UploaderName *string
	VendorName   *string
	Purpose      *entity.Purpose
	Hub          *entity.Hub
	BillType     *entity.BillType
	PaymentDate  *time.Time
}

func (f FieldEdits) apply(p *entity.Purchase) {
	if f.UploaderName != nil {
		p.UploaderName = *f.UploaderName
	}
	if f.VendorName != nil {
		p.VendorName = *f.VendorName
	}
	if f.Purpose != nil {
		p.Purpose = *f.Purpose
	}
	if f.Hub != nil {
		p.Hub = *f.Hub
	}
	if f.BillType != nil {
		p.BillType = *f.BillType
	}
	if f.PaymentDate != nil {
		p.PaymentDate = *f.PaymentDate
	}
}

// LifecycleEngine owns the purchase state machine: it validates
// submissions, routes transitions through the approval policy, and
// serializes concurrent writes per record via compare-and-swap.
type LifecycleEngine interface {
	Submit(ctx context.Context, in SubmitInput) (*entity.Purchase, error)
	Transition(ctx context.Context, id string, role entity.Role, action approval.Action) (*entity.Purchase, error)
	Correct(ctx context.Context, id string, role entity.Role, edits FieldEdits) (*entity.Purchase, error)
	Remove(ctx context.Context, id string, role entity.Role) error
	Get(ctx context.Context, id string) (*entity.Purchase, error)
	ListByRecency(ctx context.Context, limit, offset int) ([]*entity.Purchase, error)
}

type lifecycleEngine struct {
	repo      port.PurchaseRepository
	blobs     port.BlobStore
	extractor port.DocumentExtractor
	policy    *approval.Policy
	logger    Logger

	extractTimeout time.Duration
	now            func() time.Time
	newID          func() string
}

// EngineOption configures the lifecycle engine
type EngineOption func(*lifecycleEngine)

// WithExtractionTimeout bounds each document extraction call
func WithExtractionTimeout(d time.Duration) EngineOption {
	return func(e *lifecycleEngine) {
		e.extractTimeout = d
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *lifecycleEngine) {
		e.now = now
	}
}

// WithIDGenerator overrides purchase id generation
func WithIDGenerator(newID func() string) EngineOption {
	return func(e *lifecycleEngine) {
		e.newID = newID
	}
}

// NewLifecycleEngine creates a new LifecycleEngine. The extractor may be
// nil when document extraction is disabled.
func NewLifecycleEngine(
	repo port.PurchaseRepository,
	blobs port.BlobStore,
	extractor port.DocumentExtractor,
	policy *approval.Policy,
	logger Logger,
	opts ...EngineOption,
) LifecycleEngine {
	e := &lifecycleEngine{
		repo:           repo,
		blobs:          blobs,
		extractor:      extractor,
		policy:         policy,
		logger:         logger,
		extractTimeout: 30 * time.Second,
		now:            time.Now,
		newID:          uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Submit validates the declared fields, stores the bill document, runs
// best-effort extraction and reconciliation, and persists the purchase in
// pending status.
func (e *lifecycleEngine) Submit(ctx context.Context, in SubmitInput) (*entity.Purchase, error) {
	if in.Document == nil && in.PaymentSequence.RequiresBill() {
		return nil, &entity.ValidationError{
			Field:  "document",
			Reason: fmt.Sprintf("a bill document is required for payment sequence %q", in.PaymentSequence),
		}
	}

	p := &entity.Purchase{
		ID:              e.newID(),
		UploaderName:    in.UploaderName,
		VendorName:      in.VendorName,
		Purpose:         in.Purpose,
		Amount:          in.Amount,
		Hub:             in.Hub,
		BillType:        in.BillType,
		PaymentSequence: in.PaymentSequence,
		PaymentDate:     in.PaymentDate,
		Status:          entity.StatusPending,
		CreatedAt:       e.now(),
		Version:         1,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if in.Document != nil {
		url, err := e.blobs.Store(ctx, in.Document.Content, in.Document.Filename)
		if err != nil {
			e.logger.Error("Failed to store bill document", "file", in.Document.Filename, "error", err)
			return nil, &DependencyError{Op: "store bill document", Err: err}
		}
		p.FileURL = url
		p.FileName = in.Document.Filename

		extracted, err := e.extract(ctx, in.Document)
		if err != nil {
			e.logger.Info("Proceeding without OCR data",
				"file", in.Document.Filename, "error", err)
		}
		p.Extracted = extracted
		p.Reconciliation = reconcile.Reconcile(
			reconcile.Declared{VendorName: p.VendorName, Amount: p.Amount},
			p.Extracted,
		)
	}

	if err := e.repo.Insert(ctx, p); err != nil {
		e.logger.Error("Failed to insert purchase", "id", p.ID, "error", err)
		return nil, &DependencyError{Op: "insert purchase", Err: err}
	}

	e.logger.Info("Purchase submitted",
		"id", p.ID,
		"amount", p.Amount,
		"requires_director", e.policy.RequiresDirector(p.Amount),
		"extracted", p.Extracted != nil,
	)
	return p, nil
}

// extract runs the document extractor with a bounded timeout. Any failure
// comes back as ErrExtractionUnavailable: a soft condition the caller logs
// and continues past, never a submission failure.
func (e *lifecycleEngine) extract(ctx context.Context, doc *Document) (*entity.ExtractedData, error) {
	if e.extractor == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.extractTimeout)
	defer cancel()

	data, err := e.extractor.Extract(ctx, doc.Content, doc.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionUnavailable, err)
	}
	return data, nil
}

// Transition applies a workflow action to a purchase. The write is
// conditioned on the version observed at read time; a lost race triggers
// one re-read and policy re-evaluation before surfacing a conflict.
func (e *lifecycleEngine) Transition(ctx context.Context, id string, role entity.Role, action approval.Action) (*entity.Purchase, error) {
	if !action.IsValid() {
		return nil, &entity.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", action)}
	}

	conflicted := false
	for attempt := 0; attempt < 2; attempt++ {
		current, err := e.load(ctx, id)
		if err != nil {
			return nil, err
		}

		if !e.policy.Allows(role, current, action) {
			if conflicted {
				// The action was legal at first read and a concurrent
				// transition invalidated it: a lost race, not a caller error.
				return nil, &ConflictError{ID: id}
			}
			return nil, &IllegalTransitionError{
				ID:     id,
				Status: current.Status,
				Action: action,
				Legal:  e.policy.LegalActions(role, current),
			}
		}

		next := current.Clone()
		if err := e.policy.Apply(next, role, action, e.now()); err != nil {
			return nil, &IllegalTransitionError{
				ID:     id,
				Status: current.Status,
				Action: action,
				Legal:  e.policy.LegalActions(role, current),
			}
		}
		next.Version = current.Version + 1

		err = e.repo.CompareAndSwap(ctx, next, current.Version)
		switch {
		case err == nil:
			e.logger.Info("Purchase transitioned",
				"id", id, "action", action, "role", role,
				"from", current.Status, "to", next.Status)
			return next, nil
		case errors.Is(err, port.ErrVersionConflict):
			conflicted = true
			continue
		case errors.Is(err, port.ErrNotFound):
			return nil, &NotFoundError{ID: id}
		default:
			e.logger.Error("Failed to write transition", "id", id, "error", err)
			return nil, &DependencyError{Op: "write transition", Err: err}
		}
	}

	return nil, &ConflictError{ID: id}
}

// Correct applies administrative field edits outside the approval state
// machine. Edits go through the same compare-and-swap write as transitions
// so a correction can never clobber a concurrent approval.
func (e *lifecycleEngine) Correct(ctx context.Context, id string, role entity.Role, edits FieldEdits) (*entity.Purchase, error) {
	if !role.IsApprover() {
		return nil, &entity.ValidationError{Field: "role", Reason: "must be director or finance"}
	}

	for attempt := 0; attempt < 2; attempt++ {
		current, err := e.load(ctx, id)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		edits.apply(next)
		if err := next.Validate(); err != nil {
			return nil, err
		}
		next.Version = current.Version + 1

		err = e.repo.CompareAndSwap(ctx, next, current.Version)
		switch {
		case err == nil:
			e.logger.Info("Purchase corrected", "id", id, "role", role)
			return next, nil
		case errors.Is(err, port.ErrVersionConflict):
			continue
		case errors.Is(err, port.ErrNotFound):
			return nil, &NotFoundError{ID: id}
		default:
			e.logger.Error("Failed to write correction", "id", id, "error", err)
			return nil, &DependencyError{Op: "write correction", Err: err}
		}
	}

	return nil, &ConflictError{ID: id}
}

// Remove deletes a purchase. It is an administrative override outside the
// state machine: any approver role may remove any record regardless of
// status.
func (e *lifecycleEngine) Remove(ctx context.Context, id string, role entity.Role) error {
	if !role.IsApprover() {
		return &entity.ValidationError{Field: "role", Reason: "must be director or finance"}
	}

	err := e.repo.Delete(ctx, id)
	if errors.Is(err, port.ErrNotFound) {
		return &NotFoundError{ID: id}
	}
	if err != nil {
		e.logger.Error("Failed to delete purchase", "id", id, "error", err)
		return &DependencyError{Op: "delete purchase", Err: err}
	}

	e.logger.Info("Purchase removed", "id", id, "role", role)
	return nil
}

// Get retrieves a purchase by id
func (e *lifecycleEngine) Get(ctx context.Context, id string) (*entity.Purchase, error) {
	return e.load(ctx, id)
}

// ListByRecency retrieves purchases newest first
func (e *lifecycleEngine) ListByRecency(ctx context.Context, limit, offset int) ([]*entity.Purchase, error) {
	purchases, err := e.repo.ListByRecency(ctx, limit, offset)
	if err != nil {
		// idempotent read, retry once
		purchases, err = e.repo.ListByRecency(ctx, limit, offset)
	}
	if err != nil {
		e.logger.Error("Failed to list purchases", "error", err)
		return nil, &DependencyError{Op: "list purchases", Err: err}
	}
	return purchases, nil
}

// load reads the current record, retrying the idempotent read once on
// storage failure
func (e *lifecycleEngine) load(ctx context.Context, id string) (*entity.Purchase, error) {
	p, err := e.repo.GetByID(ctx, id)
	if err != nil && !errors.Is(err, port.ErrNotFound) {
		p, err = e.repo.GetByID(ctx, id)
	}
	if errors.Is(err, port.ErrNotFound) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		e.logger.Error("Failed to load purchase", "id", id, "error", err)
		return nil, &DependencyError{Op: "load purchase", Err: err}
	}
	return p, nil
}
