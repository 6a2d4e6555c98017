// Package service implements the lifecycle engine and the aggregation
// reporter on top of the repositories.
package service

import (
	"context"
	"fmt"
	"time"

	"recolecta/internal/cache"
	"recolecta/internal/models"
	"recolecta/internal/notifications"
	"recolecta/internal/observability"
	"recolecta/internal/repository"
	"recolecta/internal/rules"
	"recolecta/internal/units"

	"gorm.io/gorm"
)

// LifecycleService orchestrates every status transition of requests and
// pickups. All multi-row mutations run inside one database transaction;
// events are emitted only after a successful commit.
type LifecycleService struct {
	db           *gorm.DB
	ruleSet      *rules.RuleSet
	normalizer   *units.Normalizer
	requestRepo  repository.RequestRepository
	pickupRepo   repository.PickupRepository
	providerRepo repository.ProviderRepository
	notifier     *notifications.Notifier
	logger       Logger
}

// Logger is the subset of slog the services need.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NewLifecycleService wires the lifecycle engine.
func NewLifecycleService(
	db *gorm.DB,
	ruleSet *rules.RuleSet,
	normalizer *units.Normalizer,
	requestRepo repository.RequestRepository,
	pickupRepo repository.PickupRepository,
	providerRepo repository.ProviderRepository,
	notifier *notifications.Notifier,
	logger Logger,
) *LifecycleService {
	return &LifecycleService{
		db:           db,
		ruleSet:      ruleSet,
		normalizer:   normalizer,
		requestRepo:  requestRepo,
		pickupRepo:   pickupRepo,
		providerRepo: providerRepo,
		notifier:     notifier,
		logger:       logger,
	}
}

// CreateRequestInput carries a new collection request.
type CreateRequestInput struct {
	OwnerID         uint
	Username        string
	Categories      []string
	MeasureType     string
	EstimatedAmount float64
	Details         string
}

// UpdateRequestInput carries an owner edit of a pending request. Nil fields
// are left unchanged.
type UpdateRequestInput struct {
	OwnerID         uint
	RequestID       uint
	Categories      []string
	MeasureType     *string
	EstimatedAmount *float64
	Details         *string
}

// ScheduleRequestsInput groups pending requests into one pickup.
type ScheduleRequestsInput struct {
	RequestIDs    []uint
	ProviderID    uint
	ScheduledDate time.Time
	Note          string
	CreatedBy     string
}

// CollectedEntry is one per-category quantity recorded at completion.
type CollectedEntry struct {
	Category    string  `json:"category"`
	MeasureType string  `json:"measure_type"`
	RealAmount  float64 `json:"real_amount"`
}

// DocumentRef is an opaque reference to a completion document.
type DocumentRef struct {
	Kind string `json:"kind"`
	Ref  string `json:"ref"`
}

// CompletePickupInput finalizes a pickup with collected quantities and
// certificate references.
type CompletePickupInput struct {
	PickupID  uint
	Entries   []CollectedEntry
	Documents []DocumentRef
	Note      string
	Actor     string
}

// EditPickupInput updates pickup fields while it is still scheduled. Nil
// fields are left unchanged.
type EditPickupInput struct {
	PickupID      uint
	ProviderID    *uint
	ScheduledDate *time.Time
	Note          *string
	Actor         string
}

// pickupEventPayload is the entity snapshot carried by pickup events: the
// pickup (with provider and scheduled date) plus the ids of the requests
// linked to it.
type pickupEventPayload struct {
	Pickup     *models.Pickup `json:"pickup"`
	RequestIDs []uint         `json:"request_ids"`
}

func (s *LifecycleService) validateRequestFields(categories []string, measureType string, amount float64) error {
	for _, c := range categories {
		if !s.ruleSet.KnownCategory(c) {
			return models.NewConfigurationError(fmt.Sprintf("unknown category %q", c))
		}
	}
	if err := s.ruleSet.Validate(categories); err != nil {
		return err
	}
	if !s.normalizer.Known(measureType) {
		return models.NewConfigurationError(fmt.Sprintf("unknown measurement unit %q", measureType))
	}
	if amount <= 0 {
		return models.NewValidationError("estimated amount must be positive")
	}
	return nil
}

// CreateRequest validates the category set against the compatibility rules
// and persists a new pending request.
func (s *LifecycleService) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.Request, error) {
	if err := s.validateRequestFields(in.Categories, in.MeasureType, in.EstimatedAmount); err != nil {
		observability.RecordTransition("create_request", observability.OutcomeValidation)
		return nil, err
	}

	request := &models.Request{
		OwnerID:         in.OwnerID,
		Username:        in.Username,
		Categories:      in.Categories,
		MeasureType:     in.MeasureType,
		EstimatedAmount: in.EstimatedAmount,
		Details:         in.Details,
		Status:          models.RequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		observability.RecordTransition("create_request", observability.OutcomeError)
		return nil, err
	}

	observability.RecordTransition("create_request", observability.OutcomeOK)
	s.emit(ctx, notifications.NewEvent(notifications.EventRequestCreated, "request", request.ID, in.Username).
		WithPayload(request))
	return request, nil
}

// UpdateRequest applies an owner edit to a request that is still pending.
func (s *LifecycleService) UpdateRequest(ctx context.Context, in UpdateRequestInput) (*models.Request, error) {
	request, err := s.requestRepo.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if request.OwnerID != in.OwnerID {
		return nil, models.NewUnauthorizedError("You can only edit your own requests")
	}
	if request.Status != models.RequestStatusPending {
		observability.RecordTransition("update_request", observability.OutcomeConflict)
		return nil, models.NewConflictError("only pending requests can be edited")
	}

	categories := request.Categories
	if in.Categories != nil {
		categories = in.Categories
	}
	measureType := request.MeasureType
	if in.MeasureType != nil {
		measureType = *in.MeasureType
	}
	amount := request.EstimatedAmount
	if in.EstimatedAmount != nil {
		amount = *in.EstimatedAmount
	}
	if err := s.validateRequestFields(categories, measureType, amount); err != nil {
		observability.RecordTransition("update_request", observability.OutcomeValidation)
		return nil, err
	}

	fields := map[string]any{
		"categories":       categories,
		"measure_type":     measureType,
		"estimated_amount": amount,
	}
	if in.Details != nil {
		fields["details"] = *in.Details
	}
	if err := s.requestRepo.UpdatePendingFields(ctx, in.RequestID, fields); err != nil {
		observability.RecordTransition("update_request", outcomeFor(err))
		return nil, err
	}

	observability.RecordTransition("update_request", observability.OutcomeOK)
	updated, err := s.requestRepo.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, notifications.NewEvent(notifications.EventRequestUpdated, "request", in.RequestID, request.Username).
		WithPayload(updated))
	return updated, nil
}

// CancelRequest withdraws an owner's request. Allowed only while pending;
// cancellation is terminal and the row is kept as audit history.
func (s *LifecycleService) CancelRequest(ctx context.Context, ownerID, requestID uint) error {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.OwnerID != ownerID {
		return models.NewUnauthorizedError("You can only cancel your own requests")
	}
	if err := s.requestRepo.CancelPending(ctx, requestID); err != nil {
		observability.RecordTransition("cancel_request", outcomeFor(err))
		return err
	}

	observability.RecordTransition("cancel_request", observability.OutcomeOK)
	request.Status = models.RequestStatusCancelled
	s.emit(ctx, notifications.NewEvent(notifications.EventRequestCancelled, "request", requestID, request.Username).
		WithPayload(request))
	return nil
}

// ScheduleRequests creates one pickup for a batch of pending requests. The
// whole batch claims atomically: if any request was scheduled or withdrawn
// concurrently, nothing commits and the caller gets a conflict.
func (s *LifecycleService) ScheduleRequests(ctx context.Context, in ScheduleRequestsInput) (*models.Pickup, error) {
	if len(in.RequestIDs) == 0 {
		return nil, models.NewValidationError("at least one request required")
	}
	seen := make(map[uint]struct{}, len(in.RequestIDs))
	for _, id := range in.RequestIDs {
		if _, dup := seen[id]; dup {
			return nil, models.NewValidationError(fmt.Sprintf("request %d listed twice", id))
		}
		seen[id] = struct{}{}
	}
	if in.ScheduledDate.IsZero() {
		return nil, models.NewValidationError("scheduled date is required")
	}

	provider, err := s.providerRepo.GetByID(ctx, in.ProviderID)
	if err != nil {
		return nil, err
	}
	if !provider.Active {
		return nil, models.NewValidationError(fmt.Sprintf("provider %q is inactive", provider.Name))
	}

	var pickup *models.Pickup
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requestRepo := repository.NewRequestRepository(tx)
		pickupRepo := repository.NewPickupRepository(tx)

		requests, err := requestRepo.GetByIDs(ctx, in.RequestIDs)
		if err != nil {
			return err
		}
		if len(requests) != len(in.RequestIDs) {
			found := make(map[uint]struct{}, len(requests))
			for _, r := range requests {
				found[r.ID] = struct{}{}
			}
			for _, id := range in.RequestIDs {
				if _, ok := found[id]; !ok {
					return models.NewNotFoundError("request", id)
				}
			}
		}

		pickup = &models.Pickup{
			ProviderID:    in.ProviderID,
			ScheduledDate: in.ScheduledDate,
			Status:        models.PickupStatusScheduled,
			AdminNote:     in.Note,
			CreatedBy:     in.CreatedBy,
		}
		if err := pickupRepo.Create(ctx, pickup); err != nil {
			return err
		}
		if err := requestRepo.ClaimForPickup(ctx, in.RequestIDs, pickup.ID); err != nil {
			return err
		}
		return pickupRepo.LinkRequests(ctx, pickup.ID, in.RequestIDs)
	})
	if txErr != nil {
		observability.RecordTransition("schedule_requests", outcomeFor(txErr))
		return nil, txErr
	}

	observability.RecordTransition("schedule_requests", observability.OutcomeOK)
	full, err := s.pickupRepo.GetByID(ctx, pickup.ID)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, notifications.NewEvent(notifications.EventPickupScheduled, "pickup", pickup.ID, in.CreatedBy).
		WithPayload(pickupEventPayload{Pickup: full, RequestIDs: in.RequestIDs}))
	return full, nil
}

// CancelPickup calls off a scheduled pickup and reverts every request still
// linked to it back to pending, in one transaction. Association history rows
// are kept.
func (s *LifecycleService) CancelPickup(ctx context.Context, pickupID uint, note, actor string) error {
	var linked []uint
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requestRepo := repository.NewRequestRepository(tx)
		pickupRepo := repository.NewPickupRepository(tx)

		if err := pickupRepo.TransitionStatus(ctx, pickupID, models.PickupStatusScheduled, models.PickupStatusCancelled); err != nil {
			return err
		}
		var err error
		if linked, err = pickupRepo.LinkedRequestIDs(ctx, pickupID); err != nil {
			return err
		}
		if note != "" {
			if err := pickupRepo.UpdateFields(ctx, pickupID, map[string]any{"admin_note": note}); err != nil {
				return err
			}
		}
		reverted, err := requestRepo.ReleaseFromPickup(ctx, pickupID)
		if err != nil {
			return err
		}
		s.logger.Info("pickup cancelled", "pickup_id", pickupID, "requests_reverted", reverted, "actor", actor)
		return nil
	})
	if txErr != nil {
		observability.RecordTransition("cancel_pickup", outcomeFor(txErr))
		return txErr
	}

	observability.RecordTransition("cancel_pickup", observability.OutcomeOK)
	event := notifications.NewEvent(notifications.EventPickupCancelled, "pickup", pickupID, actor)
	if snapshot, err := s.pickupRepo.GetByID(ctx, pickupID); err == nil {
		event = event.WithPayload(pickupEventPayload{Pickup: snapshot, RequestIDs: linked})
	}
	s.emit(ctx, event)
	return nil
}

func (s *LifecycleService) validateCompletion(in CompletePickupInput) error {
	if len(in.Entries) == 0 {
		return models.NewValidationError("at least one collected entry required")
	}
	for i, e := range in.Entries {
		if e.RealAmount <= 0 {
			return models.NewValidationError(
				fmt.Sprintf("collected entry %d (%s): amount must be positive, got %v", i+1, e.Category, e.RealAmount))
		}
		if !s.ruleSet.KnownCategory(e.Category) {
			return models.NewConfigurationError(fmt.Sprintf("unknown category %q", e.Category))
		}
		if !s.normalizer.Known(e.MeasureType) {
			return models.NewConfigurationError(fmt.Sprintf("unknown measurement unit %q", e.MeasureType))
		}
	}

	var hasCollection, hasDisposal bool
	for _, d := range in.Documents {
		switch d.Kind {
		case models.DocumentKindCollectionCert:
			hasCollection = true
		case models.DocumentKindDisposalCert:
			hasDisposal = true
		}
		if d.Ref == "" {
			return models.NewValidationError(fmt.Sprintf("document of kind %q has an empty reference", d.Kind))
		}
	}
	if !hasCollection {
		return models.NewValidationError("collection certificate is required")
	}
	if !hasDisposal {
		return models.NewValidationError("disposal certificate is required")
	}
	return nil
}

// CompletePickup finalizes a scheduled pickup: collected-residue rows are
// written, certificate references attached, and the pickup plus every linked
// request move to completed, all in one transaction. Validation runs before
// any write so a rejected completion leaves everything untouched.
func (s *LifecycleService) CompletePickup(ctx context.Context, in CompletePickupInput) error {
	if err := s.validateCompletion(in); err != nil {
		observability.RecordTransition("complete_pickup", observability.OutcomeValidation)
		return err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requestRepo := repository.NewRequestRepository(tx)
		pickupRepo := repository.NewPickupRepository(tx)

		if err := pickupRepo.TransitionStatus(ctx, in.PickupID, models.PickupStatusScheduled, models.PickupStatusCompleted); err != nil {
			return err
		}

		residues := make([]models.CollectedResidue, 0, len(in.Entries))
		for _, e := range in.Entries {
			residues = append(residues, models.CollectedResidue{
				PickupID:    in.PickupID,
				Category:    e.Category,
				MeasureType: e.MeasureType,
				RealAmount:  e.RealAmount,
			})
		}
		if err := pickupRepo.AddResidues(ctx, residues); err != nil {
			return err
		}

		docs := make([]models.PickupDocument, 0, len(in.Documents))
		for _, d := range in.Documents {
			docs = append(docs, models.PickupDocument{
				PickupID:   in.PickupID,
				Kind:       d.Kind,
				Ref:        d.Ref,
				UploadedBy: in.Actor,
			})
		}
		if err := pickupRepo.AddDocuments(ctx, docs); err != nil {
			return err
		}

		if in.Note != "" {
			if err := pickupRepo.UpdateFields(ctx, in.PickupID, map[string]any{"admin_note": in.Note}); err != nil {
				return err
			}
		}

		completed, err := requestRepo.CompleteScheduled(ctx, in.PickupID)
		if err != nil {
			return err
		}
		s.logger.Info("pickup completed", "pickup_id", in.PickupID, "requests_completed", completed,
			"entries", len(in.Entries), "actor", in.Actor)
		return nil
	})
	if txErr != nil {
		observability.RecordTransition("complete_pickup", outcomeFor(txErr))
		return txErr
	}

	cache.InvalidateReports(ctx)
	observability.RecordTransition("complete_pickup", observability.OutcomeOK)
	event := notifications.NewEvent(notifications.EventPickupCompleted, "pickup", in.PickupID, in.Actor)
	if snapshot, err := s.pickupRepo.GetByID(ctx, in.PickupID); err == nil {
		linked, _ := s.pickupRepo.LinkedRequestIDs(ctx, in.PickupID)
		event = event.WithPayload(pickupEventPayload{Pickup: snapshot, RequestIDs: linked})
	}
	s.emit(ctx, event)
	return nil
}

// EditPickup updates date, provider or note while the pickup is still
// scheduled. No status change.
func (s *LifecycleService) EditPickup(ctx context.Context, in EditPickupInput) (*models.Pickup, error) {
	pickup, err := s.pickupRepo.GetByID(ctx, in.PickupID)
	if err != nil {
		return nil, err
	}
	if pickup.Status != models.PickupStatusScheduled {
		observability.RecordTransition("edit_pickup", observability.OutcomeConflict)
		return nil, models.NewConflictError("only scheduled pickups can be edited")
	}

	fields := map[string]any{}
	if in.ProviderID != nil {
		provider, err := s.providerRepo.GetByID(ctx, *in.ProviderID)
		if err != nil {
			return nil, err
		}
		if !provider.Active {
			return nil, models.NewValidationError(fmt.Sprintf("provider %q is inactive", provider.Name))
		}
		fields["provider_id"] = *in.ProviderID
	}
	if in.ScheduledDate != nil {
		if in.ScheduledDate.IsZero() {
			return nil, models.NewValidationError("scheduled date is required")
		}
		fields["scheduled_date"] = *in.ScheduledDate
	}
	if in.Note != nil {
		fields["admin_note"] = *in.Note
	}
	if len(fields) == 0 {
		return pickup, nil
	}

	// Guarded write: the status precondition above is only advisory, a
	// concurrent completion or cancellation between the read and this write
	// must still turn the edit into a conflict.
	if err := s.pickupRepo.UpdateScheduledFields(ctx, in.PickupID, fields); err != nil {
		observability.RecordTransition("edit_pickup", outcomeFor(err))
		return nil, err
	}

	observability.RecordTransition("edit_pickup", observability.OutcomeOK)
	updated, err := s.pickupRepo.GetByID(ctx, in.PickupID)
	if err != nil {
		return nil, err
	}
	linked, _ := s.pickupRepo.LinkedRequestIDs(ctx, in.PickupID)
	s.emit(ctx, notifications.NewEvent(notifications.EventPickupUpdated, "pickup", in.PickupID, in.Actor).
		WithPayload(pickupEventPayload{Pickup: updated, RequestIDs: linked}))
	return updated, nil
}

// SetAdminNote records an administrative note on a request.
func (s *LifecycleService) SetAdminNote(ctx context.Context, requestID uint, note string) error {
	return s.requestRepo.UpdateFields(ctx, requestID, map[string]any{"admin_note": note})
}

// emit publishes a lifecycle event after the owning transaction committed.
// Failures are logged and counted, never propagated: notification delivery
// must not affect committed state.
func (s *LifecycleService) emit(ctx context.Context, event notifications.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "kind", event.Kind, "entity", event.Entity,
			"entity_id", event.EntityID, "error", err)
	}
}

func outcomeFor(err error) string {
	switch {
	case models.HasCode(err, models.CodeConflict):
		return observability.OutcomeConflict
	case models.HasCode(err, models.CodeValidation):
		return observability.OutcomeValidation
	default:
		return observability.OutcomeError
	}
}
