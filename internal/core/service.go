// Package core implements the FFE workflow service: template authoring, room
// instantiation, visibility, logic expansion, status and notes tracking, and
// progress aggregation over a domain.PersistentStore.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/infra/persistence/memory"
	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/go-playground/validator/v10"
)

// Service exposes the transactional FFE operations.
type Service struct {
	store    domain.PersistentStore
	logger   Logger
	audit    AuditRecorder
	metrics  MetricsRecorder
	tracer   Tracer
	clock    Clock
	events   EventPublisher
	validate *validator.Validate
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the clock used for audit timestamps and events.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithEventPublisher sets the room event sink.
func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.events = publisher
		}
	}
}

type nowFuncProvider interface {
	NowFunc() func() time.Time
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:    store,
		logger:   noopLogger{},
		audit:    noopAuditRecorder{},
		metrics:  noopMetricsRecorder{},
		tracer:   noopTracer{},
		clock:    ClockFunc(func() time.Time { return time.Now().UTC() }),
		events:   noopEventPublisher{},
		validate: validator.New(),
	}
	if p, ok := store.(nowFuncProvider); ok {
		if fn := p.NowFunc(); fn != nil {
			svc.clock = ClockFunc(fn)
		}
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

type operationMeta struct {
	entity EntityType
	action Action
}

var operationMetadata = map[string]operationMeta{
	"create_template":    {EntityTemplate, ActionCreate},
	"add_section":        {EntitySection, ActionCreate},
	"add_item":           {EntityTemplateItem, ActionCreate},
	"update_item":        {EntityTemplateItem, ActionUpdate},
	"import_template":    {EntityTemplate, ActionCreate},
	"instantiate":        {EntityRoom, ActionCreate},
	"set_visibility":     {EntityRoomItem, ActionUpdate},
	"apply_logic_option": {EntityExpansion, ActionCreate},
	"clear_logic_option": {EntityExpansion, ActionUpdate},
	"set_status":         {EntityRoomItem, ActionUpdate},
	"set_notes":          {EntityRoomItem, ActionUpdate},
}

// run wraps an operation with tracing, metrics, audit, and logging. fn
// returns the id of the entity the operation acted on.
func (s *Service) run(ctx context.Context, operation string, fn func(ctx context.Context) (string, error)) error {
	ctx, span := s.tracer.Start(ctx, operation)
	started := time.Now()
	entityID, err := fn(ctx)
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	if err != nil {
		s.recordAuditError(ctx, operation, entityID, duration, err)
		if domain.KindOf(err) == domain.KindInternal {
			s.logger.Error("operation failed", "operation", operation, "entity_id", entityID, "error", err)
		} else {
			s.logger.Warn("operation rejected", "operation", operation, "entity_id", entityID, "kind", domain.KindOf(err), "error", err)
		}
		return err
	}
	s.recordAuditSuccess(ctx, operation, entityID, duration)
	s.logger.Debug("operation completed", "operation", operation, "entity_id", entityID, "duration", duration)
	return nil
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	s.recordAudit(ctx, operation, entityID, duration, nil)
}

func (s *Service) recordAuditError(ctx context.Context, operation, entityID string, duration time.Duration, err error) {
	s.recordAudit(ctx, operation, entityID, duration, err)
}

func (s *Service) recordAudit(ctx context.Context, operation, entityID string, duration time.Duration, err error) {
	meta, ok := operationMetadata[operation]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if actor, ok := domain.ActorFrom(ctx); ok {
		entry.ActorID = actor.ID
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// validateStruct runs the struct tags and converts failures to validation errors.
func (s *Service) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domain.NewValidationError("%s failed %s validation", fe.Namespace(), fe.Tag())
	}
	return domain.NewValidationError("%v", err)
}
