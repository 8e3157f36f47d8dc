// Package topology owns the device configuration graph: it provisions devices
// from their type templates, enforces the cross-entity rules before every
// write and publishes a change event after every committed mutation.
package topology

import (
	"context"
	"errors"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/devices"
	"github.com/KevinKickass/OpenMachineConfig/internal/storage"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher receives committed mutations.
type EventPublisher interface {
	Publish(event types.ChangeEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(types.ChangeEvent) {}

type Service struct {
	store    storage.Store
	composer *devices.Composer
	events   EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store storage.Store, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		composer: devices.NewComposer(logger),
		events:   nopPublisher{},
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetPublisher routes change events to p. A nil p disables publishing.
func (s *Service) SetPublisher(p EventPublisher) {
	if p == nil {
		p = nopPublisher{}
	}
	s.events = p
}

func (s *Service) publish(entity types.EntityKind, action types.ChangeAction, id, parentID uuid.UUID) {
	s.events.Publish(types.ChangeEvent{Entity: entity, Action: action, ID: id, ParentID: parentID})
}

// storeErr classifies a store error. NotFound and Conflict pass through;
// anything else is logged and replaced by a StoreError.
func (s *Service) storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrConflict) {
		return err
	}
	s.logger.Error("Store operation failed", zap.String("op", op), zap.Error(err))
	return &types.StoreError{Op: op}
}

type check func(ctx context.Context) error

// runChecks runs the checks in order and stops at the first failure.
func (s *Service) runChecks(ctx context.Context, op string, checks ...check) error {
	for _, c := range checks {
		if err := c(ctx); err != nil {
			if types.IsValidation(err) {
				s.logger.Debug("Validation rejected", zap.String("op", op), zap.String("reason", err.Error()))
			}
			return err
		}
	}
	return nil
}
