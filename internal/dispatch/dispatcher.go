// Package dispatch serves generic {entity, action, params} requests over the
// topology service. Both the REST /query endpoint and the gRPC Query method
// route through it.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/KevinKickass/OpenMachineConfig/internal/topology"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Action string

const (
	ActionFindMany   Action = "findMany"
	ActionFindFirst  Action = "findFirst"
	ActionFindUnique Action = "findUnique"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
)

// Mutates reports whether the action writes.
func (a Action) Mutates() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}

type Request struct {
	Entity types.EntityKind `json:"entity"`
	Action Action           `json:"action"`
	Params json.RawMessage  `json:"params,omitempty"`
}

// Response carries either a result or an error, never both.
type Response struct {
	Result any              `json:"result,omitempty"`
	Error  *types.ErrorBody `json:"error,omitempty"`
}

type handler func(ctx context.Context, params json.RawMessage) (any, error)

type routeKey struct {
	entity types.EntityKind
	action Action
}

type Dispatcher struct {
	svc    *topology.Service
	routes map[routeKey]handler
	logger *zap.Logger
}

func NewDispatcher(svc *topology.Service, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		svc:    svc,
		routes: make(map[routeKey]handler),
		logger: logger,
	}
	d.registerRoutes()
	return d
}

// Dispatch runs req. Failures are reported in Response.Error with the same
// codes the REST API uses.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	result, err := d.Call(ctx, req)
	if err != nil {
		_, body := types.DescribeError(err)
		d.logger.Debug("Dispatch failed",
			zap.String("entity", string(req.Entity)),
			zap.String("action", string(req.Action)),
			zap.String("code", body.Code),
			zap.Error(err))
		return Response{Error: &body}
	}
	return Response{Result: result}
}

// Call runs req and returns the raw error.
func (d *Dispatcher) Call(ctx context.Context, req Request) (any, error) {
	h, ok := d.routes[routeKey{req.Entity, req.Action}]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", types.ErrUnsupported, req.Entity, req.Action)
	}
	return h(ctx, req.Params)
}

// Supported lists the served entity/action pairs.
func (d *Dispatcher) Supported() map[types.EntityKind][]Action {
	out := make(map[types.EntityKind][]Action)
	for _, e := range entities {
		for _, a := range actions {
			if _, ok := d.routes[routeKey{e, a}]; ok {
				out[e] = append(out[e], a)
			}
		}
	}
	return out
}

var (
	entities = []types.EntityKind{
		types.EntityProject, types.EntityDeviceType, types.EntityDevice, types.EntityDevicePort,
		types.EntityPortSetting, types.EntityProtocol, types.EntitySlaveDevice, types.EntityIO, types.EntityMqtt,
	}
	actions = []Action{ActionFindMany, ActionFindFirst, ActionFindUnique, ActionCreate, ActionUpdate, ActionDelete}
)

func (d *Dispatcher) on(entity types.EntityKind, action Action, h handler) {
	d.routes[routeKey{entity, action}] = h
}

// decode strictly unmarshals params into P. Empty params decode to the zero
// value.
func decode[P any](raw json.RawMessage) (P, error) {
	var p P
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return p, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("%w: invalid params: %v", types.ErrBadRequest, err)
	}
	return p, nil
}

// with adapts a typed function into a handler.
func with[P any, R any](fn func(ctx context.Context, p P) (R, error)) handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		p, err := decode[P](raw)
		if err != nil {
			return nil, err
		}
		return fn(ctx, p)
	}
}

type idParams struct {
	ID uuid.UUID `json:"id"`
}

func (p idParams) require() error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("%w: id is required", types.ErrBadRequest)
	}
	return nil
}

type parentParams struct {
	ParentID uuid.UUID `json:"parent_id"`
}

func (p parentParams) require() error {
	if p.ParentID == uuid.Nil {
		return fmt.Errorf("%w: parent_id is required", types.ErrBadRequest)
	}
	return nil
}

type updateParams[T any] struct {
	ID   uuid.UUID `json:"id"`
	Data T         `json:"data"`
}

type deleted struct {
	ID      uuid.UUID `json:"id"`
	Deleted bool      `json:"deleted"`
}

func get[R any](fn func(context.Context, uuid.UUID) (R, error)) handler {
	return with(func(ctx context.Context, p idParams) (R, error) {
		var zero R
		if err := p.require(); err != nil {
			return zero, err
		}
		return fn(ctx, p.ID)
	})
}

func list[R any](fn func(context.Context, uuid.UUID) (R, error)) handler {
	return with(func(ctx context.Context, p parentParams) (R, error) {
		var zero R
		if err := p.require(); err != nil {
			return zero, err
		}
		return fn(ctx, p.ParentID)
	})
}

func update[T any, R any](fn func(context.Context, uuid.UUID, T) (R, error)) handler {
	return with(func(ctx context.Context, p updateParams[T]) (R, error) {
		var zero R
		if p.ID == uuid.Nil {
			return zero, fmt.Errorf("%w: id is required", types.ErrBadRequest)
		}
		return fn(ctx, p.ID, p.Data)
	})
}

func remove(fn func(context.Context, uuid.UUID) error) handler {
	return with(func(ctx context.Context, p idParams) (*deleted, error) {
		if err := p.require(); err != nil {
			return nil, err
		}
		if err := fn(ctx, p.ID); err != nil {
			return nil, err
		}
		return &deleted{ID: p.ID, Deleted: true}, nil
	})
}
