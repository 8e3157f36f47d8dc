package types

import "github.com/google/uuid"

// EntityKind names an entity in dispatcher requests and change events.
type EntityKind string

const (
	EntityProject     EntityKind = "project"
	EntityDeviceType  EntityKind = "deviceType"
	EntityDevice      EntityKind = "device"
	EntityDevicePort  EntityKind = "devicePort"
	EntityPortSetting EntityKind = "portSetting"
	EntityProtocol    EntityKind = "protocol"
	EntitySlaveDevice EntityKind = "slaveDevice"
	EntityIO          EntityKind = "io"
	EntityMqtt        EntityKind = "mqtt"
)

type ChangeAction string

const (
	ChangeCreated ChangeAction = "created"
	ChangeUpdated ChangeAction = "updated"
	ChangeDeleted ChangeAction = "deleted"
)

// ChangeEvent is published after every committed mutation.
type ChangeEvent struct {
	Entity   EntityKind   `json:"entity"`
	Action   ChangeAction `json:"action"`
	ID       uuid.UUID    `json:"id"`
	ParentID uuid.UUID    `json:"parent_id"`
}
