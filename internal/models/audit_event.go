package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditEvent is an append-only record of a core mutation (allocation,
// approval decision, delivery log, status transition). EventData carries the
// operation payload as JSON.
type AuditEvent struct {
	EventID    uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	EntityType string         `gorm:"column:entity_type;not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   uuid.UUID      `gorm:"column:entity_id;type:uuid;not null;index:idx_audit_entity" json:"entity_id"`
	EventType  string         `gorm:"column:event_type;not null" json:"event_type"`
	ActorOrgID *uuid.UUID     `gorm:"column:actor_org_id;type:uuid" json:"actor_org_id"`
	EventData  datatypes.JSON `gorm:"column:event_data;type:json" json:"event_data"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}

// BeforeCreate sets event_id if not already set.
func (e *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
