// Package model holds the gorm schema of the lifecycle journal.
package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every table of the journal schema.
var DatabaseModels = []interface{}{
	&JournalInfo{},
	&LifecycleEvent{},
}

// JournalInfo identifies the server writing into a shared database.
type JournalInfo struct {
	gorm.Model
	Server    string `json:"server" gorm:"size:127"`
	Extension string `json:"extension" gorm:"size:32"`
}

func (*JournalInfo) TableName() string {
	return "journal_infos"
}

// LifecycleEvent is one state transition of a primed explosive.
// Rejected activations have an empty TrackingID.
type LifecycleEvent struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time      `json:"time" gorm:"type:timestamptz;index:idx_lifecycle_time"`
	TrackingID string         `json:"trackingId" gorm:"size:26;index:idx_lifecycle_tracking_id"`
	Kind       string         `json:"kind" gorm:"size:16;index:idx_lifecycle_kind"`
	TypeID     string         `json:"typeId" gorm:"size:64"`
	World      string         `json:"world" gorm:"size:64"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Z          float64        `json:"z"`
	Igniter    string         `json:"igniter" gorm:"size:64"`
	Reason     string         `json:"reason" gorm:"size:64"`
	Detail     datatypes.JSON `json:"detail" gorm:"type:jsonb;default:'{}'"`
}

func (*LifecycleEvent) TableName() string {
	return "lifecycle_events"
}
