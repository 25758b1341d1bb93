// Package convert maps journal entries between the domain and gorm types.
package convert

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/itnt/extension/internal/model"
	"github.com/itnt/extension/pkg/core"
)

// CoreToLifecycleEvent converts a core.LifecycleEvent to its gorm row.
func CoreToLifecycleEvent(e core.LifecycleEvent) model.LifecycleEvent {
	detail := datatypes.JSON("{}")
	if len(e.Detail) > 0 {
		if data, err := json.Marshal(e.Detail); err == nil {
			detail = data
		}
	}

	row := model.LifecycleEvent{
		Time:    e.Time,
		Kind:    string(e.Kind),
		TypeID:  e.TypeID,
		World:   e.Position.World,
		X:       e.Position.X,
		Y:       e.Position.Y,
		Z:       e.Position.Z,
		Igniter: e.Igniter,
		Reason:  e.Reason,
		Detail:  detail,
	}
	if !e.TrackingID.IsZero() {
		row.TrackingID = e.TrackingID.String()
	}
	return row
}

// LifecycleEventToCore converts a gorm row back. An unparseable tracking id
// yields the zero id.
func LifecycleEventToCore(e model.LifecycleEvent) core.LifecycleEvent {
	var detail map[string]any
	if len(e.Detail) > 0 {
		_ = json.Unmarshal(e.Detail, &detail)
	}
	if len(detail) == 0 {
		detail = nil
	}

	result := core.LifecycleEvent{
		TypeID:   e.TypeID,
		Kind:     core.LifecycleKind(e.Kind),
		Position: core.Position{World: e.World, X: e.X, Y: e.Y, Z: e.Z},
		Igniter:  e.Igniter,
		Reason:   e.Reason,
		Time:     e.Time,
		Detail:   detail,
	}
	if e.TrackingID != "" {
		if id, err := core.ParseTrackingID(e.TrackingID); err == nil {
			result.TrackingID = id
		}
	}
	return result
}
