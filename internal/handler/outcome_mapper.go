package handler

import (
	"time"

	"cadbridge/internal/dto"
	"cadbridge/internal/service"
)

func toOutcomeResponse(o service.ExportOutcome) dto.ExportOutcomeResponse {
	resp := dto.ExportOutcomeResponse{
		IncidentID:     o.IncidentID,
		ExportedAt:     formatTime(o.ExportedAt),
		DeliveryStatus: string(o.DeliveryStatus()),
		DeliveryError:  o.DeliveryError,
		SheetError:     o.SheetError,
	}
	if o.Delivery != nil {
		resp.Path = o.Delivery.Path
		resp.Attempts = o.Delivery.Attempts
		resp.ErrorCode = o.Delivery.ErrorCode
	}
	if o.Sheet != nil {
		resp.SheetAction = string(o.Sheet.Action)
		resp.SheetRow = o.Sheet.Row
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
