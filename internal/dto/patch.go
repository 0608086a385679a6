package dto

import (
	"encoding/json"
	"fmt"

	"github.com/fleetline/fleet-api/internal/audit"
)

// PatchRequest is a partial field payload carrying its mandatory comment alongside the
// fields, e.g. {"next_service_mileage": 55000, "comment": "Serviced at 50k"}.
type PatchRequest struct {
	Comment string
	Fields  audit.RawPatch
}

// UnmarshalJSON splits the comment from the field payload.
func (p *PatchRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if msg, ok := raw["comment"]; ok {
		if err := json.Unmarshal(msg, &p.Comment); err != nil {
			return fmt.Errorf("comment must be a string")
		}
		delete(raw, "comment")
	}
	p.Fields = audit.RawPatch(raw)
	return nil
}

// CommentRequest carries the comment of a status transition.
type CommentRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

// PageQuery is shared pagination input.
type PageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}
