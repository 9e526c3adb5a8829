package controller

import "github.com/memcomp/harness/internal/trajlogger"

// trajlogRequest is the wire shape POSTed to /harness/log_call by an
// external model proxy delivering one call record.
type trajlogRequest struct {
	Status           *string  `json:"status"`
	KeyHash          string   `json:"keyhash"`
	UserID           *string  `json:"user_id"`
	StartTime        float64  `json:"start_time"`
	EndTime          *float64 `json:"end_time"`
	CallType         *string  `json:"call_type"`
	Model            *string  `json:"model"`
	UsageObject      any      `json:"usage_object"`
	CostBreakdown    any      `json:"cost_breakdown"`
	ModelParameters  any      `json:"model_parameters"`
	Instructions     any      `json:"instructions"`
	Messages         any      `json:"messages"`
	ErrorInformation any      `json:"error_information"`
	Response         any      `json:"response"`
	ResponseHeaders  any      `json:"response_headers"`
}

func (r trajlogRequest) toRecord() trajlogger.Record {
	return trajlogger.Record{
		Status:           r.Status,
		KeyHash:          r.KeyHash,
		UserID:           r.UserID,
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		CallType:         r.CallType,
		Model:            r.Model,
		UsageObject:      r.UsageObject,
		CostBreakdown:    r.CostBreakdown,
		ModelParameters:  r.ModelParameters,
		Instructions:     r.Instructions,
		Messages:         r.Messages,
		ErrorInformation: r.ErrorInformation,
		Response:         r.Response,
		ResponseHeaders:  r.ResponseHeaders,
	}
}
