// Package scheduler provides the asynq-backed background processing: the
// lead routing queue and the periodic maintenance sweep.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadRoute = "leads.route"

const TaskMaintenanceSweep = "leads.sweep"

type LeadRoutePayload struct {
	LeadID      string `json:"leadId"`
	WorkspaceID string `json:"workspaceId"`
}

func NewLeadRouteTask(payload LeadRoutePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadRoute, data), nil
}

func ParseLeadRoutePayload(task *asynq.Task) (LeadRoutePayload, error) {
	var payload LeadRoutePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadRoutePayload{}, err
	}
	return payload, nil
}

func NewMaintenanceSweepTask() *asynq.Task {
	return asynq.NewTask(TaskMaintenanceSweep, nil)
}
