package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAttachmentsMigrate moves legacy project attachments into
	// project_documents.
	TaskAttachmentsMigrate = "attachments:migrate"
	// TaskContentCensus counts the rows of every collection.
	TaskContentCensus = "content:census"
	// TaskContentRefresh reloads every store cache.
	TaskContentRefresh = "content:refresh"
	// TaskAttachmentsVerify probes every project document link.
	TaskAttachmentsVerify = "attachments:verify"
)

// MigratePayload describes an attachment migration request.
type MigratePayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

// CensusPayload limits a census to some collections; empty means all.
type CensusPayload struct {
	Resources []string `json:"resources,omitempty"`
}

// NewMigrateTask constructs an attachment migration task.
func NewMigrateTask(payload MigratePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAttachmentsMigrate, data), nil
}

// NewCensusTask constructs a census task.
func NewCensusTask(payload CensusPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskContentCensus, data), nil
}

// NewRefreshTask constructs a cache refresh task.
func NewRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskContentRefresh, nil)
}

// NewVerifyTask constructs an attachment link check task.
func NewVerifyTask() *asynq.Task {
	return asynq.NewTask(TaskAttachmentsVerify, nil)
}
