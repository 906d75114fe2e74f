package domain

// TrainingStatus is the state reported by the training job backend.
type TrainingStatus string

const (
	TrainingQueued     TrainingStatus = "QUEUED"
	TrainingInProgress TrainingStatus = "IN_PROGRESS"
	TrainingCompleted  TrainingStatus = "COMPLETED"
	TrainingFailed     TrainingStatus = "FAILED"
)

// Training defaults applied when the operator leaves a field blank.
const (
	DefaultTrainingProvider = "bedrock"
	DefaultBaseModelID      = "anthropic.claude-3-5-sonnet-20240620-v1:0"
)

// TrainingJob is a model-customization job for a custom agent.
type TrainingJob struct {
	JobID            string         `json:"jobId"`
	AgentID          string         `json:"agentId"`
	Status           TrainingStatus `json:"status"`
	Provider         string         `json:"provider"`
	BaseModelID      string         `json:"baseModelId"`
	DomainAdaptation bool           `json:"domainAdaptation"`
	ModelEndpoint    string         `json:"modelEndpoint,omitempty"`
	ModelVersion     string         `json:"modelVersion,omitempty"`
	ArtifactURI      string         `json:"artifactUri,omitempty"`
	OutputLocation   string         `json:"outputLocation,omitempty"`
	TrainingDataURI  string         `json:"trainingDataUri,omitempty"`
	JobArn           string         `json:"jobArn,omitempty"`
	FailureReason    string         `json:"failureReason,omitempty"`
	CreatedAt        string         `json:"createdAt,omitempty"`
	UpdatedAt        string         `json:"updatedAt,omitempty"`
}

// IsTerminal reports whether the job will not change state again.
func (j TrainingJob) IsTerminal() bool {
	return j.Status == TrainingCompleted || j.Status == TrainingFailed
}

// IsActive reports whether the job is queued or running.
func (j TrainingJob) IsActive() bool {
	return j.Status == TrainingQueued || j.Status == TrainingInProgress
}

// TrainingRequest starts a job.
type TrainingRequest struct {
	BaseModelID      string `json:"baseModelId,omitempty"`
	Provider         string `json:"provider,omitempty"`
	DomainAdaptation bool   `json:"domainAdaptation"`
	Notes            string `json:"notes,omitempty"`
}

// WithDefaults fills provider and base model when blank.
func (r TrainingRequest) WithDefaults() TrainingRequest {
	if r.Provider == "" {
		r.Provider = DefaultTrainingProvider
	}
	if r.BaseModelID == "" {
		r.BaseModelID = DefaultBaseModelID
	}
	return r
}

// FeedbackExample is an input/output pair used as training data.
type FeedbackExample struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// SaveFeedbackResponse acknowledges stored feedback.
type SaveFeedbackResponse struct {
	Status string `json:"status"`
	S3Key  string `json:"s3Key"`
}
