package studio

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ashureev/agent-studio/internal/domain"
	"github.com/ashureev/agent-studio/internal/session"
)

// StartTraining launches a training job for the active custom agent and
// makes sure the poller is running.
func (s *Studio) StartTraining(ctx context.Context, req domain.TrainingRequest) (*domain.TrainingJob, error) {
	s.mu.Lock()
	agent := s.activeCustomAgentLocked()
	s.mu.Unlock()
	if agent == nil {
		return nil, ErrNoCustomAgent
	}
	if !s.setBusy(&s.busy.LaunchingTraining, true) {
		return nil, ErrBusy
	}
	defer s.setBusy(&s.busy.LaunchingTraining, false)

	req = req.WithDefaults()
	job, err := s.backend.StartTraining(ctx, agent.AgentID, req)
	if err != nil {
		return nil, err
	}
	if job.AgentID == "" {
		job.AgentID = agent.AgentID
	}

	s.mu.Lock()
	s.trainingJobs = upsertJob(s.trainingJobs, *job)
	s.seenJobStatus[job.JobID] = job.Status
	jobs := slices.Clone(s.trainingJobs)
	s.mu.Unlock()
	s.publish(Event{Type: EventTrainingJobs, Jobs: jobs})

	provider := job.Provider
	if provider == "" {
		provider = req.Provider
	}
	model := job.BaseModelID
	if model == "" {
		model = "default model"
	}
	s.appendNotice(ctx, session.ThreadKey(domain.AgentCustom, agent.AgentID),
		fmt.Sprintf("Training job %s launched on %s targeting %s (%s).", job.JobID, provider, model, job.Status), nil)

	s.logger.Info("training job launched",
		"agent_id", agent.AgentID,
		"job_id", job.JobID,
		"provider", provider,
		"status", job.Status)

	if err := s.RefreshTrainingJobs(ctx); err != nil {
		s.logger.Warn("failed to refresh training jobs", "agent_id", agent.AgentID, "error", err)
	}
	if _, err := s.LoadCustomAgents(ctx); err != nil {
		s.logger.Warn("failed to reload custom agents", "error", err)
	}
	s.poller.Ensure()
	return job, nil
}

func upsertJob(jobs []domain.TrainingJob, job domain.TrainingJob) []domain.TrainingJob {
	out := make([]domain.TrainingJob, 0, len(jobs)+1)
	out = append(out, job)
	for _, j := range jobs {
		if j.JobID != job.JobID {
			out = append(out, j)
		}
	}
	return out
}

// RefreshTrainingJobs reloads the active custom agent's jobs. A previously
// seen job that moves from a non-terminal state to COMPLETED appends one
// completion notice to its agent's thread.
func (s *Studio) RefreshTrainingJobs(ctx context.Context) error {
	s.mu.Lock()
	agent := s.activeCustomAgentLocked()
	if agent == nil {
		s.trainingJobs = nil
	}
	s.mu.Unlock()
	if agent == nil {
		return nil
	}

	jobs, err := s.backend.ListTrainingJobs(ctx, agent.AgentID)
	if err != nil {
		return err
	}
	s.applyTrainingJobs(ctx, agent.AgentID, jobs)
	if s.HasActiveTrainingJobs() {
		s.poller.Ensure()
	}
	return nil
}

func (s *Studio) applyTrainingJobs(ctx context.Context, agentID string, jobs []domain.TrainingJob) {
	var completed []domain.TrainingJob

	s.mu.Lock()
	for _, job := range jobs {
		prev, seen := s.seenJobStatus[job.JobID]
		if seen && prev != job.Status && job.Status == domain.TrainingCompleted &&
			prev != domain.TrainingCompleted && prev != domain.TrainingFailed {
			completed = append(completed, job)
		}
		s.seenJobStatus[job.JobID] = job.Status
	}
	current := s.agentType == domain.AgentCustom && s.customAgentID == agentID
	if current {
		s.trainingJobs = slices.Clone(jobs)
	}
	s.mu.Unlock()

	if current {
		s.publish(Event{Type: EventTrainingJobs, Jobs: slices.Clone(jobs)})
	}

	for _, job := range completed {
		owner := job.AgentID
		if owner == "" {
			owner = agentID
		}
		endpoint := job.ModelEndpoint
		if endpoint == "" {
			endpoint = "pending"
		}
		s.appendNotice(ctx, session.ThreadKey(domain.AgentCustom, owner),
			fmt.Sprintf("Training job %s completed. Endpoint %s is ready.", job.JobID, endpoint), nil)
		s.logger.Info("training job completed", "agent_id", owner, "job_id", job.JobID, "endpoint", endpoint)
	}
}

// TrainingJobs returns the tracked jobs of the active custom agent.
func (s *Studio) TrainingJobs() []domain.TrainingJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.trainingJobs)
}

// HasActiveTrainingJobs reports whether any tracked job is queued or running
// for the active custom agent.
func (s *Studio) HasActiveTrainingJobs() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeCustomAgentLocked() == nil {
		return false
	}
	for _, j := range s.trainingJobs {
		if j.IsActive() {
			return true
		}
	}
	return false
}

// pollOnce is one poller tick: jobs, then the roster for new model endpoints.
func (s *Studio) pollOnce(ctx context.Context) {
	if err := s.RefreshTrainingJobs(ctx); err != nil {
		s.logger.Warn("training poll failed", "error", err)
	}
	if _, err := s.LoadCustomAgents(ctx); err != nil {
		s.logger.Warn("training poll failed to reload agents", "error", err)
	}
}

// SubmitFeedback stores an input/output example for the active custom agent.
func (s *Studio) SubmitFeedback(ctx context.Context, input, output string) (*domain.SaveFeedbackResponse, error) {
	s.mu.Lock()
	agent := s.activeCustomAgentLocked()
	s.mu.Unlock()
	if agent == nil {
		return nil, ErrNoCustomAgent
	}
	input, output = strings.TrimSpace(input), strings.TrimSpace(output)
	if input == "" || output == "" {
		return nil, ErrFeedbackIncomplete
	}
	if !s.setBusy(&s.busy.SubmittingFeedback, true) {
		return nil, ErrBusy
	}
	defer s.setBusy(&s.busy.SubmittingFeedback, false)

	resp, err := s.backend.SubmitFeedback(ctx, agent.AgentID, domain.FeedbackExample{Input: input, Output: output})
	if err != nil {
		return nil, err
	}
	s.logger.Info("feedback captured", "agent_id", agent.AgentID, "s3_key", resp.S3Key)
	return resp, nil
}
