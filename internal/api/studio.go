package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/agent-studio/internal/domain"
	"github.com/ashureev/agent-studio/internal/identity"
	"github.com/ashureev/agent-studio/internal/studio"
)

// StudioHandler serves the console endpoints.
type StudioHandler struct {
	*Handler
}

// NewStudioHandler creates a studio handler.
func NewStudioHandler(base *Handler) *StudioHandler {
	return &StudioHandler{Handler: base}
}

// RegisterRoutes registers studio routes.
func (h *StudioHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/studio", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Post("/select", h.Select)
		r.Post("/chat", h.Chat)
		r.Post("/code", h.RunCode)
		r.Post("/actions/{actionID}", h.TriggerAction)
		r.Get("/training", h.ListTraining)
		r.Post("/training", h.StartTraining)
		r.Post("/feedback", h.SubmitFeedback)
		r.Delete("/thread", h.ResetThread)
		r.Get("/threads", h.ListThreads)
	})
}

// GetState returns the current studio snapshot.
func (h *StudioHandler) GetState(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.studio.Snapshot())
}

type selectRequest struct {
	AccountID     string         `json:"accountId"`
	AgentType     string         `json:"agentType"`
	CustomAgentID string         `json:"customAgentId"`
	Backend       domain.Backend `json:"backend"`
}

// Select changes the account, agent type, custom agent or backend. Fields
// left blank are unchanged.
func (h *StudioHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx := r.Context()

	if req.Backend != "" {
		if err := h.studio.SelectBackend(req.Backend); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	if req.AccountID != "" {
		if err := h.studio.SelectAccount(ctx, req.AccountID); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	if req.AgentType != "" {
		t, err := domain.ParseAgentType(req.AgentType)
		if err != nil {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.studio.SelectAgentType(t); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	if req.CustomAgentID != "" {
		if err := h.studio.SelectCustomAgent(ctx, req.CustomAgentID); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	h.logger.Info("studio selection changed",
		"operator_id", identity.OperatorIDFromContext(ctx),
		"session_id", identity.SessionIDFromContext(ctx),
		"thread_key", h.studio.ActiveKey())
	JSON(w, http.StatusOK, h.studio.Snapshot())
}

type chatRequest struct {
	Message string   `json:"message"`
	Tools   []string `json:"tools"`
}

type chatResponse struct {
	ThreadKey string             `json:"threadKey"`
	Result    *domain.ChatResult `json:"result"`
}

// Chat sends one message to the active agent.
func (h *StudioHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := h.studio.SendChat(r.Context(), req.Message, studio.ChatOptions{Tools: req.Tools})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, chatResponse{ThreadKey: reply.ThreadKey, Result: reply.ChatResult})
}

type codeRequest struct {
	studio.CodeRequest
	Confirm bool `json:"confirm"`
}

// RunCode executes a sandbox snippet. The caller confirms by sending
// "confirm": true.
func (h *StudioHandler) RunCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.studio.RunCode(r.Context(), req.CodeRequest, func(string) bool { return req.Confirm })
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

type actionRequest struct {
	Mode string `json:"mode"`
}

// TriggerAction approves a proposed action in PR or DIRECT mode.
func (h *StudioHandler) TriggerAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, err := domain.ParseActionMode(req.Mode)
	if err != nil {
		Error(w, http.StatusBadRequest, studio.ErrInvalidActionMode.Error())
		return
	}
	out, err := h.studio.TriggerAction(r.Context(), chi.URLParam(r, "actionID"), mode)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, out)
}

// ListTraining refreshes and returns the active custom agent's jobs.
func (h *StudioHandler) ListTraining(w http.ResponseWriter, r *http.Request) {
	if err := h.studio.RefreshTrainingJobs(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"jobs": h.studio.TrainingJobs()})
}

// StartTraining launches a training job for the active custom agent.
func (h *StudioHandler) StartTraining(w http.ResponseWriter, r *http.Request) {
	var req domain.TrainingRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := h.studio.StartTraining(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, map[string]any{"job": job})
}

// SubmitFeedback stores an input/output training example.
func (h *StudioHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req domain.FeedbackExample
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := h.studio.SubmitFeedback(r.Context(), req.Input, req.Output)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// ResetThread clears the visible thread.
func (h *StudioHandler) ResetThread(w http.ResponseWriter, r *http.Request) {
	key := h.studio.ActiveKey()
	h.studio.ResetChat(r.Context())
	JSON(w, http.StatusOK, map[string]string{"cleared": key})
}

// ListThreads lists thread keys, or returns one thread when ?key= is set.
func (h *StudioHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	if key := strings.TrimSpace(r.URL.Query().Get("key")); key != "" {
		msgs := h.studio.ThreadFor(key)
		stored := make([]domain.StoredMessage, 0, len(msgs))
		for _, m := range msgs {
			stored = append(stored, m.ToStored())
		}
		JSON(w, http.StatusOK, map[string]any{"key": key, "messages": stored})
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"active": h.studio.ActiveKey(),
		"keys":   h.studio.ThreadKeys(),
	})
}
