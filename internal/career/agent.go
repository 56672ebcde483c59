package career

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const (
	AgentName  = "resume analyzer"
	AgentModel = "gemini-2.5-pro"
)

// AgentAnalyzer asks a Gemini agent for the skill profile. When the agent
// keeps failing it answers with Fallback instead.
type AgentAnalyzer struct {
	runner   *runner.Runner
	sessions session.Service
	appName  string
	fallback Analyzer
	logger   *slog.Logger
}

func newAgent(ctx context.Context, apiKey string) (agent.Agent, error) {
	model, err := gemini.NewModel(ctx, AgentModel, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	a, err := llmagent.New(llmagent.Config{
		Name:        AgentName,
		Model:       model,
		Description: "Analyze Resume",
		Instruction: prompt(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return a, nil
}

// NewAgentAnalyzer builds the agent, its runner and an in-memory session
// service. A nil fallback means KeywordAnalyzer.
func NewAgentAnalyzer(ctx context.Context, apiKey string, fallback Analyzer, logger *slog.Logger) (*AgentAnalyzer, error) {
	if fallback == nil {
		fallback = KeywordAnalyzer{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	a, err := newAgent(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	sessions := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        a.Name(),
		Agent:          a,
		SessionService: sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	return &AgentAnalyzer{
		runner:   r,
		sessions: sessions,
		appName:  a.Name(),
		fallback: fallback,
		logger:   logger,
	}, nil
}

func (a *AgentAnalyzer) Analyze(ctx context.Context, resumeText string) (ResumeAnalysis, error) {
	out, err := a.run(ctx, resumeText)
	if err == nil {
		var res ResumeAnalysis
		if res, err = parseAnalysis(out); err == nil {
			return res, nil
		}
	}
	if ctx.Err() != nil {
		return ResumeAnalysis{}, ctx.Err()
	}
	a.logger.Warn("agent analysis failed, using fallback", "error", err)
	return a.fallback.Analyze(ctx, resumeText)
}

// run opens a throwaway session, streams the agent's answer and returns the
// final response text.
func (a *AgentAnalyzer) run(ctx context.Context, resumeText string) (string, error) {
	created, err := a.sessions.Create(ctx, &session.CreateRequest{
		AppName:   a.appName,
		UserID:    "ascend",
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	sess := created.Session
	defer func() {
		err := a.sessions.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   sess.AppName(),
			UserID:    sess.UserID(),
			SessionID: sess.ID(),
		})
		if err != nil {
			a.logger.Warn("failed to delete agent session", "session_id", sess.ID(), "error", err)
		}
	}()

	msg := fmt.Sprintf("Resume:\n%s", resumeText)

	return retry(ctx, 2, func() (string, error) {
		stream := a.runner.Run(ctx, sess.UserID(), sess.ID(), &genai.Content{
			Role: "user",
			Parts: []*genai.Part{
				{Text: msg},
			},
		}, agent.RunConfig{})

		var output string
		for event, err := range stream {
			if err != nil {
				return "", err
			}
			if event != nil && event.IsFinalResponse() && event.Content != nil && len(event.Content.Parts) > 0 {
				output = event.Content.Parts[0].Text
			}
		}
		if output == "" {
			return "", errEmptyResponse
		}
		return output, nil
	})
}
