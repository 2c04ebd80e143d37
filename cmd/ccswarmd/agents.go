package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kadirpekel/ccswarmd/pkg/hooks"
	"github.com/kadirpekel/ccswarmd/pkg/registry"
	"github.com/kadirpekel/ccswarmd/pkg/session"
	"github.com/kadirpekel/ccswarmd/pkg/sessionmanager"
	"github.com/kadirpekel/ccswarmd/pkg/task"
)

// agentSessions maps a named agent (as selected by delegation.Router) to
// the long-lived PTY session that carries its work, creating one on
// first use. A single agent name always lands on the same session, so
// state (working directory, shell history) persists across tasks. The
// name -> session id mapping itself is a plain registry.BaseRegistry,
// since agent names never need the stop-before-drop lifecycle hook that
// sessionmanager.Manager adds on top of the same pattern.
type agentSessions struct {
	manager *sessionmanager.Manager
	byAgent *registry.BaseRegistry[string]
}

func newAgentSessions(manager *sessionmanager.Manager) *agentSessions {
	return &agentSessions{manager: manager, byAgent: registry.NewBaseRegistry[string]()}
}

func (a *agentSessions) sessionFor(ctx context.Context, agent string) (*session.Session, error) {
	if id, ok := a.byAgent.Get(agent); ok {
		if sess, ok := a.manager.Get(id); ok {
			return sess, nil
		}
		_ = a.byAgent.Remove(agent)
	}

	sess, err := a.manager.CreateSession(ctx, session.Config{})
	if err != nil {
		return nil, fmt.Errorf("create session for agent %s: %w", agent, err)
	}
	if err := a.byAgent.Register(agent, sess.ID()); err != nil {
		// Lost a race with another goroutine creating the same agent's
		// session; fall back to whichever session actually won.
		if id, ok := a.byAgent.Get(agent); ok {
			if existing, ok := a.manager.Get(id); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register session for agent %s: %w", agent, err)
	}
	return sess, nil
}

// runTaskOnAgent runs a command in the agent's session, wrapping the
// attempt in the execution hook chain. It returns the session's output
// buffer at the moment the command was issued — ccswarmd has no notion
// of shell-command completion, so the caller treats this as a progress
// snapshot rather than a final result.
func runTaskOnAgent(sessions *agentSessions, hookRegistry *hooks.Registry, log *slog.Logger) func(ctx context.Context, agent string, t *task.Task) (string, error) {
	return func(ctx context.Context, agent string, t *task.Task) (string, error) {
		hc := hooks.Context{AgentID: agent}
		pre := hookRegistry.PreExecution(ctx, hooks.PreExecutionInput{
			TaskDescription: t.Description,
			TaskType:        string(t.Priority),
			Priority:        string(t.Priority),
		}, hc)
		if pre.Denied() {
			return "", fmt.Errorf("task denied by hook: %s", pre.Reason)
		}

		start := time.Now()
		sess, err := sessions.sessionFor(ctx, agent)
		if err != nil {
			hookRegistry.OnError(ctx, hooks.ErrorInput{ErrorType: "session", ErrorMessage: err.Error()}, hc)
			return "", err
		}

		if err := sess.SendInput([]byte(t.Description + "\n")); err != nil {
			hookRegistry.OnError(ctx, hooks.ErrorInput{ErrorType: "pty", ErrorMessage: err.Error(), Recoverable: true}, hc)
			return "", err
		}

		out, err := sess.ReadOutput()
		success := err == nil
		hookRegistry.PostExecution(ctx, hooks.PostExecutionInput{
			TaskDescription: t.Description,
			Success:         success,
			DurationMS:      time.Since(start).Milliseconds(),
		}, hc)
		if err != nil {
			return "", err
		}
		log.Debug("ran task on agent", "agent", agent, "task", t.ID)
		return string(out), nil
	}
}
