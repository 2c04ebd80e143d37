package ipc

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kadirpekel/ccswarmd/pkg/autoaccept"
	"github.com/kadirpekel/ccswarmd/pkg/hooks"
	"github.com/kadirpekel/ccswarmd/pkg/session"
	"github.com/kadirpekel/ccswarmd/pkg/sessionmanager"
)

// Handler dispatches inbound envelopes to session-manager operations.
type Handler struct {
	manager *sessionmanager.Manager
	gate    *autoaccept.Gate
	hooks   *hooks.Registry
}

// NewHandler constructs a Handler bound to manager with no auto-accept
// gating (every ExecuteCommand is allowed through unchecked).
func NewHandler(manager *sessionmanager.Manager) *Handler {
	return &Handler{manager: manager}
}

// NewGatedHandler constructs a Handler that screens every
// ExecuteCommand payload through gate before writing it to the
// session's PTY input.
func NewGatedHandler(manager *sessionmanager.Manager, gate *autoaccept.Gate) *Handler {
	return &Handler{manager: manager, gate: gate}
}

// WithHooks attaches a hook registry that wraps every ExecuteCommand as
// a "shell" tool use, running PreToolUse/PostToolUse around the PTY
// write once the gate check has passed. Returns h for chaining off
// either constructor.
func (h *Handler) WithHooks(registry *hooks.Registry) *Handler {
	h.hooks = registry
	return h
}

// Dispatch processes one parsed request envelope and returns the
// Response or Error envelope to write back.
func (h *Handler) Dispatch(ctx context.Context, req Message) Message {
	switch req.Type {
	case MsgCreateSession:
		return h.createSession(ctx, req)
	case MsgExecuteCommand:
		return h.executeCommand(ctx, req)
	case MsgGetOutput:
		return h.getOutput(req)
	case MsgGetStatus:
		return h.getStatus(req)
	case MsgListSessions:
		return h.listSessions(req)
	case MsgDeleteSession:
		return h.deleteSession(req)
	default:
		return unsupportedTypeError(req)
	}
}

type createSessionPayload struct {
	EnableAIFeatures bool   `json:"enable_ai_features"`
	ShellCommand     string `json:"shell_command"`
}

func (h *Handler) createSession(ctx context.Context, req Message) Message {
	var p createSessionPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return errorTo(req, "bad CreateSession payload: "+err.Error())
	}

	cfg := session.Config{AIFeatures: p.EnableAIFeatures}
	if p.ShellCommand != "" {
		cfg.ShellCommand = p.ShellCommand
	}

	sess, err := h.manager.CreateSession(ctx, cfg)
	if err != nil {
		return errorTo(req, err.Error())
	}
	return responseTo(req, map[string]any{
		"success":    true,
		"session_id": sess.ID(),
	})
}

type sessionRefPayload struct {
	Session string `json:"session"`
}

func (h *Handler) executeCommand(ctx context.Context, req Message) Message {
	var p struct {
		Session string `json:"session"`
		Command string `json:"command"`
	}
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return errorTo(req, "bad ExecuteCommand payload: "+err.Error())
	}
	sess, ok := h.manager.Get(p.Session)
	if !ok {
		return errorTo(req, "Session not found")
	}

	if h.gate != nil {
		if msg, denied := h.checkGate(ctx, req, p.Command); denied {
			return msg
		}
	}

	hc := hooks.Context{AgentID: p.Session}
	if h.hooks != nil {
		toolInput := hooks.ToolUseInput{ToolName: "shell", Arguments: map[string]any{"command": p.Command}}
		if pre := h.hooks.PreToolUse(ctx, toolInput, hc); pre.Denied() {
			return errorTo(req, "command denied by hook: "+pre.Reason)
		}
	}

	start := time.Now()
	err := sess.SendInput([]byte(p.Command + "\n"))
	if h.hooks != nil {
		h.hooks.PostToolUse(ctx, hooks.ToolUseInput{
			ToolName:   "shell",
			Arguments:  map[string]any{"command": p.Command},
			Success:    err == nil,
			DurationMS: time.Since(start).Milliseconds(),
		}, hc)
	}
	if err != nil {
		return errorTo(req, err.Error())
	}
	return responseTo(req, map[string]any{"success": true})
}

// checkGate validates the proposed Bash action against the gate's
// schema and policy before the command ever reaches a session's PTY.
func (h *Handler) checkGate(ctx context.Context, req Message, command string) (Message, bool) {
	action := autoaccept.Action{Kind: autoaccept.ActionBash, Command: command}
	raw, err := json.Marshal(action)
	if err != nil {
		return errorTo(req, "marshal action for validation: "+err.Error()), true
	}
	if err := autoaccept.ValidateActionPayload(raw); err != nil {
		return errorTo(req, "action payload invalid: "+err.Error()), true
	}

	decision, err := h.gate.Evaluate(ctx, action)
	if err != nil {
		return errorTo(req, "gate evaluation failed: "+err.Error()), true
	}
	if !decision.Continue {
		return errorTo(req, "command denied by auto-accept gate: "+decision.Reason), true
	}
	return Message{}, false
}

func (h *Handler) getOutput(req Message) Message {
	var p struct {
		Session string `json:"session"`
		LastN   int    `json:"last_n"`
	}
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return errorTo(req, "bad GetOutput payload: "+err.Error())
	}
	sess, ok := h.manager.Get(p.Session)
	if !ok {
		return errorTo(req, "Session not found")
	}
	out, err := sess.ReadOutput()
	if err != nil {
		return errorTo(req, err.Error())
	}
	lastN := p.LastN
	if lastN <= 0 {
		lastN = 100
	}
	lines := lastNLines(string(out), lastN)
	return responseTo(req, map[string]any{"output": lines})
}

func (h *Handler) getStatus(req Message) Message {
	var p sessionRefPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return errorTo(req, "bad GetStatus payload: "+err.Error())
	}
	sess, ok := h.manager.Get(p.Session)
	if !ok {
		return errorTo(req, "Session not found")
	}
	return responseTo(req, sess.Status())
}

func (h *Handler) listSessions(req Message) Message {
	return responseTo(req, map[string]any{"sessions": h.manager.List()})
}

func (h *Handler) deleteSession(req Message) Message {
	var p sessionRefPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return errorTo(req, "bad DeleteSession payload: "+err.Error())
	}
	if err := h.manager.Remove(p.Session); err != nil {
		return errorTo(req, err.Error())
	}
	return responseTo(req, map[string]any{"success": true})
}

func lastNLines(s string, n int) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
