package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/comigor/bertbot/internal/config"
	"github.com/comigor/bertbot/internal/conversation"
	"github.com/comigor/bertbot/internal/llm"
	"github.com/comigor/bertbot/internal/logger"
	"github.com/comigor/bertbot/pkg/tools"

	"github.com/qmuntal/stateless"
)

// FSM States
type FSMState stateless.State

var (
	StateReadyToCallModel FSMState = "ReadyToCallModel"
	StateExecutingTool    FSMState = "ExecutingTool"
	StateDone             FSMState = "Done"      // Terminal: final answer produced
	StateExhausted        FSMState = "Exhausted" // Terminal: step budget spent
	StateError            FSMState = "Error"     // Terminal: provider failure
)

// FSM Triggers
type FSMTrigger stateless.Trigger

var (
	TriggerProcessInput   FSMTrigger = "ProcessInput"
	TriggerModelFinal     FSMTrigger = "ModelFinal"
	TriggerModelWantsTool FSMTrigger = "ModelWantsTool"
	TriggerToolExecuted   FSMTrigger = "ToolExecuted"
	TriggerStepsExhausted FSMTrigger = "StepsExhausted"
	TriggerErrorOccurred  FSMTrigger = "ErrorOccurred"
)

const exhaustedMessage = "I could not complete the request within the allowed tool steps."

const defaultMaxToolSteps = 4

// Runtime drives the model/tool loop for one request at a time. The
// model is asked to answer in a small JSON protocol; tool calls are
// executed locally and their results fed back as system messages until
// the model produces a final answer or the step budget runs out.
type Runtime struct {
	client       llm.Client
	tools        *tools.Manager
	systemPrompt string
	maxToolSteps int
}

func New(client llm.Client, manager *tools.Manager, cfg config.ProviderConfig) *Runtime {
	steps := cfg.MaxToolSteps
	if steps <= 0 {
		steps = defaultMaxToolSteps
	}
	return &Runtime{
		client:       client,
		tools:        manager,
		systemPrompt: cfg.SystemPrompt,
		maxToolSteps: steps,
	}
}

// fsmContext carries the mutable loop state shared by the FSM actions.
type fsmContext struct {
	working      *conversation.Context
	step         int
	maxSteps     int
	lastRaw      string
	parsed       parsedResponse
	finalContent string
	lastError    error
}

// Run executes the agent loop for a single user input. prior holds the
// session history and may be nil; it is read but never mutated, the
// working context sent to the provider is rebuilt on every call.
func (r *Runtime) Run(ctx context.Context, input string, prior *conversation.Context) (string, error) {
	working := conversation.NewContext()
	if r.systemPrompt != "" {
		working.AddSystem(r.systemPrompt)
	}
	working.AddSystem(r.buildToolPrompt())
	if prior != nil {
		for _, m := range prior.Messages() {
			working.Add(m)
		}
	}
	working.AddUser(input)

	fc := &fsmContext{
		working:  working,
		maxSteps: r.maxToolSteps,
	}

	fsm := stateless.NewStateMachine(StateReadyToCallModel)

	// State: ReadyToCallModel
	// Action: call the provider with the working context and parse the reply.
	fsm.Configure(StateReadyToCallModel).
		PermitReentry(TriggerProcessInput). // lets the initial Fire invoke OnEntry
		OnEntry(func(ctx context.Context, args ...any) error {
			if fc.step >= fc.maxSteps {
				logger.L.Warn("Tool step budget exhausted", "maxToolSteps", fc.maxSteps)
				return fsm.FireCtx(ctx, TriggerStepsExhausted)
			}
			fc.step++
			logger.L.Debug("FSM: calling model", "step", fc.step)

			raw, err := r.client.Complete(ctx, fc.working.Messages())
			if err != nil {
				fc.lastError = fmt.Errorf("model completion: %w", err)
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			fc.lastRaw = raw
			fc.parsed = parseResponse(raw)

			if fc.parsed.isToolCall {
				return fsm.FireCtx(ctx, TriggerModelWantsTool)
			}
			fc.finalContent = fc.parsed.content
			return fsm.FireCtx(ctx, TriggerModelFinal)
		}).
		Permit(TriggerModelWantsTool, StateExecutingTool).
		Permit(TriggerModelFinal, StateDone).
		Permit(TriggerStepsExhausted, StateExhausted).
		Permit(TriggerErrorOccurred, StateError)

	// State: ExecutingTool
	// Action: run the requested tool and feed the result back into the
	// working context. Tool failures are reported to the model, not to
	// the caller.
	fsm.Configure(StateExecutingTool).
		OnEntry(func(ctx context.Context, args ...any) error {
			name := fc.parsed.tool
			logger.L.Debug("FSM: executing tool", "tool", name)

			var result string
			if !r.tools.Has(name) {
				result = "Tool not found: " + name
			} else if out, err := r.tools.Run(name, fc.parsed.input); err != nil {
				result = "Tool error: " + err.Error()
			} else {
				result = out
			}

			fc.working.AddAssistant(fc.lastRaw)
			fc.working.AddSystem(fmt.Sprintf("Tool result (%s): %s", name, result))
			return fsm.FireCtx(ctx, TriggerToolExecuted)
		}).
		Permit(TriggerToolExecuted, StateReadyToCallModel).
		Permit(TriggerErrorOccurred, StateError)

	fsm.Configure(StateExhausted).
		OnEntry(func(ctx context.Context, args ...any) error {
			fc.finalContent = exhaustedMessage
			return nil
		})

	if err := fsm.FireCtx(ctx, TriggerProcessInput); err != nil {
		logger.L.Warn("FSM fire error", "error", err)
	}

	if fc.lastError != nil {
		return "", fc.lastError
	}
	return fc.finalContent, nil
}

// Tools returns the runtime's tool manager.
func (r *Runtime) Tools() *tools.Manager {
	return r.tools
}

// buildToolPrompt synthesizes the protocol instructions and the tool
// catalog injected as a system message on every run.
func (r *Runtime) buildToolPrompt() string {
	var list strings.Builder
	for _, t := range r.tools.List() {
		if list.Len() > 0 {
			list.WriteByte('\n')
		}
		fmt.Fprintf(&list, "- %s: %s", t.Name(), t.Description())
	}
	catalog := list.String()
	if catalog == "" {
		catalog = "- (no tools available)"
	}

	return strings.Join([]string{
		"You can call tools when needed.",
		"When you want to call a tool, respond with JSON only:",
		`{"type":"tool_call","tool":"NAME","input":"STRING_OR_JSON"}`,
		"When you want to respond to the user, respond with JSON only:",
		`{"type":"final","content":"YOUR_RESPONSE"}`,
		"Tool input tips:",
		"- bash: input is a shell command string.",
		`- files: input is JSON with {"action":"read|write","path":"...","content":"..."}.`,
		`- http: input is JSON with {"url":"...","method":"GET|POST",...}.`,
		"Available tools:",
		catalog,
		"Do not include any extra keys or commentary outside the JSON object.",
	}, "\n")
}
