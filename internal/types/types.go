// Package types holds the data shapes shared across the gate pipeline,
// tracker, memory gateway, and session lifecycle. It has no behavior of
// its own beyond small constructors and predicates, and no dependency on
// any other internal package.
package types

import "time"

// Severity classifies how seriously a gate result should be treated.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Escalation is the decision level a gate (or the pipeline as a whole)
// resolves to. Only Ask and Block translate into a host-visible decision.
type Escalation string

const (
	EscalationAllow Escalation = "allow"
	EscalationWarn  Escalation = "warn"
	EscalationAsk   Escalation = "ask"
	EscalationBlock Escalation = "block"
)

// IsValid reports whether e is one of the four recognised escalation levels.
func (e Escalation) IsValid() bool {
	switch e {
	case EscalationAllow, EscalationWarn, EscalationAsk, EscalationBlock:
		return true
	}
	return false
}

// GateResult is the uniform return value of every gate and of the pipeline
// as a whole.
type GateResult struct {
	Blocked    bool           `json:"blocked"`
	Message    string         `json:"message,omitempty"`
	GateName   string         `json:"gate_name"`
	Severity   Severity       `json:"severity"`
	DurationMS float64        `json:"duration_ms,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Escalation Escalation     `json:"escalation"`
}

// NewAllow returns a passing result for the named gate.
func NewAllow(gateName string) *GateResult {
	return &GateResult{GateName: gateName, Severity: SeverityInfo, Escalation: EscalationAllow}
}

// NewWarn returns a warning result: the pipeline does not stop, but the
// message is surfaced to stderr.
func NewWarn(gateName, message string) *GateResult {
	return &GateResult{Message: message, GateName: gateName, Severity: SeverityWarn, Escalation: EscalationWarn}
}

// NewBlock returns a blocking result, short-circuiting the pipeline.
func NewBlock(gateName, message string) *GateResult {
	return &GateResult{Blocked: true, Message: message, GateName: gateName, Severity: SeverityError, Escalation: EscalationBlock}
}

// NewAsk returns an ask result: the pipeline stops and the host is asked
// to confirm with the user.
func NewAsk(gateName, message string) *GateResult {
	return &GateResult{Message: message, GateName: gateName, Severity: SeverityWarn, Escalation: EscalationAsk}
}

// NormalizeEscalation fills in Escalation when a gate constructs a
// GateResult by hand instead of via the New* helpers above: Escalation
// defaults to Block when Blocked is set, else Allow.
func (r *GateResult) NormalizeEscalation() {
	if r.Escalation != "" {
		return
	}
	if r.Blocked {
		r.Escalation = EscalationBlock
	} else {
		r.Escalation = EscalationAllow
	}
}

// HookDecision is the JSON object a pre-tool hook writes to stdout when it
// wants the host to deny or ask, per the external hook protocol.
type HookDecision struct {
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// HookSpecificOutput is the payload nested inside HookDecision.
type HookSpecificOutput struct {
	PermissionDecision string `json:"permissionDecision"`
	Reason             string `json:"reason,omitempty"`
}

// ToHookDecision maps a GateResult to the external stdout contract of a
// pre-tool hook. Only Block and Ask produce an output; Warn and Allow
// produce nil (the host falls through silently).
func (r *GateResult) ToHookDecision() *HookDecision {
	r.NormalizeEscalation()
	switch r.Escalation {
	case EscalationBlock:
		return &HookDecision{HookSpecificOutput: &HookSpecificOutput{
			PermissionDecision: "deny",
			Reason:             r.Message,
		}}
	case EscalationAsk:
		return &HookDecision{HookSpecificOutput: &HookSpecificOutput{
			PermissionDecision: "ask",
			Reason:             r.Message,
		}}
	default:
		return nil
	}
}

// IsWarning reports whether this result should be logged to stderr without
// altering the pipeline outcome.
func (r *GateResult) IsWarning() bool { return r.Escalation == EscalationWarn }

// IsAsk reports whether this result should stop the pipeline awaiting user
// confirmation.
func (r *GateResult) IsAsk() bool { return r.Escalation == EscalationAsk }

// IsStop reports whether this result should stop pipeline evaluation
// (ask or block both short-circuit; warn and allow do not).
func (r *GateResult) IsStop() bool {
	return r.Escalation == EscalationAsk || r.Escalation == EscalationBlock
}

// Priority classifies an Observation for capture-queue compaction.
type Priority string

const (
	PriorityHigh Priority = "high"
	PriorityMed  Priority = "med"
	PriorityLow  Priority = "low"
)

// Observation is one compressed record of a single tool call, appended to
// the capture queue and eventually drained into the memory gateway.
type Observation struct {
	Tool      string         `json:"tool"`
	TS        float64        `json:"ts"`
	SessionID string         `json:"session_id"`
	KeyFields map[string]any `json:"key_fields,omitempty"`
	Outcome   string         `json:"outcome,omitempty"`
	Priority  Priority       `json:"priority"`
	ObsHash   string         `json:"_obs_hash"`
}

// FileClaim records one session's exclusive claim on a path for the
// duration of a multi-agent workspace.
type FileClaim struct {
	SessionID string    `json:"session_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// ClaimStaleAfter is the age at which a FileClaim is considered stale and
// may be overridden by a new claimant.
const ClaimStaleAfter = 30 * time.Minute

// Stale reports whether the claim is older than ClaimStaleAfter as of now.
func (c FileClaim) Stale(now time.Time) bool {
	return now.Sub(c.ClaimedAt) > ClaimStaleAfter
}

// VerificationScore is the proof-of-work score attached to an edited file:
// 0 (never verified), 0.5 (partially verified), or 1.0 (verified).
type VerificationScore float64

const (
	ScoreUnverified VerificationScore = 0.0
	ScorePartial    VerificationScore = 0.5
	ScoreVerified   VerificationScore = 1.0
)

// ErrorWindow records the last time a given error pattern hash was seen,
// for the 60s same-pattern dedup window used by the tracker's error
// detection step.
type ErrorWindow struct {
	Pattern  string    `json:"pattern"`
	LastSeen time.Time `json:"last_seen"`
	Count    int       `json:"count"`
}

// RecentTestFailure captures the most recent non-zero test exit, used by
// the causal-chain gate to require a fix-history query before the next
// edit to the failing area.
type RecentTestFailure struct {
	Pattern   string    `json:"pattern"`
	Timestamp time.Time `json:"timestamp"`
}

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String renders the circuit state for logs and status output.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// PreToolEvent is the decoded JSON a pre-tool hook reads from stdin.
type PreToolEvent struct {
	SessionID     string         `json:"session_id"`
	HookEventName string         `json:"hook_event_name"`
	ToolName      string         `json:"tool_name"`
	ToolInput     map[string]any `json:"tool_input"`
}

// PostToolEvent is the decoded JSON a post-tool hook reads from stdin.
type PostToolEvent struct {
	SessionID     string         `json:"session_id"`
	HookEventName string         `json:"hook_event_name"`
	ToolName      string         `json:"tool_name"`
	ToolInput     map[string]any `json:"tool_input"`
	ToolResponse  map[string]any `json:"tool_response"`
}
