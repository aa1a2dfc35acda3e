package types

import "time"

// SessionState is the home document of the runtime: one JSON file per
// session id, mutated only inside a read -> mutate -> atomic-replace cycle.
//
// tool_call_count and session_start are monotonic within a session;
// pending_verification is cleared exactly when a recognised verify-event
// (a broad test command, or a per-file verification command) runs.
type SessionState struct {
	SessionID    string  `json:"session_id"`
	SessionStart float64 `json:"session_start"`

	FilesRead []string `json:"files_read"`

	PendingVerification []string                     `json:"pending_verification"`
	VerificationScores  map[string]VerificationScore `json:"verification_scores"`
	EditStreak          map[string]int                `json:"edit_streak"`

	ToolCallCount  int            `json:"tool_call_count"`
	ToolCallCounts map[string]int `json:"tool_call_counts"`
	EstimatedTokens int           `json:"estimated_tokens"`

	RateWindowTimestamps []float64 `json:"rate_window_timestamps"`

	LastTestRun          float64 `json:"last_test_run"`
	LastTestExitCode     *int    `json:"last_test_exit_code,omitempty"`
	LastTestCommand      string  `json:"last_test_command,omitempty"`
	SessionTestBaseline  bool    `json:"session_test_baseline"`

	UnloggedErrors     []string               `json:"unlogged_errors"`
	ErrorPatternCounts map[string]int         `json:"error_pattern_counts"`
	ErrorWindows       map[string]*ErrorWindow `json:"error_windows"`

	RecentTestFailure *RecentTestFailure `json:"recent_test_failure,omitempty"`
	FixHistoryQueried float64            `json:"fix_history_queried"`
	FixingError       bool               `json:"fixing_error"`
	CurrentStrategyID string             `json:"current_strategy_id,omitempty"`
	BannedStrategies  []string           `json:"banned_strategies,omitempty"`

	FixPendingSave  bool   `json:"fix_pending_save"`
	FixSaveWarnings int    `json:"fix_save_warnings"`
	FixedFilePath   string `json:"fixed_file_path,omitempty"`

	AutoRememberCount          int            `json:"auto_remember_count"`
	Gate4Exemptions            map[string]int `json:"gate4_exemptions"`
	ConfidenceWarningsPerFile  map[string]int `json:"confidence_warnings_per_file"`
	ConfidenceWarnedSignals    []string       `json:"confidence_warned_signals,omitempty"`
	CodeQualityWarningsPerFile map[string]int `json:"code_quality_warnings_per_file"`

	MentorLastScore         float64        `json:"mentor_last_score"`
	MentorLastVerdict       string         `json:"mentor_last_verdict,omitempty"`
	MentorEscalationCount   int            `json:"mentor_escalation_count"`
	MentorChainScore        float64        `json:"mentor_chain_score"`
	MentorChainPattern      string         `json:"mentor_chain_pattern,omitempty"`
	MentorMemoryMatch       bool           `json:"mentor_memory_match"`
	MentorHistoricalContext string         `json:"mentor_historical_context,omitempty"`
	MentorWarnedThisCycle   bool           `json:"mentor_warned_this_cycle"`
	AnalyticsNudgeCooldowns map[string]float64 `json:"analytics_nudge_cooldowns,omitempty"`

	MemoryLastQueried float64 `json:"memory_last_queried"`

	GateTuneOverrides map[string]float64 `json:"gate_tune_overrides,omitempty"`
}

// NewSessionState returns a freshly initialised document for sessionID,
// stamped with the given start time.
func NewSessionState(sessionID string, start time.Time) *SessionState {
	return &SessionState{
		SessionID:                  sessionID,
		SessionStart:               float64(start.Unix()),
		FilesRead:                  []string{},
		PendingVerification:        []string{},
		VerificationScores:         map[string]VerificationScore{},
		EditStreak:                 map[string]int{},
		ToolCallCounts:             map[string]int{},
		RateWindowTimestamps:       []float64{},
		UnloggedErrors:             []string{},
		ErrorPatternCounts:         map[string]int{},
		ErrorWindows:               map[string]*ErrorWindow{},
		ConfidenceWarningsPerFile:  map[string]int{},
		CodeQualityWarningsPerFile: map[string]int{},
		Gate4Exemptions:            map[string]int{},
	}
}

// EffectiveUnverified returns the count of pending_verification entries
// weighted by their verification score: an unscored or 0-scored file
// counts as 1, a partially-verified (0.5) file counts as 0.5, and a fully
// verified (1.0) file counts as 0 (it should not normally still be
// pending, but the gate treats it defensively).
func (s *SessionState) EffectiveUnverified() float64 {
	var total float64
	for _, path := range s.PendingVerification {
		score, ok := s.VerificationScores[path]
		if !ok {
			total += 1.0
			continue
		}
		total += 1.0 - float64(score)
	}
	return total
}

// TuneOverride returns the configured override for key, or def if no
// override is set.
func (s *SessionState) TuneOverride(key string, def float64) float64 {
	if s.GateTuneOverrides == nil {
		return def
	}
	if v, ok := s.GateTuneOverrides[key]; ok {
		return v
	}
	return def
}
