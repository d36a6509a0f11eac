package sessions

import "time"

// State is the per-session memory of the last generation outcome. It is a
// value: handlers load it, pass it into the pipeline and save what comes back.
type State struct {
	ID               string    `json:"id"`
	GenerationFailed bool      `json:"generationFailed"`
	FailedCredential string    `json:"failedCredential,omitempty"`
	LastError        string    `json:"lastError,omitempty"`
	FailedAt         time.Time `json:"failedAt,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// RecordFailure remembers a generation failure for the given credential
// fingerprint.
func (s State) RecordFailure(fingerprint, message string, now time.Time) State {
	s.GenerationFailed = true
	s.FailedCredential = fingerprint
	s.LastError = message
	s.FailedAt = now
	s.UpdatedAt = now
	return s
}

// RecordSuccess clears any remembered failure.
func (s State) RecordSuccess(now time.Time) State {
	s.GenerationFailed = false
	s.FailedCredential = ""
	s.LastError = ""
	s.FailedAt = time.Time{}
	s.UpdatedAt = now
	return s
}

// Blocks reports whether an attempt with this credential fingerprint should
// be refused without calling the model again.
func (s State) Blocks(fingerprint string) bool {
	return s.GenerationFailed && s.FailedCredential == fingerprint
}
