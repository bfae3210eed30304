package services

import "context"

// DialogAction is one labeled choice presented by a dialog.
type DialogAction struct {
	Label string
	Value string
}

// DialogRequest describes one dialog: a message bound to a viewport plus N
// labeled actions. The dialog resolves with the chosen action's value.
type DialogRequest struct {
	ViewportID string
	Title      string
	Message    string
	Actions    []DialogAction

	// Input requests a free-text answer instead of a choice (label prompts).
	Input        bool
	DefaultValue string
}

// DialogService presents a dialog and resolves with the chosen value. Only
// one dialog is active at a time; Hide dismisses any active dialog.
type DialogService interface {
	Show(ctx context.Context, req DialogRequest) (string, error)
	Hide()
}

// ScriptedDialogs is a DialogService that replays a fixed answer sequence.
// Used by tests and non-interactive runs.
type ScriptedDialogs struct {
	Answers []string
	Err     error

	// Requests records every request shown, in order.
	Requests []DialogRequest

	next int
}

func (s *ScriptedDialogs) Show(ctx context.Context, req DialogRequest) (string, error) {
	s.Requests = append(s.Requests, req)
	if s.Err != nil {
		return "", s.Err
	}
	if s.next >= len(s.Answers) {
		return "", context.Canceled
	}
	answer := s.Answers[s.next]
	s.next++
	return answer, nil
}

func (s *ScriptedDialogs) Hide() {}
