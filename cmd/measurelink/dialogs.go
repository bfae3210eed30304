package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/measurelink/internal/services"
)

var dialogTitleStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("63")).
	Bold(true)

// TerminalDialogs renders workflow dialogs as huh forms in the terminal.
type TerminalDialogs struct{}

// Show presents a dialog and blocks until the user resolves it. Choice
// dialogs render as a select over the action values, input dialogs as a free
// text field.
func (t *TerminalDialogs) Show(ctx context.Context, req services.DialogRequest) (string, error) {
	title := req.Title
	if req.ViewportID != "" {
		title = fmt.Sprintf("%s (%s)", req.Title, req.ViewportID)
	}
	fmt.Println(dialogTitleStyle.Render(title))

	if req.Input {
		value := req.DefaultValue
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(req.Message).
				Value(&value),
		))
		if err := form.RunWithContext(ctx); err != nil {
			return "", fmt.Errorf("run input dialog: %w", err)
		}
		return value, nil
	}

	options := make([]huh.Option[string], 0, len(req.Actions))
	for _, action := range req.Actions {
		options = append(options, huh.NewOption(action.Label, action.Value))
	}
	var value string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(req.Message).
			Options(options...).
			Value(&value),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("run choice dialog: %w", err)
	}
	return value, nil
}

func (t *TerminalDialogs) Hide() {}
