package tracking

import (
	"context"
	"fmt"

	"github.com/mrsinham/measurelink/internal/services"
)

// NewDialogPrompts builds the standard prompt set over a dialog service. Each
// prompt presents labeled actions bound to the machine's response values and
// resolves with the chosen one; dismissing the dialog resolves as CANCEL.
func NewDialogPrompts(dialogs services.DialogService) Prompts {
	return Prompts{
		BeginTracking:           beginTrackingPrompt(dialogs),
		TrackNewSeries:          trackNewSeriesPrompt(dialogs),
		TrackNewStudy:           trackNewStudyPrompt(dialogs),
		SaveReport:              saveReportPrompt(dialogs),
		HydrateStructuredReport: hydrateStructuredReportPrompt(dialogs),
		LabelAnnotation:         labelAnnotationPrompt(dialogs),
	}
}

func showChoice(ctx context.Context, dialogs services.DialogService, req services.DialogRequest, ev Event) (Decision, error) {
	value, err := dialogs.Show(ctx, req)
	if err != nil {
		return Decision{}, fmt.Errorf("show dialog %q: %w", req.Title, err)
	}
	dialogs.Hide()
	return Decision{
		Response:           Response(value),
		StudyInstanceUID:   ev.StudyInstanceUID,
		SeriesInstanceUIDs: seriesList(ev),
	}, nil
}

func seriesList(ev Event) []string {
	if ev.SeriesInstanceUID == "" {
		return nil
	}
	return []string{ev.SeriesInstanceUID}
}

func beginTrackingPrompt(dialogs services.DialogService) PromptFunc {
	return func(ctx context.Context, snapshot Context, ev Event) (Decision, error) {
		return showChoice(ctx, dialogs, services.DialogRequest{
			ViewportID: ev.ViewportID,
			Title:      "Track measurements",
			Message:    "Track measurements for this series?",
			Actions: []services.DialogAction{
				{Label: "No, never for this session", Value: string(ResponseNoNever)},
				{Label: "No", Value: string(ResponseCancel)},
				{Label: "Yes", Value: string(ResponseSetStudyAndSeries)},
			},
		}, ev)
	}
}

func trackNewSeriesPrompt(dialogs services.DialogService) PromptFunc {
	return func(ctx context.Context, snapshot Context, ev Event) (Decision, error) {
		return showChoice(ctx, dialogs, services.DialogRequest{
			ViewportID: ev.ViewportID,
			Title:      "Track new series",
			Message:    "Do you want to add this series to the tracked measurements?",
			Actions: []services.DialogAction{
				{Label: "No, not for this series", Value: string(ResponseNoNotForSeries)},
				{Label: "Create new report", Value: string(ResponseCreateReport)},
				{Label: "Add to existing report", Value: string(ResponseAddSeries)},
				{Label: "Cancel", Value: string(ResponseCancel)},
			},
		}, ev)
	}
}

func trackNewStudyPrompt(dialogs services.DialogService) PromptFunc {
	return func(ctx context.Context, snapshot Context, ev Event) (Decision, error) {
		message := "Measurements are tracked for another study. Track this study instead?"
		if snapshot.IsDirty {
			message = "You have unsaved measurements for another study. Save the report before tracking this study?"
		}
		return showChoice(ctx, dialogs, services.DialogRequest{
			ViewportID: ev.ViewportID,
			Title:      "Track new study",
			Message:    message,
			Actions: []services.DialogAction{
				{Label: "No, not for this series", Value: string(ResponseNoNotForSeries)},
				{Label: "Save report first", Value: string(ResponseCreateReport)},
				{Label: "Discard and track new study", Value: string(ResponseSetStudyAndSeries)},
				{Label: "Cancel", Value: string(ResponseCancel)},
			},
		}, ev)
	}
}

func saveReportPrompt(dialogs services.DialogService) PromptFunc {
	return func(ctx context.Context, snapshot Context, ev Event) (Decision, error) {
		return showChoice(ctx, dialogs, services.DialogRequest{
			ViewportID: ev.ViewportID,
			Title:      "Save report",
			Message:    "Save the tracked measurements as a structured report?",
			Actions: []services.DialogAction{
				{Label: "Save and continue", Value: string(ResponseContinueReport)},
				{Label: "Discard and start new report", Value: string(ResponseNewReport)},
				{Label: "Cancel", Value: string(ResponseCancel)},
			},
		}, ev)
	}
}

func hydrateStructuredReportPrompt(dialogs services.DialogService) PromptFunc {
	return func(ctx context.Context, snapshot Context, ev Event) (Decision, error) {
		return showChoice(ctx, dialogs, services.DialogRequest{
			ViewportID: ev.ViewportID,
			Title:      "Restore measurements",
			Message:    "Do you want to continue tracking the measurements in this report?",
			Actions: []services.DialogAction{
				{Label: "No, not for this series", Value: string(ResponseNoNotForSeries)},
				{Label: "No", Value: string(ResponseCancel)},
				{Label: "Yes", Value: string(ResponseHydrateReport)},
			},
		}, ev)
	}
}

func labelAnnotationPrompt(dialogs services.DialogService) PromptFunc {
	return func(ctx context.Context, snapshot Context, ev Event) (Decision, error) {
		value, err := dialogs.Show(ctx, services.DialogRequest{
			ViewportID:   ev.ViewportID,
			Title:        "Annotation label",
			Message:      "Enter a label for this measurement",
			Input:        true,
			DefaultValue: "",
		})
		if err != nil {
			return Decision{}, fmt.Errorf("show label dialog: %w", err)
		}
		dialogs.Hide()
		return Decision{Response: ResponseCancel, Label: value}, nil
	}
}
