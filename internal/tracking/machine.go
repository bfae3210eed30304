package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mrsinham/measurelink/internal/services"
)

// State is one of the machine's named states.
type State string

const (
	StateOff                           State = "off"
	StateLabellingOnly                 State = "labellingOnly"
	StateIdle                          State = "idle"
	StatePromptBeginTracking           State = "promptBeginTracking"
	StateTracking                      State = "tracking"
	StatePromptTrackNewSeries          State = "promptTrackNewSeries"
	StatePromptTrackNewStudy           State = "promptTrackNewStudy"
	StatePromptSaveReport              State = "promptSaveReport"
	StatePromptHydrateStructuredReport State = "promptHydrateStructuredReport"
	StateHydrateStructuredReport       State = "hydrateStructuredReport"
	StatePromptLabelAnnotation         State = "promptLabelAnnotation"
)

// EventType names the events the machine accepts.
type EventType string

const (
	EventTrackSeries     EventType = "TRACK_SERIES"
	EventUntrackSeries   EventType = "UNTRACK_SERIES"
	EventUntrackAll      EventType = "UNTRACK_ALL"
	EventSaveReport      EventType = "SAVE_REPORT"
	EventPromptHydrateSR EventType = "PROMPT_HYDRATE_SR"
	EventHydrateSR       EventType = "HYDRATE_SR"
	EventSetDirty        EventType = "SET_DIRTY"
)

// Event is one dispatched occurrence.
type Event struct {
	Type                  EventType
	ViewportID            string
	StudyInstanceUID      string
	SeriesInstanceUID     string
	DisplaySetInstanceUID string
	MeasurementUID        string
}

// Response is a prompt resolution value. Cancellation is an ordinary resolved
// value; Go errors from prompt functions are reserved for unexpected failures
// and always route the machine to idle.
type Response string

const (
	ResponseCancel            Response = "CANCEL"
	ResponseNoNever           Response = "NO_NEVER"
	ResponseSetStudyAndSeries Response = "SET_STUDY_AND_SERIES"
	ResponseAddSeries         Response = "ADD_SERIES"
	ResponseNoNotForSeries    Response = "NO_NOT_FOR_SERIES"
	ResponseCreateReport      Response = "CREATE_REPORT"
	ResponseContinueReport    Response = "CONTINUE_REPORT"
	ResponseNewReport         Response = "NEW_REPORT"
	ResponseHydrateReport     Response = "HYDRATE_REPORT"
)

// Decision is a resolved prompt: the chosen response plus whatever context
// the prompt collected from the user.
type Decision struct {
	Response             Response
	StudyInstanceUID     string
	SeriesInstanceUIDs   []string
	Label                string
	CreatedDisplaySetUID string
}

// PromptFunc presents one prompt and resolves with the user's decision.
type PromptFunc func(ctx context.Context, snapshot Context, ev Event) (Decision, error)

// Prompts are the injected async service slots, one per prompt state.
type Prompts struct {
	BeginTracking           PromptFunc
	TrackNewSeries          PromptFunc
	TrackNewStudy           PromptFunc
	SaveReport              PromptFunc
	HydrateStructuredReport PromptFunc
	LabelAnnotation         PromptFunc
}

// HydrateOutcome is what a structured-report hydration merged into tracking.
type HydrateOutcome struct {
	StudyInstanceUID   string
	SeriesInstanceUIDs []string
}

// Effects are the external side effects the machine's actions trigger. Nil
// members are skipped.
type Effects struct {
	ClearMeasurements   func()
	ShowDisplaySet      func(displaySetInstanceUID string)
	SetMeasurementLabel func(measurementUID, label string)
	Hydrate             func(displaySetInstanceUID string) (HydrateOutcome, error)

	// RecordSavedMeasurements captures a content baseline whenever a save or
	// hydration leaves the tracked measurements clean.
	RecordSavedMeasurements func()
	// MeasurementsChanged reports whether the measurement content has
	// drifted from the recorded baseline.
	MeasurementsChanged func() bool
}

// Config assembles a machine.
type Config struct {
	Prompts       Prompts
	Effects       Effects
	Customization services.CustomizationService
	Log           *slog.Logger
}

// ErrEventRejected is returned for events the current state does not accept,
// including any event arriving while a prompt is pending. Rejection leaves
// the context untouched; this is the machine's back-pressure mechanism.
var ErrEventRejected = errors.New("tracking: event not accepted in current state")

// Machine is the tracking workflow state machine. The context is owned
// exclusively by the machine; external code interacts only through Send.
type Machine struct {
	mu      sync.Mutex
	state   State
	context Context
	pending bool

	prompts Prompts
	effects Effects
	log     *slog.Logger

	// labelMode caches the label-on-measure customization: "" (off),
	// "prompt" (label before tracking prompts) or "labelOnly".
	labelMode string
}

// New builds a machine in its initial state: idle, or labellingOnly when the
// label-on-measure customization requests label-only behavior.
func New(cfg Config) *Machine {
	m := &Machine{
		state:     StateIdle,
		prompts:   cfg.Prompts,
		effects:   cfg.Effects,
		log:       cfg.Log,
		labelMode: services.StringCustomization(cfg.Customization, services.CustomizationLabelOnMeasure),
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.labelMode == "labelOnly" {
		m.state = StateLabellingOnly
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Context returns a copy of the machine's context.
func (m *Machine) Context() Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.context.clone()
}

// Send dispatches one event. It blocks until any prompts it triggers have
// resolved. Events arriving while another Send holds a pending prompt are
// rejected with ErrEventRejected.
func (m *Machine) Send(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending {
		return fmt.Errorf("%w: prompt pending in %s", ErrEventRejected, m.state)
	}
	if ev.ViewportID != "" {
		m.context.ActiveViewportID = ev.ViewportID
	}

	m.log.Debug("tracking event", "state", string(m.state), "event", string(ev.Type))

	switch m.state {
	case StateOff:
		return fmt.Errorf("%w: tracking disabled for session", ErrEventRejected)
	case StateIdle:
		return m.sendIdle(ctx, ev)
	case StateLabellingOnly:
		return m.sendLabellingOnly(ctx, ev)
	case StateTracking:
		return m.sendTracking(ctx, ev)
	default:
		return fmt.Errorf("%w: %s in %s", ErrEventRejected, ev.Type, m.state)
	}
}

func (m *Machine) sendIdle(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventTrackSeries:
		if m.labelMode == "prompt" {
			if err := m.runLabelPrompt(ctx, ev, StateIdle); err != nil {
				return err
			}
		}
		return m.runBeginTracking(ctx, ev)
	case EventPromptHydrateSR:
		return m.runHydratePrompt(ctx, ev, StateIdle)
	case EventHydrateSR:
		return m.runHydration(ctx, ev)
	default:
		return fmt.Errorf("%w: %s in %s", ErrEventRejected, ev.Type, m.state)
	}
}

func (m *Machine) sendLabellingOnly(ctx context.Context, ev Event) error {
	if ev.Type != EventTrackSeries {
		return fmt.Errorf("%w: %s in %s", ErrEventRejected, ev.Type, m.state)
	}
	return m.runLabelPrompt(ctx, ev, StateLabellingOnly)
}

func (m *Machine) sendTracking(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventTrackSeries:
		switch {
		case ev.StudyInstanceUID != "" && ev.StudyInstanceUID != m.context.TrackedStudy:
			if m.labelMode == "prompt" {
				if err := m.runLabelPrompt(ctx, ev, StateTracking); err != nil {
					return err
				}
			}
			return m.runTrackNewStudy(ctx, ev)
		case !contains(m.context.TrackedSeries, ev.SeriesInstanceUID):
			if contains(m.context.IgnoredSeries, ev.SeriesInstanceUID) {
				// "No, do not ask again" covers this series; the measurement
				// stays untracked and no prompt fires.
				return nil
			}
			if m.labelMode == "prompt" {
				if err := m.runLabelPrompt(ctx, ev, StateTracking); err != nil {
					return err
				}
			}
			return m.runTrackNewSeries(ctx, ev)
		default:
			// Measurement added to an already-tracked series.
			m.context.IsDirty = true
			return nil
		}
	case EventUntrackSeries:
		m.context.removeTrackedSeries(ev.SeriesInstanceUID)
		m.context.IsDirty = true
		if len(m.context.TrackedSeries) == 0 {
			m.toIdle()
		}
		return nil
	case EventUntrackAll:
		m.toIdle()
		return nil
	case EventSaveReport:
		return m.runSaveReport(ctx, ev, nil)
	case EventSetDirty:
		if contains(m.context.TrackedSeries, ev.SeriesInstanceUID) {
			m.context.IsDirty = true
		}
		return nil
	case EventPromptHydrateSR:
		return m.runHydratePrompt(ctx, ev, StateTracking)
	case EventHydrateSR:
		return m.runHydration(ctx, ev)
	default:
		return fmt.Errorf("%w: %s in %s", ErrEventRejected, ev.Type, m.state)
	}
}

// runPrompt executes one injected prompt slot while the machine sits in the
// corresponding prompt state. The caller holds the mutex; the lock is
// released for the duration of the prompt with the pending flag set, so
// concurrent events are rejected instead of interleaved. A prompt error
// routes to idle with no context mutation.
func (m *Machine) runPrompt(ctx context.Context, state State, prompt PromptFunc, ev Event) (Decision, error) {
	if prompt == nil {
		m.toIdle()
		return Decision{}, fmt.Errorf("tracking: no prompt wired for %s", state)
	}

	m.context.PrevState = m.state
	m.state = state
	m.pending = true
	snapshot := m.context.clone()

	m.mu.Unlock()
	decision, err := prompt(ctx, snapshot, ev)
	m.mu.Lock()
	m.pending = false

	if err != nil {
		m.log.Warn("tracking prompt failed", "state", string(state), "error", err)
		m.toIdle()
		return Decision{}, fmt.Errorf("tracking: prompt %s: %w", state, err)
	}
	return decision, nil
}

func (m *Machine) runBeginTracking(ctx context.Context, ev Event) error {
	decision, err := m.runPrompt(ctx, StatePromptBeginTracking, m.prompts.BeginTracking, ev)
	if err != nil {
		return err
	}
	switch decision.Response {
	case ResponseNoNever:
		m.state = StateOff
	case ResponseSetStudyAndSeries:
		m.applySetStudyAndSeries(decision, ev)
		m.state = StateTracking
	default: // ResponseCancel and anything unrecognized
		m.toIdle()
	}
	return nil
}

// verifyDirty cross-checks the dirty flag against the measurement content
// baseline before a prompt offers to save or discard. Dirty events can stack
// up for edits that were later undone; the content comparison clears the
// flag when nothing actually changed since the last save.
func (m *Machine) verifyDirty() {
	if m.context.IsDirty && m.effects.MeasurementsChanged != nil && !m.effects.MeasurementsChanged() {
		m.context.IsDirty = false
	}
}

// recordSavedMeasurements refreshes the content baseline backing the dirty
// flag.
func (m *Machine) recordSavedMeasurements() {
	if m.effects.RecordSavedMeasurements != nil {
		m.effects.RecordSavedMeasurements()
	}
}

func (m *Machine) runTrackNewStudy(ctx context.Context, ev Event) error {
	m.verifyDirty()
	decision, err := m.runPrompt(ctx, StatePromptTrackNewStudy, m.prompts.TrackNewStudy, ev)
	if err != nil {
		return err
	}
	return m.applyTrackSwitch(ctx, decision, ev)
}

func (m *Machine) runTrackNewSeries(ctx context.Context, ev Event) error {
	m.verifyDirty()
	decision, err := m.runPrompt(ctx, StatePromptTrackNewSeries, m.prompts.TrackNewSeries, ev)
	if err != nil {
		return err
	}
	return m.applyTrackSwitch(ctx, decision, ev)
}

// applyTrackSwitch resolves the shared outcome set of the new-study and
// new-series prompts.
func (m *Machine) applyTrackSwitch(ctx context.Context, decision Decision, ev Event) error {
	switch decision.Response {
	case ResponseSetStudyAndSeries:
		// Discard previously tracked measurements and re-track.
		if m.effects.ClearMeasurements != nil {
			m.effects.ClearMeasurements()
		}
		m.applySetStudyAndSeries(decision, ev)
		m.state = StateTracking
	case ResponseAddSeries:
		m.context.addTrackedSeries(ev.SeriesInstanceUID)
		m.context.IsDirty = true
		m.state = StateTracking
	case ResponseNoNotForSeries:
		m.context.ignoreSeries(ev.SeriesInstanceUID)
		m.state = StateTracking
	case ResponseCreateReport:
		// Save first, then continue switching to the new context.
		return m.runSaveReport(ctx, ev, func() {
			m.applySetStudyAndSeries(Decision{}, ev)
			m.context.IsDirty = true
		})
	default:
		m.state = StateTracking
	}
	return nil
}

func (m *Machine) applySetStudyAndSeries(decision Decision, ev Event) {
	study := decision.StudyInstanceUID
	if study == "" {
		study = ev.StudyInstanceUID
	}
	series := decision.SeriesInstanceUIDs
	if len(series) == 0 && ev.SeriesInstanceUID != "" {
		series = []string{ev.SeriesInstanceUID}
	}
	m.context.setTrackedStudyAndSeries(study, series)
	m.context.IsDirty = true
}

// runSaveReport resolves the save prompt. afterSave, when non-nil, runs after
// a successful save to continue a diverted context switch.
func (m *Machine) runSaveReport(ctx context.Context, ev Event, afterSave func()) error {
	decision, err := m.runPrompt(ctx, StatePromptSaveReport, m.prompts.SaveReport, ev)
	if err != nil {
		return err
	}
	switch decision.Response {
	case ResponseContinueReport:
		if m.effects.ClearMeasurements != nil {
			m.effects.ClearMeasurements()
		}
		if decision.CreatedDisplaySetUID != "" && m.effects.ShowDisplaySet != nil {
			m.effects.ShowDisplaySet(decision.CreatedDisplaySetUID)
		}
		m.context.IsDirty = false
		m.recordSavedMeasurements()
		m.state = StateTracking
		if afterSave != nil {
			afterSave()
		}
	case ResponseNewReport:
		if m.effects.ClearMeasurements != nil {
			m.effects.ClearMeasurements()
		}
		m.recordSavedMeasurements()
		m.applySetStudyAndSeries(decision, ev)
		m.state = StateTracking
	default: // cancel
		m.state = StateTracking
	}
	return nil
}

func (m *Machine) runHydratePrompt(ctx context.Context, ev Event, returnTo State) error {
	if contains(m.context.IgnoredSRSeriesForHydration, ev.SeriesInstanceUID) {
		return nil
	}
	decision, err := m.runPrompt(ctx, StatePromptHydrateStructuredReport, m.prompts.HydrateStructuredReport, ev)
	if err != nil {
		return err
	}
	switch decision.Response {
	case ResponseHydrateReport:
		return m.runHydration(ctx, ev)
	case ResponseNoNotForSeries:
		m.context.ignoreSRSeriesForHydration(ev.SeriesInstanceUID)
		m.state = returnTo
	default:
		m.state = returnTo
	}
	return nil
}

// runHydration performs the hydration effect while parked in
// hydrateStructuredReport. Hydration is clean by definition: the merged
// context carries no unsaved changes.
func (m *Machine) runHydration(ctx context.Context, ev Event) error {
	if m.effects.Hydrate == nil {
		m.toIdle()
		return fmt.Errorf("tracking: no hydrate effect wired")
	}
	m.context.PrevState = m.state
	m.state = StateHydrateStructuredReport
	m.pending = true

	m.mu.Unlock()
	outcome, err := m.effects.Hydrate(ev.DisplaySetInstanceUID)
	m.mu.Lock()
	m.pending = false

	if err != nil {
		m.log.Warn("structured report hydration failed", "displaySet", ev.DisplaySetInstanceUID, "error", err)
		m.toIdle()
		return fmt.Errorf("tracking: hydrate %s: %w", ev.DisplaySetInstanceUID, err)
	}

	if outcome.StudyInstanceUID != "" {
		if m.context.TrackedStudy == "" {
			m.context.TrackedStudy = outcome.StudyInstanceUID
		}
		if m.context.TrackedStudy == outcome.StudyInstanceUID {
			m.context.TrackedSeries = union(m.context.TrackedSeries, outcome.SeriesInstanceUIDs)
		}
	}
	m.context.IsDirty = false
	m.recordSavedMeasurements()
	m.state = StateTracking
	return nil
}

// runLabelPrompt interposes the label prompt and returns to the caller's
// flow; the recorded previous state restores where the workflow came from.
func (m *Machine) runLabelPrompt(ctx context.Context, ev Event, returnTo State) error {
	decision, err := m.runPrompt(ctx, StatePromptLabelAnnotation, m.prompts.LabelAnnotation, ev)
	if err != nil {
		return err
	}
	if decision.Label != "" && m.effects.SetMeasurementLabel != nil {
		m.effects.SetMeasurementLabel(ev.MeasurementUID, decision.Label)
	}
	m.state = returnTo
	return nil
}

// toIdle is the full context reset: every denylist and tracked reference is
// dropped, only the active viewport survives.
func (m *Machine) toIdle() {
	viewport := m.context.ActiveViewportID
	prev := m.state
	m.context = Context{ActiveViewportID: viewport, PrevState: prev}
	m.state = StateIdle
}
