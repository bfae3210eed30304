package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mrsinham/measurelink/internal/annotations"
	"github.com/mrsinham/measurelink/internal/measure/mappers"
	"github.com/mrsinham/measurelink/internal/services"
	"github.com/mrsinham/measurelink/internal/sr"
	"github.com/mrsinham/measurelink/internal/tracking"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	configFile := flag.String("config", "", "Workspace config YAML file (required)")
	reportUID := flag.String("report", "", "Structured-report display set UID to hydrate (default: first report in config)")
	interactive := flag.Bool("interactive", false, "Prompt through the tracking workflow before hydrating")
	flag.BoolVar(interactive, "i", false, "Prompt through the tracking workflow (shortcut)")
	answers := flag.String("answers", "", "Comma-separated scripted dialog answers (non-interactive workflow run)")
	showReports := flag.Bool("reports", false, "Print the per-measurement report columns")
	exportPath := flag.String("export", "", "Write the hydrated measurements back out as a structured report file")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version")
	help := flag.Bool("help", false, "Show help message")
	flag.Parse()

	if *showVersion {
		fmt.Printf("measurelink %s\n", version)
		os.Exit(0)
	}
	if *help {
		printHelp()
		os.Exit(0)
	}
	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --config is required\n")
		printUsage()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	app, err := buildApp(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	target := *reportUID
	if target == "" && len(cfg.Reports) > 0 {
		target = cfg.Reports[0].DisplaySetUID
	}
	if target == "" {
		fmt.Fprintf(os.Stderr, "Error: no structured report to hydrate, add a reports entry to the config or pass --report\n")
		os.Exit(1)
	}

	fmt.Println("measurelink")
	fmt.Println("===========")
	fmt.Println()

	ctx := context.Background()
	if *interactive || *answers != "" {
		if err := app.runWorkflow(ctx, target, *interactive, *answers); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		result, err := app.hydrator.Hydrate(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error hydrating report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Hydrated report %s (study %s, %d series)\n\n",
			target, result.StudyInstanceUID, len(result.SeriesInstanceUIDs))
	}

	measurements := app.measurements.GetMeasurements()
	fmt.Print(renderMeasurements(measurements))
	if *showReports {
		fmt.Println()
		for _, mm := range measurements {
			fmt.Print(renderReport(mm))
		}
	}

	if *exportPath != "" {
		if err := app.exportReport(*exportPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nExported report to %s\n", *exportPath)
	}
}

// exportReport serializes the stored annotations back into a structured
// report file.
func (a *app) exportReport(path string) error {
	entries := a.annotations.All()
	if len(entries) == 0 {
		return fmt.Errorf("no annotations to export")
	}

	study := ""
	findings := make([]sr.Finding, 0, len(entries))
	for _, entry := range entries {
		sopUID := ""
		if inst, ok := a.metadata.Instance(entry.ImageReference); ok {
			sopUID = inst.SOPInstanceUID
			if study == "" {
				study = inst.StudyInstanceUID
			}
		}
		findings = append(findings, sr.FindingFromAnnotation(entry.Annotation, sopUID))
	}
	return sr.WriteReport(path, sr.NewReportInfo(study), findings)
}

// app bundles the wired services behind the CLI.
type app struct {
	displaySets   *services.DisplaySets
	metadata      *services.MetadataStore
	viewports     *services.Viewports
	customization *services.Customizations
	annotations   *annotations.Store
	measurements  *services.Measurements
	mappings      map[string]mappers.Mapping
	hydrator      *sr.Hydrator
	log           *slog.Logger
}

// buildApp seeds the in-memory services from the workspace config and wires
// the mapper registry and hydrator on top of them.
func buildApp(cfg *Config, log *slog.Logger) (*app, error) {
	displaySets, err := services.NewDisplaySets()
	if err != nil {
		return nil, err
	}
	metadata := services.NewMetadataStore()
	viewports := services.NewViewports()
	customization := services.NewCustomizations(cfg.CustomizationValues())

	for _, study := range cfg.Studies {
		for _, series := range study.Series {
			dsUID := series.DisplaySetUID
			if dsUID == "" {
				dsUID = "ds-" + series.SeriesInstanceUID
			}
			ds := &services.DisplaySet{
				DisplaySetInstanceUID: dsUID,
				SeriesInstanceUID:     series.SeriesInstanceUID,
				StudyInstanceUID:      study.StudyInstanceUID,
				SeriesNumber:          series.SeriesNumber,
				Modality:              series.Modality,
				IsMultiFrame:          series.MultiFrame,
			}
			for _, inst := range series.Instances {
				instance := services.Instance{
					SOPInstanceUID:      inst.SOPInstanceUID,
					SeriesInstanceUID:   series.SeriesInstanceUID,
					StudyInstanceUID:    study.StudyInstanceUID,
					FrameOfReferenceUID: inst.FrameOfReferenceUID,
					InstanceNumber:      inst.InstanceNumber,
					NumberOfFrames:      inst.NumberOfFrames,
					ImageID:             inst.ImageID,
					Modality:            series.Modality,
				}
				ds.Instances = append(ds.Instances, instance)
				metadata.AddInstance(instance)
			}
			displaySets.Add(ds)
		}
	}
	for _, report := range cfg.Reports {
		displaySets.Add(&services.DisplaySet{
			DisplaySetInstanceUID: report.DisplaySetUID,
			SeriesInstanceUID:     report.SeriesInstanceUID,
			StudyInstanceUID:      report.StudyInstanceUID,
			SeriesNumber:          report.SeriesNumber,
			Modality:              "SR",
			IsRehydratable:        true,
			SRDatasetPath:         report.Path,
		})
	}
	for _, vp := range cfg.Viewports {
		viewports.SetViewport(vp.ID, vp.ImageID, vp.DisplaySetUID)
	}

	store, err := annotations.NewStore()
	if err != nil {
		return nil, err
	}
	measurements := services.NewMeasurements()

	mappings := mappers.Build(mappers.Deps{
		DisplaySets:   displaySets,
		Viewports:     viewports,
		SOP:           services.NewResolver(metadata),
		Customization: customization,
		Flags:         store,
		Log:           log,
	})

	hydrator := &sr.Hydrator{
		DisplaySets:   displaySets,
		Measurements:  measurements,
		Annotations:   store,
		Mappings:      mappings,
		Customization: customization,
		Parser:        &sr.Parser{Log: log},
		LoadDataset:   sr.FileDatasetLoader,
		Log:           log,
	}

	return &app{
		displaySets:   displaySets,
		metadata:      metadata,
		viewports:     viewports,
		customization: customization,
		annotations:   store,
		measurements:  measurements,
		mappings:      mappings,
		hydrator:      hydrator,
		log:           log,
	}, nil
}

// runWorkflow drives the hydration through the tracking state machine, with
// dialogs rendered in the terminal or replayed from scripted answers.
func (a *app) runWorkflow(ctx context.Context, reportUID string, interactive bool, answers string) error {
	var dialogs services.DialogService
	if interactive {
		dialogs = &TerminalDialogs{}
	} else {
		scripted := &services.ScriptedDialogs{}
		for _, answer := range strings.Split(answers, ",") {
			if answer = strings.TrimSpace(answer); answer != "" {
				scripted.Answers = append(scripted.Answers, answer)
			}
		}
		dialogs = scripted
	}

	baseline, _ := a.measurements.ContentHash()
	machine := tracking.New(tracking.Config{
		Prompts: tracking.NewDialogPrompts(dialogs),
		Effects: tracking.Effects{
			ClearMeasurements: a.measurements.ClearMeasurements,
			RecordSavedMeasurements: func() {
				if h, err := a.measurements.ContentHash(); err == nil {
					baseline = h
				}
			},
			MeasurementsChanged: func() bool {
				h, err := a.measurements.ContentHash()
				if err != nil {
					return true
				}
				return h != baseline
			},
			ShowDisplaySet: func(displaySetInstanceUID string) {
				a.log.Info("showing display set", "uid", displaySetInstanceUID)
			},
			SetMeasurementLabel: func(measurementUID, label string) {
				for _, mm := range a.measurements.GetMeasurements() {
					if mm.UID == measurementUID {
						mm.Label = label
					}
				}
			},
			Hydrate: func(displaySetInstanceUID string) (tracking.HydrateOutcome, error) {
				result, err := a.hydrator.Hydrate(displaySetInstanceUID)
				if err != nil {
					return tracking.HydrateOutcome{}, err
				}
				return tracking.HydrateOutcome{
					StudyInstanceUID:   result.StudyInstanceUID,
					SeriesInstanceUIDs: result.SeriesInstanceUIDs,
				}, nil
			},
		},
		Customization: a.customization,
		Log:           a.log,
	})

	if err := machine.Send(ctx, tracking.Event{
		Type:                  tracking.EventPromptHydrateSR,
		DisplaySetInstanceUID: reportUID,
	}); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}

	trackingCtx := machine.Context()
	fmt.Printf("Workflow finished in state %q\n", machine.State())
	if trackingCtx.TrackedStudy != "" {
		fmt.Printf("Tracking study %s (%d series)\n\n", trackingCtx.TrackedStudy, len(trackingCtx.TrackedSeries))
	} else {
		fmt.Println("Nothing is being tracked")
		fmt.Println()
	}
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "\nUsage:")
	fmt.Fprintln(os.Stderr, "  measurelink --config <FILE> [options]")
	fmt.Fprintln(os.Stderr, "\nOptions:")
	flag.PrintDefaults()
}

func printHelp() {
	fmt.Println("measurelink")
	fmt.Println("===========")
	fmt.Println()
	fmt.Println("Hydrate DICOM structured reports back into tracked measurements.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  measurelink --config <FILE> [options]")
	fmt.Println()
	fmt.Println("Required arguments:")
	fmt.Println("  --config <FILE>       Workspace config YAML describing studies, series,")
	fmt.Println("                        instances, viewports and structured reports")
	fmt.Println()
	fmt.Println("Optional arguments:")
	fmt.Println("  --report <UID>        Display set UID of the report to hydrate")
	fmt.Println("                        (default: first report in the config)")
	fmt.Println("  --interactive, -i     Prompt through the tracking workflow before hydrating")
	fmt.Println("  --answers <LIST>      Comma-separated scripted dialog answers, runs the")
	fmt.Println("                        workflow without a terminal (e.g. 'HYDRATE_REPORT')")
	fmt.Println("  --reports             Print the per-measurement report columns")
	fmt.Println("  --export <FILE>       Write the hydrated measurements back out as a")
	fmt.Println("                        structured report DICOM file")
	fmt.Println("  --verbose             Enable debug logging")
	fmt.Println("  --version             Show version")
	fmt.Println("  --help                Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Hydrate the first report of a workspace")
	fmt.Println("  measurelink --config workspace.yaml")
	fmt.Println()
	fmt.Println("  # Walk through the hydration prompt in the terminal")
	fmt.Println("  measurelink --config workspace.yaml --interactive")
	fmt.Println()
	fmt.Println("  # Scripted run that accepts the hydration prompt")
	fmt.Println("  measurelink --config workspace.yaml --answers HYDRATE_REPORT")
	fmt.Println()
	fmt.Println("  # Hydrate a specific report and dump the export columns")
	fmt.Println("  measurelink --config workspace.yaml --report 1.2.840.113.7 --reports")
}
