package e2e

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// binaryPath holds the path to the compiled binary (set once in TestMain)
var binaryPath string

// testContext holds state for a single scenario
type testContext struct {
	tmpDir   string
	exitCode int
	output   string
}

const (
	workspaceStudyUID  = "1.2.840.1"
	workspaceSeriesUID = "1.2.840.1.2"
	workspaceSOPUID    = "1.2.840.1.2.3"
	workspaceImageID   = "wadors:/studies/1.2.840.1/series/1.2.840.1.2/instances/1.2.840.1.2.3"
)

// buildBinary compiles the measurelink binary once
func buildBinary() (string, error) {
	tmpFile, err := os.CreateTemp("", "measurelink-test-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpFile.Close()

	// Get the directory of this test file to find the project root
	_, thisFile, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")

	cmd := exec.Command("go", "build", "-o", tmpFile.Name(), "./cmd/measurelink")
	cmd.Dir = projectRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build failed: %w\n%s", err, stderr.String())
	}

	return tmpFile.Name(), nil
}

// TestMain compiles the binary once before running all tests
func TestMain(m *testing.M) {
	var err error
	binaryPath, err = buildBinary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build binary: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(binaryPath)

	code := m.Run()
	os.Exit(code)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	tc := &testContext{}

	sc.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tmpDir, err := os.MkdirTemp("", "measurelink-e2e-*")
		if err != nil {
			return ctx, err
		}
		tc.tmpDir = tmpDir
		return ctx, nil
	})

	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if tc.tmpDir != "" {
			os.RemoveAll(tc.tmpDir)
		}
		return ctx, nil
	})

	sc.Step(`^measurelink is built$`, tc.measurelinkIsBuilt)
	sc.Step(`^a workspace with a length measurement report$`, tc.aWorkspaceWithALengthReport)
	sc.Step(`^I run measurelink with "([^"]*)"$`, tc.iRunMeasurelinkWith)
	sc.Step(`^the exit code should be (\d+)$`, tc.theExitCodeShouldBe)
	sc.Step(`^the output should contain "([^"]*)"$`, tc.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, tc.theOutputShouldNotContain)
}

func (tc *testContext) measurelinkIsBuilt() error {
	if binaryPath == "" {
		return fmt.Errorf("binary not built")
	}
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		return fmt.Errorf("binary does not exist at %s", binaryPath)
	}
	return nil
}

// aWorkspaceWithALengthReport writes a structured report containing one
// Length measurement group plus the workspace config that references it.
func (tc *testContext) aWorkspaceWithALengthReport() error {
	reportPath := filepath.Join(tc.tmpDir, "report.dcm")
	if err := writeLengthReport(reportPath); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	config := fmt.Sprintf(`
studies:
  - study_instance_uid: %q
    series:
      - series_instance_uid: %q
        series_number: "3"
        modality: CT
        display_set_uid: ds-1
        instances:
          - sop_instance_uid: %q
            instance_number: 12
            image_id: %q
            frame_of_reference_uid: "1.2.840.9"
reports:
  - display_set_uid: sr-ds-1
    study_instance_uid: %q
    series_instance_uid: "1.2.840.5"
    path: %q
`, workspaceStudyUID, workspaceSeriesUID, workspaceSOPUID, workspaceImageID, workspaceStudyUID, reportPath)

	return os.WriteFile(filepath.Join(tc.tmpDir, "workspace.yaml"), []byte(config), 0644)
}

func (tc *testContext) iRunMeasurelinkWith(args string) error {
	args = strings.ReplaceAll(args, "{tmpdir}", tc.tmpDir)

	cmd := exec.Command(binaryPath, splitArgs(args)...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	tc.output = output.String()

	if exitErr, ok := err.(*exec.ExitError); ok {
		tc.exitCode = exitErr.ExitCode()
	} else if err != nil {
		return fmt.Errorf("failed to run command: %w", err)
	} else {
		tc.exitCode = 0
	}

	return nil
}

func (tc *testContext) theExitCodeShouldBe(expected int) error {
	if tc.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nOutput:\n%s", expected, tc.exitCode, tc.output)
	}
	return nil
}

func (tc *testContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(tc.output, expected) {
		return fmt.Errorf("output does not contain %q\nOutput:\n%s", expected, tc.output)
	}
	return nil
}

func (tc *testContext) theOutputShouldNotContain(unexpected string) error {
	if strings.Contains(tc.output, unexpected) {
		return fmt.Errorf("output contains %q\nOutput:\n%s", unexpected, tc.output)
	}
	return nil
}

// writeLengthReport generates a minimal comprehensive SR dataset with one
// tracked Length measurement group and writes it to disk.
func writeLengthReport(path string) error {
	tracking := contentItem("Tracking Identifier",
		mustNewElement(tag.TextValue, []string{"Cornerstone3DTools@^0.1.0:Length"}),
	)
	note := contentItem("Finding Note",
		mustNewElement(tag.TextValue, []string{"left upper lobe"}),
	)
	length := numericItem("Length", "10.456", "mm",
		mustNewElement(tag.ContentSequence, [][]*dicom.Element{{
			mustNewElement(tag.GraphicType, []string{"POLYLINE"}),
			mustNewElement(tag.GraphicData, []float64{0, 0, 10.456, 0}),
			mustNewElement(tag.ReferencedSOPSequence, [][]*dicom.Element{{
				mustNewElement(tag.ReferencedSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}),
				mustNewElement(tag.ReferencedSOPInstanceUID, []string{workspaceSOPUID}),
			}}),
		}}),
	)
	group := contentItem("Measurement Group",
		mustNewElement(tag.ContentSequence, [][]*dicom.Element{tracking, note, length}),
	)
	imaging := contentItem("Imaging Measurements",
		mustNewElement(tag.ContentSequence, [][]*dicom.Element{group}),
	)

	ds := dicom.Dataset{Elements: []*dicom.Element{
		mustNewElement(tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.88.33"}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{"1.2.840.113.7"}),
		mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.88.33"}),
		mustNewElement(tag.SOPInstanceUID, []string{"1.2.840.113.7"}),
		mustNewElement(tag.StudyInstanceUID, []string{workspaceStudyUID}),
		mustNewElement(tag.SeriesInstanceUID, []string{"1.2.840.5"}),
		mustNewElement(tag.Modality, []string{"SR"}),
		mustNewElement(tag.ContentSequence, [][]*dicom.Element{imaging}),
	}}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return dicom.Write(f, ds)
}

// contentItem builds an SR content item carrying the given concept name.
func contentItem(meaning string, elems ...*dicom.Element) []*dicom.Element {
	item := []*dicom.Element{
		mustNewElement(tag.ConceptNameCodeSequence, [][]*dicom.Element{{
			mustNewElement(tag.CodeValue, []string{"125007"}),
			mustNewElement(tag.CodingSchemeDesignator, []string{"DCM"}),
			mustNewElement(tag.CodeMeaning, []string{meaning}),
		}}),
	}
	return append(item, elems...)
}

func numericItem(name, value, unit string, nested ...*dicom.Element) []*dicom.Element {
	item := contentItem(name,
		mustNewElement(tag.MeasuredValueSequence, [][]*dicom.Element{{
			mustNewElement(tag.NumericValue, []string{value}),
			mustNewElement(tag.MeasurementUnitsCodeSequence, [][]*dicom.Element{{
				mustNewElement(tag.CodeValue, []string{unit}),
				mustNewElement(tag.CodingSchemeDesignator, []string{"UCUM"}),
				mustNewElement(tag.CodeMeaning, []string{unit}),
			}}),
		}}),
	)
	return append(item, nested...)
}

func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(err)
	}
	return elem
}

// splitArgs splits a command line string into arguments
func splitArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false

	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}
