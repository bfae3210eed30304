package annotations

import (
	"testing"

	"github.com/mrsinham/measurelink/internal/measure"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func testAnnotation(uid string) *measure.RawAnnotation {
	return &measure.RawAnnotation{
		AnnotationUID: uid,
		Metadata:      measure.AnnotationMetadata{ToolName: measure.ToolLength},
		Data:          &measure.AnnotationData{Label: "lesion " + uid},
	}
}

func TestAppendAndGet(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append("image-1", measure.ToolLength, testAnnotation("a1")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	e := s.Get("a1")
	if e == nil {
		t.Fatal("Get(a1) = nil after Append")
	}
	if e.ImageReference != "image-1" || e.ToolType != measure.ToolLength {
		t.Errorf("entry keys = %q/%q", e.ImageReference, e.ToolType)
	}
	if e.Annotation.Data.Label != "lesion a1" {
		t.Errorf("Label = %q", e.Annotation.Data.Label)
	}
	if s.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
}

func TestAppendRejectsMissingUID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append("image-1", measure.ToolLength, nil); err == nil {
		t.Error("Append(nil) expected an error")
	}
	if err := s.Append("image-1", measure.ToolLength, &measure.RawAnnotation{}); err == nil {
		t.Error("Append without uid expected an error")
	}
}

func TestAppendSameUIDReplaces(t *testing.T) {
	s := newTestStore(t)
	first := testAnnotation("a1")
	if err := s.Append("image-1", measure.ToolLength, first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	replacement := testAnnotation("a1")
	replacement.Data.Label = "updated"
	if err := s.Append("image-1", measure.ToolLength, replacement); err != nil {
		t.Fatalf("Append replacement: %v", err)
	}

	anns, err := s.ForReference("image-1", measure.ToolLength)
	if err != nil {
		t.Fatalf("ForReference: %v", err)
	}
	if len(anns) != 1 {
		t.Fatalf("ForReference returned %d annotations, want the replaced single entry", len(anns))
	}
	if anns[0].Data.Label != "updated" {
		t.Errorf("Label = %q, want updated", anns[0].Data.Label)
	}
}

func TestForReferenceKeysByImageAndTool(t *testing.T) {
	s := newTestStore(t)
	mustAppend := func(ref, tool, uid string) {
		t.Helper()
		if err := s.Append(ref, tool, testAnnotation(uid)); err != nil {
			t.Fatalf("Append(%s): %v", uid, err)
		}
	}
	mustAppend("image-1", measure.ToolLength, "a1")
	mustAppend("image-1", measure.ToolLength, "a2")
	mustAppend("image-1", measure.ToolProbe, "a3")
	mustAppend("image-2", measure.ToolLength, "a4")

	anns, err := s.ForReference("image-1", measure.ToolLength)
	if err != nil {
		t.Fatalf("ForReference: %v", err)
	}
	if len(anns) != 2 {
		t.Errorf("ForReference(image-1, Length) = %d annotations, want 2", len(anns))
	}

	anns, err = s.ForReference("image-2", measure.ToolProbe)
	if err != nil {
		t.Fatalf("ForReference: %v", err)
	}
	if len(anns) != 0 {
		t.Errorf("ForReference(image-2, Probe) = %d annotations, want none", len(anns))
	}
}

func TestLockedAndHiddenFlags(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append("image-1", measure.ToolLength, testAnnotation("a1")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if s.IsLocked("a1") {
		t.Error("new annotation should be unlocked")
	}
	if !s.IsVisible("a1") {
		t.Error("new annotation should be visible")
	}

	if err := s.SetLocked("a1", true); err != nil {
		t.Fatalf("SetLocked: %v", err)
	}
	if err := s.SetHidden("a1", true); err != nil {
		t.Fatalf("SetHidden: %v", err)
	}
	if !s.IsLocked("a1") || s.IsVisible("a1") {
		t.Errorf("flags after set: locked=%v visible=%v", s.IsLocked("a1"), s.IsVisible("a1"))
	}

	if err := s.SetLocked("a1", false); err != nil {
		t.Fatalf("SetLocked(false): %v", err)
	}
	if s.IsLocked("a1") {
		t.Error("unlock did not take effect")
	}

	if err := s.SetLocked("missing", true); err == nil {
		t.Error("SetLocked on unknown uid expected an error")
	}
}

func TestFlagsForUnknownAnnotation(t *testing.T) {
	s := newTestStore(t)
	if s.IsLocked("nope") {
		t.Error("unknown annotation must report unlocked")
	}
	if !s.IsVisible("nope") {
		t.Error("unknown annotation must report visible")
	}
}
