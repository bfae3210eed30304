package services

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/measurelink/internal/measure"
)

// SOPInstanceAttributes is the resolved reference context of an annotation.
// Fields stay empty when a strategy chain yields nothing; callers decide per
// tool whether a partial result is acceptable.
type SOPInstanceAttributes struct {
	SOPInstanceUID      string
	SeriesInstanceUID   string
	StudyInstanceUID    string
	FrameOfReferenceUID string
	FrameNumber         int
}

// MetadataStore indexes per-instance metadata by image id. Instances may be
// registered directly or as parsed DICOM datasets.
type MetadataStore struct {
	mu        sync.RWMutex
	instances map[string]Instance
	datasets  map[string]*dicom.Dataset
}

// NewMetadataStore builds an empty metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		instances: make(map[string]Instance),
		datasets:  make(map[string]*dicom.Dataset),
	}
}

// AddInstance registers instance metadata under its image id.
func (m *MetadataStore) AddInstance(inst Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[inst.ImageID] = inst
}

// AddDataset registers a parsed DICOM dataset under an image id, for
// instances whose metadata was never flattened into an Instance record.
func (m *MetadataStore) AddDataset(imageID string, ds *dicom.Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[imageID] = ds
}

// Instance returns the registered instance for an image id.
func (m *MetadataStore) Instance(imageID string) (Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[imageID]
	return inst, ok
}

// Dataset returns the registered dataset for an image id.
func (m *MetadataStore) Dataset(imageID string) (*dicom.Dataset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.datasets[imageID]
	return ds, ok
}

// SOPResolver resolves SOP instance attributes for a referenced image id.
type SOPResolver interface {
	Resolve(referencedImageID string, viewports ViewportService, ann *measure.RawAnnotation) SOPInstanceAttributes
}

// wadorsPattern matches study/series/instance UIDs inside a WADO-RS style
// image id. Used as the last extraction strategy.
var wadorsPattern = regexp.MustCompile(`/studies/([0-9.]+)/series/([0-9.]+)/instances/([0-9.]+)`)

// framePattern matches a frame selector at the end of an image id, either as
// a query parameter or a /frames/<n> path segment.
var framePattern = regexp.MustCompile(`(?:[?&]frame=|/frames/)(\d+)`)

// Resolver resolves SOP attributes through an ordered list of extraction
// strategies: direct instance lookup, dataset element lookup, dataset string
// accessor, then a regex over the serialized image id. The first strategy
// that yields a value wins, field by field.
type Resolver struct {
	Metadata *MetadataStore
}

// NewResolver builds a resolver over a metadata store.
func NewResolver(metadata *MetadataStore) *Resolver {
	return &Resolver{Metadata: metadata}
}

// Resolve resolves the reference context for a referenced image id. A missing
// image id means a volume-referenced annotation: the resolver falls back to
// the viewport's current image when a viewport service is supplied, and
// otherwise returns only what the annotation itself carries. Partial results
// are returned rather than errors.
func (r *Resolver) Resolve(referencedImageID string, viewports ViewportService, ann *measure.RawAnnotation) SOPInstanceAttributes {
	attrs := SOPInstanceAttributes{FrameNumber: 1}
	if ann != nil {
		attrs.FrameOfReferenceUID = ann.Metadata.FrameOfReferenceUID
	}

	imageID := referencedImageID
	if imageID == "" && viewports != nil && ann != nil {
		imageID = viewports.GetCurrentImageID(annViewportHint(ann))
	}
	if imageID == "" {
		return attrs
	}

	if n := frameNumberFromImageID(imageID); n > 0 {
		attrs.FrameNumber = n
	}

	for _, strategy := range []func(string, *SOPInstanceAttributes) bool{
		r.fromInstance,
		r.fromDatasetElements,
		r.fromDatasetStrings,
		fromImageIDPattern,
	} {
		if strategy(imageID, &attrs) {
			return attrs
		}
	}
	return attrs
}

// annViewportHint returns the viewport an annotation was drawn in. The
// normalized event shape stores it on the volume id for volume annotations.
func annViewportHint(ann *measure.RawAnnotation) string {
	return ann.Metadata.VolumeID
}

// complete reports whether the attributes needed by mappers are all present.
func (a *SOPInstanceAttributes) complete() bool {
	return a.SOPInstanceUID != "" && a.SeriesInstanceUID != "" && a.StudyInstanceUID != ""
}

func (r *Resolver) fromInstance(imageID string, attrs *SOPInstanceAttributes) bool {
	if r.Metadata == nil {
		return false
	}
	inst, ok := r.Metadata.Instance(strings.TrimSuffix(imageID, frameSuffix(imageID)))
	if !ok {
		inst, ok = r.Metadata.Instance(imageID)
	}
	if !ok {
		return false
	}
	attrs.SOPInstanceUID = inst.SOPInstanceUID
	attrs.SeriesInstanceUID = inst.SeriesInstanceUID
	attrs.StudyInstanceUID = inst.StudyInstanceUID
	if inst.FrameOfReferenceUID != "" {
		attrs.FrameOfReferenceUID = inst.FrameOfReferenceUID
	}
	return attrs.complete()
}

func (r *Resolver) fromDatasetElements(imageID string, attrs *SOPInstanceAttributes) bool {
	ds, ok := r.dataset(imageID)
	if !ok {
		return false
	}
	fill := func(t tag.Tag, dst *string) {
		if *dst != "" {
			return
		}
		elem, err := ds.FindElementByTag(t)
		if err != nil || elem == nil {
			return
		}
		if vals, ok := elem.Value.GetValue().([]string); ok && len(vals) > 0 {
			*dst = vals[0]
		}
	}
	fill(tag.SOPInstanceUID, &attrs.SOPInstanceUID)
	fill(tag.SeriesInstanceUID, &attrs.SeriesInstanceUID)
	fill(tag.StudyInstanceUID, &attrs.StudyInstanceUID)
	fill(tag.FrameOfReferenceUID, &attrs.FrameOfReferenceUID)
	return attrs.complete()
}

// fromDatasetStrings is the tolerant variant of the dataset strategy: it goes
// through the element's string rendering, which survives odd VRs.
func (r *Resolver) fromDatasetStrings(imageID string, attrs *SOPInstanceAttributes) bool {
	ds, ok := r.dataset(imageID)
	if !ok {
		return false
	}
	fill := func(t tag.Tag, dst *string) {
		if *dst != "" {
			return
		}
		elem, err := ds.FindElementByTag(t)
		if err != nil || elem == nil {
			return
		}
		if s := strings.Trim(elem.Value.String(), " []"); s != "" {
			*dst = s
		}
	}
	fill(tag.SOPInstanceUID, &attrs.SOPInstanceUID)
	fill(tag.SeriesInstanceUID, &attrs.SeriesInstanceUID)
	fill(tag.StudyInstanceUID, &attrs.StudyInstanceUID)
	fill(tag.FrameOfReferenceUID, &attrs.FrameOfReferenceUID)
	return attrs.complete()
}

func (r *Resolver) dataset(imageID string) (*dicom.Dataset, bool) {
	if r.Metadata == nil {
		return nil, false
	}
	if ds, ok := r.Metadata.Dataset(imageID); ok {
		return ds, true
	}
	return r.Metadata.Dataset(strings.TrimSuffix(imageID, frameSuffix(imageID)))
}

func fromImageIDPattern(imageID string, attrs *SOPInstanceAttributes) bool {
	m := wadorsPattern.FindStringSubmatch(imageID)
	if m == nil {
		return false
	}
	if attrs.StudyInstanceUID == "" {
		attrs.StudyInstanceUID = m[1]
	}
	if attrs.SeriesInstanceUID == "" {
		attrs.SeriesInstanceUID = m[2]
	}
	if attrs.SOPInstanceUID == "" {
		attrs.SOPInstanceUID = m[3]
	}
	return attrs.complete()
}

func frameNumberFromImageID(imageID string) int {
	m := framePattern.FindStringSubmatch(imageID)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func frameSuffix(imageID string) string {
	m := framePattern.FindStringSubmatch(imageID)
	if m == nil {
		return ""
	}
	idx := strings.Index(imageID, m[0])
	if idx < 0 {
		return ""
	}
	return imageID[idx:]
}
