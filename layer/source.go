package layer

import (
	"github.com/gogpu/mapgl"
)

// VectorSource stores point features in insertion order. Iteration
// order is stable: Features returns features in the order they were
// added, which is also the tie-break order for equal-distance hits.
type VectorSource struct {
	features []*mapgl.Feature
	byUID    map[uint64]int
	revision uint64
	wrapX    bool
}

var _ mapgl.Source = (*VectorSource)(nil)

// SourceOption configures a VectorSource.
type SourceOption func(*VectorSource)

// WithWrapX makes coordinate queries against this source use the
// wrap-adjusted coordinate on horizontally wrapping projections.
func WithWrapX() SourceOption {
	return func(s *VectorSource) { s.wrapX = true }
}

// NewVectorSource creates an empty source.
func NewVectorSource(opts ...SourceOption) *VectorSource {
	s := &VectorSource{byUID: make(map[uint64]int)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddFeature appends a feature. Adding a feature that is already in the
// source is a no-op.
func (s *VectorSource) AddFeature(f *mapgl.Feature) {
	if f == nil {
		return
	}
	if _, ok := s.byUID[f.UID()]; ok {
		return
	}
	s.byUID[f.UID()] = len(s.features)
	s.features = append(s.features, f)
	s.revision++
}

// AddFeatures appends several features.
func (s *VectorSource) AddFeatures(features []*mapgl.Feature) {
	for _, f := range features {
		s.AddFeature(f)
	}
}

// RemoveFeature removes a feature, preserving the order of the rest.
// It reports whether the feature was present.
func (s *VectorSource) RemoveFeature(f *mapgl.Feature) bool {
	if f == nil {
		return false
	}
	i, ok := s.byUID[f.UID()]
	if !ok {
		return false
	}
	delete(s.byUID, f.UID())
	s.features = append(s.features[:i], s.features[i+1:]...)
	for j := i; j < len(s.features); j++ {
		s.byUID[s.features[j].UID()] = j
	}
	s.revision++
	return true
}

// GetFeatureByUID returns the feature with the given UID, or nil.
func (s *VectorSource) GetFeatureByUID(uid uint64) *mapgl.Feature {
	i, ok := s.byUID[uid]
	if !ok {
		return nil
	}
	return s.features[i]
}

// Clear removes all features.
func (s *VectorSource) Clear() {
	if len(s.features) == 0 {
		return
	}
	s.features = nil
	s.byUID = make(map[uint64]int)
	s.revision++
}

// Len returns the number of features.
func (s *VectorSource) Len() int {
	return len(s.features)
}

// Features returns the feature slice in insertion order. Callers must
// not mutate it.
func (s *VectorSource) Features() []*mapgl.Feature {
	return s.features
}

// Revision returns the change counter. It increases on every mutation,
// so renderers can cheaply detect stale vertex buffers.
func (s *VectorSource) Revision() uint64 {
	return s.revision
}

// WrapX reports whether queries should use the wrap-adjusted
// coordinate.
func (s *VectorSource) WrapX() bool {
	return s.wrapX
}
