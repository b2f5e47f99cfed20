package dem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/maypok86/otter/v2"
)

var ErrUnknownPreset = errors.New("unknown preset")

// A Preset is a DEM file covering a known area.
type Preset struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	Center     GeoPoint `json:"center"`
	SideMeters float64  `json:"sideMeters"`
	Filename   string   `json:"filename"`
}

// DefaultPresets are the presets of a PresetStore created without
// WithPresets.
var DefaultPresets = []Preset{
	{
		Name:       "sydney",
		Label:      "Sydney",
		Center:     GeoPoint{Lat: -33.752, Lon: 151.297},
		SideMeters: 20000,
		Filename:   "sydney_20km.tif",
	},
	{
		Name:       "uluru",
		Label:      "Uluru",
		Center:     GeoPoint{Lat: -25.346, Lon: 131.036},
		SideMeters: 20000,
		Filename:   "uluru_20km.tif",
	},
	{
		Name:       "mauritius",
		Label:      "Mauritius",
		Center:     GeoPoint{Lat: -20.253, Lon: 57.463},
		SideMeters: 20000,
		Filename:   "mauritius_20km.tif",
	},
}

// BoundingBox returns the bounding box of p.
func (p Preset) BoundingBox() (BoundingBox, error) {
	return NewBoundingBox(p.Center, p.SideMeters)
}

type presetKey struct {
	name       string
	applyDepth bool
}

// A PresetStore loads and normalizes preset DEM files. Decoded rasters and
// normalized DEMs are cached. The returned NormalizedDEMs are shared and
// must not be modified.
type PresetStore struct {
	mutex         sync.Mutex
	fsys          fs.FS
	presets       []Preset
	presetsByName map[string]Preset
	pipeline      *Pipeline
	decodeOptions []DecodeOption
	cacheSize     int
	rasterCache   *lru.Cache[string, RawRaster]
	demCache      *otter.Cache[presetKey, *NormalizedDEM]
}

// A PresetStoreOption sets an option on a PresetStore.
type PresetStoreOption func(*PresetStore)

// NewPresetStore returns a new PresetStore reading files from fsys.
func NewPresetStore(fsys fs.FS, options ...PresetStoreOption) (*PresetStore, error) {
	s := &PresetStore{
		fsys:      fsys,
		pipeline:  defaultPipeline,
		cacheSize: 8,
	}
	for _, option := range slices.Concat(
		[]PresetStoreOption{
			WithPresets(DefaultPresets...),
		},
		options,
	) {
		option(s)
	}

	s.presetsByName = make(map[string]Preset, len(s.presets))
	for _, preset := range s.presets {
		if _, ok := s.presetsByName[preset.Name]; ok {
			return nil, fmt.Errorf("%s: duplicate preset", preset.Name)
		}
		if _, err := preset.BoundingBox(); err != nil {
			return nil, fmt.Errorf("%s: %w", preset.Name, err)
		}
		s.presetsByName[preset.Name] = preset
	}

	var err error
	s.rasterCache, err = lru.NewWithEvict(s.cacheSize, func(name string, _ RawRaster) {
		presetRasterCacheEvictions.Inc()
		Logger().Debug("evicted preset raster", "preset", name)
	})
	if err != nil {
		return nil, err
	}
	s.demCache, err = otter.New(&otter.Options[presetKey, *NormalizedDEM]{
		MaximumSize: 2 * s.cacheSize,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func WithPresets(presets ...Preset) PresetStoreOption {
	return func(s *PresetStore) {
		s.presets = presets
	}
}

// WithRasterCacheSize sets the number of decoded rasters kept in memory.
func WithRasterCacheSize(cacheSize int) PresetStoreOption {
	return func(s *PresetStore) {
		s.cacheSize = cacheSize
	}
}

func WithPresetPipeline(pipeline *Pipeline) PresetStoreOption {
	return func(s *PresetStore) {
		s.pipeline = pipeline
	}
}

func WithPresetDecodeOptions(decodeOptions ...DecodeOption) PresetStoreOption {
	return func(s *PresetStore) {
		s.decodeOptions = decodeOptions
	}
}

// Presets returns s's presets.
func (s *PresetStore) Presets() []Preset {
	return slices.Clone(s.presets)
}

// Preset returns the preset with the given name.
func (s *PresetStore) Preset(name string) (Preset, error) {
	preset, ok := s.presetsByName[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return preset, nil
}

// Load returns the normalized DEM of the named preset.
func (s *PresetStore) Load(ctx context.Context, name string, applyDepth bool) (*NormalizedDEM, error) {
	if _, err := s.Preset(name); err != nil {
		return nil, err
	}
	key := presetKey{name: name, applyDepth: applyDepth}
	return s.demCache.Get(ctx, key, otter.LoaderFunc[presetKey, *NormalizedDEM](s.normalize))
}

// normalize normalizes the preset raster at key.
func (s *PresetStore) normalize(ctx context.Context, key presetKey) (*NormalizedDEM, error) {
	presetNormalizations.Inc()
	raw, err := s.getRasterCached(key.name)
	if err != nil {
		return nil, err
	}
	dem, err := s.pipeline.Normalize(raw, key.applyDepth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key.name, err)
	}
	Logger().DebugContext(ctx, "normalized preset", "preset", key.name, "depth", key.applyDepth, "size", dem.Size)
	return dem, nil
}

// getRaster reads and decodes the raster of the named preset.
func (s *PresetStore) getRaster(name string) (RawRaster, error) {
	preset := s.presetsByName[name]
	data, err := fs.ReadFile(s.fsys, preset.Filename)
	if err != nil {
		return RawRaster{}, err
	}
	raw, err := DecodeGeoTIFF(data, s.decodeOptions...)
	if err != nil {
		return RawRaster{}, fmt.Errorf("%s: %w", preset.Filename, err)
	}
	return raw, nil
}

// getRasterCached returns the raster of the named preset, using the cache if
// possible.
func (s *PresetStore) getRasterCached(name string) (RawRaster, error) {
	if raw, ok := s.rasterCache.Get(name); ok {
		presetRasterCacheHits.Inc()
		return raw, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if raw, ok := s.rasterCache.Get(name); ok {
		presetRasterCacheHits.Inc()
		return raw, nil
	}

	presetRasterCacheMisses.Inc()

	raw, err := s.getRaster(name)
	if err != nil {
		return RawRaster{}, err
	}
	s.rasterCache.Add(name, raw)
	return raw, nil
}
