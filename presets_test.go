package dem

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/alecthomas/assert/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestPresetStore(t *testing.T) *PresetStore {
	t.Helper()
	fsys := fstest.MapFS{
		"coast.tif": &fstest.MapFile{
			Data: encodeTestTIFF(testTIFF{
				order:         binary.LittleEndian,
				width:         4,
				height:        3,
				bitsPerSample: 16,
				sampleFormat:  sampleFormatInt,
				gdalNoData:    "-32768",
				pixelData: int16PixelData(binary.LittleEndian,
					9, 0, 12, 9,
					9, -32768, 0, 9,
					9, 0, 30, 9,
				),
			}),
		},
		"hills.tif": &fstest.MapFile{
			Data: encodeGray16TIFF(t, 2, 2, []uint16{100, 200, 300, 400}, false),
		},
	}
	s, err := NewPresetStore(fsys, WithPresets(
		Preset{Name: "coast", Center: GeoPoint{Lat: -33.752, Lon: 151.297}, SideMeters: 20000, Filename: "coast.tif"},
		Preset{Name: "hills", Center: GeoPoint{Lat: 45.5, Lon: 6.7}, SideMeters: 1000, Filename: "hills.tif"},
		Preset{Name: "missing", Center: GeoPoint{}, SideMeters: 1000, Filename: "missing.tif"},
	))
	assert.NoError(t, err)
	return s
}

func TestPresetStoreLoad(t *testing.T) {
	s := newTestPresetStore(t)

	for _, tc := range []struct {
		name       string
		applyDepth bool
		expected   *NormalizedDEM
	}{
		{
			name: "coast",
			expected: &NormalizedDEM{
				Elevations: []float32{
					9, 0, 12,
					9, 0, 0,
					9, 0, 30,
				},
				Size: 3,
			},
		},
		{
			name:       "coast",
			applyDepth: true,
			expected: &NormalizedDEM{
				Elevations: []float32{
					9, -1, 12,
					9, -1, -1,
					9, -1, 30,
				},
				Size: 3,
			},
		},
		{
			name: "hills",
			expected: &NormalizedDEM{
				Elevations: []float32{100, 200, 300, 400},
				Size:       2,
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := s.Load(t.Context(), tc.name, tc.applyDepth)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestPresetStoreCache(t *testing.T) {
	s := newTestPresetStore(t)

	hits := testutil.ToFloat64(presetRasterCacheHits)
	misses := testutil.ToFloat64(presetRasterCacheMisses)
	normalizations := testutil.ToFloat64(presetNormalizations)

	first, err := s.Load(t.Context(), "hills", false)
	assert.NoError(t, err)
	second, err := s.Load(t.Context(), "hills", false)
	assert.NoError(t, err)
	assert.True(t, first == second)
	_, err = s.Load(t.Context(), "hills", true)
	assert.NoError(t, err)

	assert.Equal(t, misses+1, testutil.ToFloat64(presetRasterCacheMisses))
	assert.Equal(t, hits+1, testutil.ToFloat64(presetRasterCacheHits))
	assert.Equal(t, normalizations+2, testutil.ToFloat64(presetNormalizations))
}

func TestPresetStoreErrors(t *testing.T) {
	s := newTestPresetStore(t)

	_, err := s.Load(t.Context(), "atlantis", false)
	assert.IsError(t, err, ErrUnknownPreset)

	_, err = s.Load(t.Context(), "missing", false)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = NewPresetStore(fstest.MapFS{}, WithPresets(
		Preset{Name: "a", Center: GeoPoint{Lat: 10}, SideMeters: 1, Filename: "a.tif"},
		Preset{Name: "a", Center: GeoPoint{Lat: 10}, SideMeters: 1, Filename: "b.tif"},
	))
	assert.Error(t, err)

	_, err = NewPresetStore(fstest.MapFS{}, WithPresets(
		Preset{Name: "pole", Center: GeoPoint{Lat: 90}, SideMeters: 1, Filename: "pole.tif"},
	))
	assert.IsError(t, err, ErrInvalidLatitude)
}

func TestDefaultPresets(t *testing.T) {
	s, err := NewPresetStore(fstest.MapFS{})
	assert.NoError(t, err)
	assert.Equal(t, DefaultPresets, s.Presets())
	for _, name := range []string{"sydney", "uluru", "mauritius"} {
		preset, err := s.Preset(name)
		assert.NoError(t, err)
		assert.Equal(t, 20000.0, preset.SideMeters)
	}
}
