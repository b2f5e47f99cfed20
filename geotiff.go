package dem

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	"golang.org/x/image/tiff/lzw"
)

const (
	compressionNone = 1
	compressionLZW  = 5

	predictorNone       = 1
	predictorHorizontal = 2

	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3

	defaultMaxPixels = 1 << 26
)

var errShortRead = errors.New("short read")

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal an
// IFD.
type geoTIFFIFD struct {
	ImageWidth          uint32   `tiff:"field,tag=256"`
	ImageLength         uint32   `tiff:"field,tag=257"`
	BitsPerSample       uint16   `tiff:"field,tag=258"`
	Compression         uint16   `tiff:"field,tag=259"`
	StripOffsets        []uint64 `tiff:"field,tag=273"`
	SamplesPerPixel     uint16   `tiff:"field,tag=277"`
	RowsPerStrip        uint32   `tiff:"field,tag=278"`
	StripByteCounts     []uint64 `tiff:"field,tag=279"`
	PlanarConfiguration uint16   `tiff:"field,tag=284"`
	Predictor           uint16   `tiff:"field,tag=317"`
	TileWidth           uint32   `tiff:"field,tag=322"`
	TileLength          uint32   `tiff:"field,tag=323"`
	TileOffsets         []uint64 `tiff:"field,tag=324"`
	TileByteCounts      []uint64 `tiff:"field,tag=325"`
	SampleFormat        uint16   `tiff:"field,tag=339"`
	GDALNoData          string   `tiff:"field,tag=42113"`
}

// A DecodeOption sets an option on a GeoTIFF decoder.
type DecodeOption func(*geoTIFFDecoder)

type geoTIFFDecoder struct {
	noDataFill float32
	maxPixels  int

	order          binary.ByteOrder
	width          int
	height         int
	bytesPerSample int
	compression    int
	predictor      int
	convert        func([]byte) float64
	noData         float64
	hasNoData      bool
}

// A chunk is a strip or a tile.
type chunk struct {
	x, y          int
	width, height int
	offset        uint64
	byteCount     uint64
}

// WithNoDataFill sets the value that replaces no-data samples.
func WithNoDataFill(noDataFill float32) DecodeOption {
	return func(d *geoTIFFDecoder) {
		d.noDataFill = noDataFill
	}
}

// WithMaxPixels sets the largest image, in pixels, that will be decoded.
func WithMaxPixels(maxPixels int) DecodeOption {
	return func(d *geoTIFFDecoder) {
		d.maxPixels = maxPixels
	}
}

// DecodeGeoTIFF decodes the first image of the single-band GeoTIFF in data.
// Samples equal to the GDAL no-data value are replaced by zero, or by the
// value set with WithNoDataFill.
func DecodeGeoTIFF(data []byte, options ...DecodeOption) (RawRaster, error) {
	d := &geoTIFFDecoder{
		maxPixels: defaultMaxPixels,
	}
	for _, option := range options {
		option(d)
	}

	tiffTIFF, err := tiff.Parse(bytes.NewReader(data), tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return RawRaster{}, err
	}
	if len(tiffTIFF.IFDs()) == 0 {
		return RawRaster{}, errors.New("no IFDs")
	}
	switch tiffTIFF.Order() {
	case "II":
		d.order = binary.LittleEndian
	case "MM":
		d.order = binary.BigEndian
	default:
		return RawRaster{}, fmt.Errorf("%w: byte order %q", errors.ErrUnsupported, tiffTIFF.Order())
	}

	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return RawRaster{}, err
	}

	chunks, err := d.init(&ifd)
	if err != nil {
		return RawRaster{}, err
	}

	values := make([]float32, d.width*d.height)
	for _, c := range chunks {
		if err := d.decodeChunk(data, c, values); err != nil {
			return RawRaster{}, err
		}
	}
	return RawRaster{
		Values: values,
		Width:  d.width,
		Height: d.height,
	}, nil
}

// init validates ifd and returns the chunks that make up the image.
func (d *geoTIFFDecoder) init(ifd *geoTIFFIFD) ([]chunk, error) {
	if ifd.SamplesPerPixel > 1 ||
		ifd.PlanarConfiguration > 1 ||
		ifd.BitsPerSample%8 != 0 {
		return nil, fmt.Errorf("%w: %d samples per pixel, planar configuration %d, %d bits per sample",
			errors.ErrUnsupported, ifd.SamplesPerPixel, ifd.PlanarConfiguration, ifd.BitsPerSample)
	}

	d.width = int(ifd.ImageWidth)
	d.height = int(ifd.ImageLength)
	if d.width == 0 || d.height == 0 {
		return nil, fmt.Errorf("%w: %dx%d image", ErrEmptyGrid, d.width, d.height)
	}
	if d.width > d.maxPixels/d.height {
		return nil, fmt.Errorf("%w: %dx%d image exceeds %d pixels", errors.ErrUnsupported, d.width, d.height, d.maxPixels)
	}

	d.compression = max(int(ifd.Compression), compressionNone)
	if d.compression != compressionNone && d.compression != compressionLZW {
		return nil, fmt.Errorf("%w: compression %d", errors.ErrUnsupported, d.compression)
	}
	d.predictor = max(int(ifd.Predictor), predictorNone)
	if d.predictor != predictorNone && d.predictor != predictorHorizontal {
		return nil, fmt.Errorf("%w: predictor %d", errors.ErrUnsupported, d.predictor)
	}

	sampleFormat := max(int(ifd.SampleFormat), sampleFormatUint)
	if d.predictor == predictorHorizontal && sampleFormat == sampleFormatFloat {
		return nil, fmt.Errorf("%w: horizontal predictor with floating point samples", errors.ErrUnsupported)
	}
	d.bytesPerSample = int(ifd.BitsPerSample) / 8
	if d.convert = sampleConverter(d.order, sampleFormat, d.bytesPerSample); d.convert == nil {
		return nil, fmt.Errorf("%w: sample format %d with %d bits per sample", errors.ErrUnsupported, sampleFormat, ifd.BitsPerSample)
	}

	if noData := strings.Trim(ifd.GDALNoData, "\x00 "); noData != "" {
		value, err := strconv.ParseFloat(noData, 64)
		if err != nil {
			return nil, fmt.Errorf("GDAL no-data value %q: %w", noData, err)
		}
		d.noData = value
		d.hasNoData = true
	}

	if ifd.TileWidth != 0 && ifd.TileLength != 0 {
		return d.tileChunks(ifd)
	}
	return d.stripChunks(ifd)
}

func (d *geoTIFFDecoder) stripChunks(ifd *geoTIFFIFD) ([]chunk, error) {
	rowsPerStrip := int(ifd.RowsPerStrip)
	if rowsPerStrip == 0 || rowsPerStrip > d.height {
		rowsPerStrip = d.height
	}
	stripsPerImage := (d.height + rowsPerStrip - 1) / rowsPerStrip
	if len(ifd.StripOffsets) != stripsPerImage || len(ifd.StripByteCounts) != stripsPerImage {
		return nil, errors.New("incorrect number of strip byte counts or offsets")
	}
	chunks := make([]chunk, stripsPerImage)
	for i := range chunks {
		y := i * rowsPerStrip
		chunks[i] = chunk{
			y:         y,
			width:     d.width,
			height:    min(rowsPerStrip, d.height-y),
			offset:    ifd.StripOffsets[i],
			byteCount: ifd.StripByteCounts[i],
		}
	}
	return chunks, nil
}

func (d *geoTIFFDecoder) tileChunks(ifd *geoTIFFIFD) ([]chunk, error) {
	tileWidth := int(ifd.TileWidth)
	tileLength := int(ifd.TileLength)
	if tileWidth > d.maxPixels/tileLength {
		return nil, fmt.Errorf("%w: %dx%d tile exceeds %d pixels", errors.ErrUnsupported, tileWidth, tileLength, d.maxPixels)
	}
	tilesAcross := (d.width + tileWidth - 1) / tileWidth
	tilesDown := (d.height + tileLength - 1) / tileLength
	tilesPerImage := tilesAcross * tilesDown
	if len(ifd.TileOffsets) != tilesPerImage || len(ifd.TileByteCounts) != tilesPerImage {
		return nil, errors.New("incorrect number of tile byte counts or offsets")
	}
	chunks := make([]chunk, 0, tilesPerImage)
	for r := range tilesDown {
		for c := range tilesAcross {
			tileIndex := c + tilesAcross*r
			chunks = append(chunks, chunk{
				x:         c * tileWidth,
				y:         r * tileLength,
				width:     tileWidth,
				height:    tileLength,
				offset:    ifd.TileOffsets[tileIndex],
				byteCount: ifd.TileByteCounts[tileIndex],
			})
		}
	}
	return chunks, nil
}

// decodeChunk decodes c from data into values.
func (d *geoTIFFDecoder) decodeChunk(data []byte, c chunk, values []float32) error {
	if c.offset > uint64(len(data)) || c.byteCount > uint64(len(data))-c.offset {
		return errShortRead
	}
	chunkData, err := d.decompressChunkData(data[c.offset:c.offset+c.byteCount], c.width*c.height*d.bytesPerSample)
	if err != nil {
		return err
	}
	if d.predictor == predictorHorizontal {
		d.undoHorizontalPredictor(chunkData, c.width)
	}

	rowBytes := c.width * d.bytesPerSample
	for y := range min(c.height, d.height-c.y) {
		row := chunkData[y*rowBytes : (y+1)*rowBytes]
		for x := range min(c.width, d.width-c.x) {
			values[(c.y+y)*d.width+c.x+x] = d.sample(row[x*d.bytesPerSample : (x+1)*d.bytesPerSample])
		}
	}
	return nil
}

// decompressChunkData returns the first n bytes of the decompressed
// compressedData.
func (d *geoTIFFDecoder) decompressChunkData(compressedData []byte, n int) ([]byte, error) {
	switch d.compression {
	case compressionLZW:
		chunkData := make([]byte, n)
		r := lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
		defer r.Close()
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return nil, err
		}
		return chunkData, nil
	default:
		if len(compressedData) < n {
			return nil, errShortRead
		}
		return bytes.Clone(compressedData[:n]), nil
	}
}

// undoHorizontalPredictor reverses horizontal differencing in place.
func (d *geoTIFFDecoder) undoHorizontalPredictor(chunkData []byte, width int) {
	n := d.bytesPerSample
	rowBytes := width * n
	for start := 0; start+rowBytes <= len(chunkData); start += rowBytes {
		row := chunkData[start : start+rowBytes]
		for i := n; i < len(row); i += n {
			prev, cur := row[i-n:i], row[i:i+n]
			switch n {
			case 1:
				cur[0] += prev[0]
			case 2:
				d.order.PutUint16(cur, d.order.Uint16(cur)+d.order.Uint16(prev))
			case 4:
				d.order.PutUint32(cur, d.order.Uint32(cur)+d.order.Uint32(prev))
			case 8:
				d.order.PutUint64(cur, d.order.Uint64(cur)+d.order.Uint64(prev))
			}
		}
	}
}

// sample converts the raw bytes of a single sample.
func (d *geoTIFFDecoder) sample(b []byte) float32 {
	value := d.convert(b)
	if d.hasNoData && (float32(value) == float32(d.noData) || math.IsNaN(d.noData) && math.IsNaN(value)) {
		return d.noDataFill
	}
	return float32(value)
}

// sampleConverter returns a function that converts a single raw sample to a
// float64, or nil if the sample format is not supported.
func sampleConverter(order binary.ByteOrder, sampleFormat, bytesPerSample int) func([]byte) float64 {
	switch {
	case sampleFormat == sampleFormatUint && bytesPerSample == 1:
		return func(b []byte) float64 { return float64(b[0]) }
	case sampleFormat == sampleFormatUint && bytesPerSample == 2:
		return func(b []byte) float64 { return float64(order.Uint16(b)) }
	case sampleFormat == sampleFormatUint && bytesPerSample == 4:
		return func(b []byte) float64 { return float64(order.Uint32(b)) }
	case sampleFormat == sampleFormatInt && bytesPerSample == 1:
		return func(b []byte) float64 { return float64(int8(b[0])) }
	case sampleFormat == sampleFormatInt && bytesPerSample == 2:
		return func(b []byte) float64 { return float64(int16(order.Uint16(b))) }
	case sampleFormat == sampleFormatInt && bytesPerSample == 4:
		return func(b []byte) float64 { return float64(int32(order.Uint32(b))) }
	case sampleFormat == sampleFormatFloat && bytesPerSample == 4:
		return func(b []byte) float64 { return float64(math.Float32frombits(order.Uint32(b))) }
	case sampleFormat == sampleFormatFloat && bytesPerSample == 8:
		return func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }
	default:
		return nil
	}
}
