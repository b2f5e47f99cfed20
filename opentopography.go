package dem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultOpenTopographyBaseURL = "https://portal.opentopography.org"
	DefaultDEMType               = "SRTMGL1"
)

var ErrMissingAPIKey = errors.New("missing API key")

// An HTTPStatusError is returned when the elevation data service responds
// with an error status.
type HTTPStatusError struct {
	Code int
	Body string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("elevation data service: %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// An OpenTopographyClient fetches GeoTIFF DEMs from the OpenTopography global
// DEM API.
type OpenTopographyClient struct {
	apiKey        string
	baseURL       string
	demType       string
	httpClient    *http.Client
	maxAttempts   int
	backoff       time.Duration
	decodeOptions []DecodeOption
}

// A ClientOption sets an option on an OpenTopographyClient.
type ClientOption func(*OpenTopographyClient)

// NewOpenTopographyClient returns a new OpenTopographyClient.
func NewOpenTopographyClient(apiKey string, options ...ClientOption) (*OpenTopographyClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	c := &OpenTopographyClient{
		apiKey:      apiKey,
		baseURL:     DefaultOpenTopographyBaseURL,
		demType:     DefaultDEMType,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *OpenTopographyClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithDEMType(demType string) ClientOption {
	return func(c *OpenTopographyClient) {
		c.demType = demType
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *OpenTopographyClient) {
		c.httpClient = httpClient
	}
}

func WithMaxAttempts(maxAttempts int) ClientOption {
	return func(c *OpenTopographyClient) {
		c.maxAttempts = max(maxAttempts, 1)
	}
}

func WithBackoff(backoff time.Duration) ClientOption {
	return func(c *OpenTopographyClient) {
		c.backoff = backoff
	}
}

// WithDecodeOptions sets the options used to decode fetched GeoTIFFs.
func WithDecodeOptions(decodeOptions ...DecodeOption) ClientOption {
	return func(c *OpenTopographyClient) {
		c.decodeOptions = decodeOptions
	}
}

// DEMType returns c's DEM type.
func (c *OpenTopographyClient) DEMType() string {
	return c.demType
}

// URL returns the URL of the GeoTIFF covering bbox.
func (c *OpenTopographyClient) URL(bbox BoundingBox) string {
	return c.url(bbox, c.demType)
}

func (c *OpenTopographyClient) url(bbox BoundingBox, demType string) string {
	values := url.Values{}
	values.Set("demtype", demType)
	values.Set("south", formatDegrees(bbox.South))
	values.Set("north", formatDegrees(bbox.North))
	values.Set("west", formatDegrees(bbox.West))
	values.Set("east", formatDegrees(bbox.East))
	values.Set("outputFormat", "GTiff")
	values.Set("API_Key", c.apiKey)
	return c.baseURL + "/API/globaldem?" + values.Encode()
}

// FetchGeoTIFF returns the GeoTIFF covering bbox.
func (c *OpenTopographyClient) FetchGeoTIFF(ctx context.Context, bbox BoundingBox) ([]byte, error) {
	return c.FetchGeoTIFFWithDEMType(ctx, bbox, c.demType)
}

// FetchGeoTIFFWithDEMType returns the GeoTIFF of the given DEM type covering
// bbox.
func (c *OpenTopographyClient) FetchGeoTIFFWithDEMType(ctx context.Context, bbox BoundingBox, demType string) ([]byte, error) {
	if !bbox.Valid() {
		return nil, fmt.Errorf("invalid bounding box: %s", bbox)
	}
	rawURL := c.url(bbox, demType)
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "image/tiff")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read GeoTIFF: %w", err)
	}
	Logger().DebugContext(ctx, "fetched GeoTIFF", "bbox", bbox.String(), "demtype", demType, "bytes", len(data))
	return data, nil
}

// FetchRaster fetches and decodes the GeoTIFF covering bbox.
func (c *OpenTopographyClient) FetchRaster(ctx context.Context, bbox BoundingBox) (RawRaster, error) {
	data, err := c.FetchGeoTIFF(ctx, bbox)
	if err != nil {
		return RawRaster{}, err
	}
	raw, err := DecodeGeoTIFF(data, c.decodeOptions...)
	if err != nil {
		return RawRaster{}, fmt.Errorf("decode GeoTIFF: %w", err)
	}
	return raw, nil
}

func (c *OpenTopographyClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	upstreamRequests.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &HTTPStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries network errors and transient error statuses with
// exponential backoff until ctx is done.
func (c *OpenTopographyClient) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isTransient(err) || attempt == c.maxAttempts {
			return nil, lastErr
		}

		Logger().WarnContext(ctx, "retrying elevation data request", "attempt", attempt, "backoff", backoff, "err", err)
		upstreamRetries.Inc()
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}

func isTransient(err error) bool {
	var httpStatusError *HTTPStatusError
	if errors.As(err, &httpStatusError) {
		switch httpStatusError.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func formatDegrees(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
