package dem_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-dem"
)

func TestNewOpenTopographyClientMissingAPIKey(t *testing.T) {
	_, err := dem.NewOpenTopographyClient(" ")
	assert.IsError(t, err, dem.ErrMissingAPIKey)
}

func TestOpenTopographyClientURL(t *testing.T) {
	client, err := dem.NewOpenTopographyClient("secret", dem.WithDEMType("COP30"))
	assert.NoError(t, err)
	bbox := dem.BoundingBox{South: -33.5, North: -33.25, West: 151, East: 151.125}
	u, err := url.Parse(client.URL(bbox))
	assert.NoError(t, err)
	assert.Equal(t, "portal.opentopography.org", u.Host)
	assert.Equal(t, "/API/globaldem", u.Path)
	assert.Equal(t, url.Values{
		"demtype":      []string{"COP30"},
		"south":        []string{"-33.5"},
		"north":        []string{"-33.25"},
		"west":         []string{"151"},
		"east":         []string{"151.125"},
		"outputFormat": []string{"GTiff"},
		"API_Key":      []string{"secret"},
	}, u.Query())
}

func TestOpenTopographyClientFetchGeoTIFF(t *testing.T) {
	bbox := dem.BoundingBox{South: 1, North: 2, West: 3, East: 4}

	for _, tc := range []struct {
		name             string
		statuses         []int
		expectedRequests int32
		expectedCode     int
	}{
		{
			name:             "ok",
			statuses:         []int{http.StatusOK},
			expectedRequests: 1,
		},
		{
			name:             "retry_then_ok",
			statuses:         []int{http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusOK},
			expectedRequests: 3,
		},
		{
			name:             "bad_request",
			statuses:         []int{http.StatusBadRequest, http.StatusOK},
			expectedRequests: 1,
			expectedCode:     http.StatusBadRequest,
		},
		{
			name:             "retries_exhausted",
			statuses:         []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway, http.StatusOK},
			expectedRequests: 3,
			expectedCode:     http.StatusBadGateway,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var requests atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := requests.Add(1)
				assert.Equal(t, "/API/globaldem", r.URL.Path)
				assert.Equal(t, "key", r.URL.Query().Get("API_Key"))
				status := tc.statuses[n-1]
				w.WriteHeader(status)
				if status == http.StatusOK {
					_, _ = w.Write([]byte("tiff"))
				} else {
					_, _ = w.Write([]byte("Error: " + http.StatusText(status) + "\n"))
				}
			}))
			defer server.Close()

			client, err := dem.NewOpenTopographyClient("key",
				dem.WithBaseURL(server.URL+"/"),
				dem.WithHTTPClient(server.Client()),
				dem.WithMaxAttempts(3),
				dem.WithBackoff(time.Millisecond),
			)
			assert.NoError(t, err)

			data, err := client.FetchGeoTIFF(t.Context(), bbox)
			assert.Equal(t, tc.expectedRequests, requests.Load())
			if tc.expectedCode == 0 {
				assert.NoError(t, err)
				assert.Equal(t, []byte("tiff"), data)
				return
			}
			var httpStatusError *dem.HTTPStatusError
			assert.True(t, errors.As(err, &httpStatusError))
			assert.Equal(t, tc.expectedCode, httpStatusError.Code)
			assert.Equal(t, "Error: "+http.StatusText(tc.expectedCode), httpStatusError.Body)
		})
	}
}

func TestOpenTopographyClientFetchRasterDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a tiff"))
	}))
	defer server.Close()

	client, err := dem.NewOpenTopographyClient("key", dem.WithBaseURL(server.URL))
	assert.NoError(t, err)
	_, err = client.FetchRaster(t.Context(), dem.BoundingBox{South: 1, North: 2, West: 3, East: 4})
	assert.Error(t, err)
}

func TestOpenTopographyClientInvalidBoundingBox(t *testing.T) {
	client, err := dem.NewOpenTopographyClient("key")
	assert.NoError(t, err)
	_, err = client.FetchGeoTIFF(t.Context(), dem.BoundingBox{South: 2, North: 1, West: 3, East: 4})
	assert.Error(t, err)
}
