package detectorsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/proctor/core"
)

func newDetector(url string, timeout time.Duration) *HTTPDetector {
	conf := &core.Config{Detector: core.DetectorConfig{URL: url, Timeout: timeout}}
	return NewHTTPDetector(conf)
}

func TestHTTPDetector_Analyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Frame {
		case "crowd":
			_, _ = w.Write([]byte(`{"alerts":["Multiple faces detected"]}`))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("model not loaded"))
		case "slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"alerts":[]}`))
		default:
			_, _ = w.Write([]byte(`{"alerts":[]}`))
		}
	}))
	defer srv.Close()

	det := newDetector(srv.URL, time.Second)

	tests := []struct {
		name       string
		frame      string
		timeout    time.Duration
		wantAlerts []string
		wantErr    bool
	}{
		{name: "clean frame", frame: "face"},
		{name: "alerts", frame: "crowd", wantAlerts: []string{"Multiple faces detected"}},
		{name: "detector error", frame: "broken", wantErr: true},
		{name: "timeout", frame: "slow", timeout: 20 * time.Millisecond, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.timeout)
				defer cancel()
			}
			alerts, err := det.Analyze(ctx, []byte(tt.frame))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.wantAlerts), len(alerts))
			assert.Equal(t, tt.wantAlerts, nilIfEmpty(alerts))
		})
	}
}

func TestHTTPDetector_unreachable(t *testing.T) {
	det := newDetector("http://127.0.0.1:1", time.Second)
	_, err := det.Analyze(context.Background(), []byte("face"))
	assert.Error(t, err)
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
