package detectorsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/relay"
)

type analyzeRequest struct {
	Frame string `json:"frame"`
}

type analyzeResponse struct {
	Alerts []string `json:"alerts"`
}

// HTTPDetector calls a remote face-analysis service: POST {"frame": "<data url>"} -> {"alerts": [...]}.
type HTTPDetector struct {
	url    string
	client *http.Client
}

var _ relay.Detector = (*HTTPDetector)(nil)

func NewHTTPDetector(conf *core.Config) *HTTPDetector {
	return &HTTPDetector{
		url:    conf.Detector.URL,
		client: &http.Client{Timeout: conf.Detector.Timeout},
	}
}

func (d *HTTPDetector) Analyze(ctx context.Context, frame []byte) ([]string, error) {
	body, err := json.Marshal(analyzeRequest{Frame: string(frame)})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detector returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var res analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return res.Alerts, nil
}
