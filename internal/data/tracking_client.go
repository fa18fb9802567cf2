package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/biz"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

// trackingClient reports server-side conversion events to the marketing
// analytics backend. An unset tracking ID disables the client entirely;
// that is a supported configuration, not an error.
type trackingClient struct {
	trackingID string
	endpoint   string
	hc         *http.Client
	log        *log.Helper
}

// NewTrackingClient creates the conversion tracking client.
func NewTrackingClient(c *conf.Bootstrap, logger log.Logger) biz.TrackingClient {
	trackingID, endpoint := "", ""
	if c != nil && c.Tracking != nil {
		trackingID = c.Tracking.TrackingID
		endpoint = c.Tracking.Endpoint
	}
	return &trackingClient{
		trackingID: trackingID,
		endpoint:   endpoint,
		hc:         &http.Client{Timeout: 5 * time.Second},
		log:        log.NewHelper(logger),
	}
}

type conversionEvent struct {
	TrackingID string `json:"tracking_id"`
	UserID     string `json:"user_id"`
	Action     string `json:"action"`
	PlanID     string `json:"plan_id,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// TrackConversion posts one conversion event. No-op when tracking is
// disabled.
func (c *trackingClient) TrackConversion(ctx context.Context, uid, action, planID string) error {
	if c.trackingID == "" || c.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(&conversionEvent{
		TrackingID: c.trackingID,
		UserID:     uid,
		Action:     action,
		PlanID:     planID,
		Timestamp:  time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("tracking endpoint returned %d", resp.StatusCode)
	}
	return nil
}
