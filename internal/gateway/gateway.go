package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/engagekit/crm/internal/logger"
	"github.com/engagekit/crm/internal/model"
	"go.uber.org/zap"
)

// Sender hands one personalized message to an external vendor. The
// delivery consumer records the outcome in the communication log either
// way; Sender never retries on its own beyond what the dispatcher does.
type Sender interface {
	Name() string
	Ready() bool
	Acquire() bool
	Send(ctx context.Context, item model.DeliveryWorkItem) error
}

// HTTPSender posts the work item as JSON to a vendor endpoint, guarded
// by a per-sender breaker.
type HTTPSender struct {
	name     string
	endpoint string
	client   *http.Client
	br       *Breaker
}

func NewHTTPSender(name, baseURL, sendPath string, timeout time.Duration, br *Breaker) *HTTPSender {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPSender{
		name:     name,
		endpoint: baseURL + sendPath,
		client:   &http.Client{Timeout: timeout},
		br:       br,
	}
}

func (s *HTTPSender) Name() string  { return s.name }
func (s *HTTPSender) Ready() bool   { return s.br.Ready() }
func (s *HTTPSender) Acquire() bool { return s.br.Acquire() }

func (s *HTTPSender) Send(ctx context.Context, item model.DeliveryWorkItem) error {
	err := s.post(ctx, item)
	s.br.OnResult(err == nil)
	return err
}

func (s *HTTPSender) post(ctx context.Context, item model.DeliveryWorkItem) error {
	b, err := json.Marshal(item)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("vendor=%s status=%d", s.name, res.StatusCode)
	}
	return nil
}

// LogSender is the default vendor when no HTTP providers are configured:
// it logs the send and always succeeds, so every delivery lands in the
// communication log as COMPLETED.
type LogSender struct{}

func (LogSender) Name() string  { return "log" }
func (LogSender) Ready() bool   { return true }
func (LogSender) Acquire() bool { return true }

func (LogSender) Send(_ context.Context, item model.DeliveryWorkItem) error {
	logger.Log.Info("delivering message",
		zap.Int64("customer_id", item.CustomerID),
		zap.Int64("campaign_id", item.CampaignID),
		zap.String("message", item.Message),
	)
	return nil
}
