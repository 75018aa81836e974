package service

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/internal/gateway"
	"github.com/Dhoini/pix-subscription-service/internal/metrics"
	"github.com/Dhoini/pix-subscription-service/internal/repository/memory"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

const testPeriod = 30 * 24 * time.Hour

const testPixCode = "00020101021226850014br.gov.bcb.pix2563qrcodepix.example.com/v2/cobv/9d36b84f5204000053039865802BR5913CLIENTE VIP6009SAO PAULO62070503***6304ABCD"

func quietLogger() *logger.Logger {
	return logger.NewWithWriter(logger.ERROR, io.Discard)
}

func newMetrics() metrics.SubscriptionMetrics {
	return metrics.NewSubscriptionMetrics(prometheus.NewRegistry())
}

// clock управляемое время для тестов
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type notification struct {
	kind         string
	subscriberID int64
	expiresAt    time.Time
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notification
	err   error
}

func (f *fakeNotifier) AccessGranted(_ context.Context, id int64, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notification{"access", id, exp})
	return f.err
}

func (f *fakeNotifier) RenewalDue(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notification{"renewal", id, time.Time{}})
	return f.err
}

type fakeGateway struct {
	result *gateway.ChargeResult
	err    error
	calls  int
}

func (f *fakeGateway) CreateCharge(_ context.Context, _ int64) (*gateway.ChargeResult, error) {
	f.calls++
	return f.result, f.err
}

type failingLedger struct {
	*memory.ChargeRepository
}

func (failingLedger) Record(context.Context, domain.ChargeRecord) (domain.ChargeRecord, error) {
	return domain.ChargeRecord{}, errors.New("disk full")
}

func pngBase64() string {
	return base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nfake-image-bytes"))
}

func newBufferLogger(w io.Writer) *logger.Logger {
	return logger.NewWithWriter(logger.DEBUG, w)
}
