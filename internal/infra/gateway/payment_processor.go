package gateway

import (
	"context"
	"fmt"
	"rinha-relay/internal/domain"
	"time"

	json "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
)

const (
	paymentsPath      = "/payments"
	serviceHealthPath = "/payments/service-health"

	requestedAtLayout = "2006-01-02T15:04:05.000Z"
)

type processorPayload struct {
	CorrelationId string          `json:"correlationId"`
	Amount        decimal.Decimal `json:"amount"`
	RequestedAt   string          `json:"requestedAt"`
}

type healthResponse struct {
	Failing bool `json:"failing"`
}

// PaymentProcessorClient talks to both upstream processors over one pooled
// fasthttp client. It never retries: failover is the caller's job.
type PaymentProcessorClient struct {
	client        *fasthttp.Client
	baseURLs      map[domain.Processor]string
	timeout       time.Duration
	healthTimeout time.Duration
}

func NewPaymentProcessorClient(defaultURL, fallbackURL string, timeout, healthTimeout time.Duration) *PaymentProcessorClient {
	return &PaymentProcessorClient{
		client: &fasthttp.Client{
			Name:                      "rinha-relay",
			MaxConnsPerHost:           512,
			MaxIdleConnDuration:       10 * time.Second,
			MaxIdemponentCallAttempts: 1,
			NoDefaultUserAgentHeader:  true,
		},
		baseURLs: map[domain.Processor]string{
			domain.ProcessorDefault:  defaultURL,
			domain.ProcessorFallback: fallbackURL,
		},
		timeout:       timeout,
		healthTimeout: healthTimeout,
	}
}

// PostPayment returns nil only when the processor answered 2xx.
func (c *PaymentProcessorClient) PostPayment(ctx context.Context, processor domain.Processor, payment domain.Payment) error {
	baseURL, ok := c.baseURLs[processor]
	if !ok {
		return fmt.Errorf("unknown processor %q", processor)
	}

	body, err := json.Marshal(processorPayload{
		CorrelationId: payment.CorrelationId,
		Amount:        payment.Amount,
		RequestedAt:   payment.RequestedAt.UTC().Format(requestedAtLayout),
	})
	if err != nil {
		return fmt.Errorf("encode payment %s: %w", payment.CorrelationId, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(baseURL + paymentsPath)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBodyRaw(body)

	if err := c.client.DoTimeout(req, resp, c.callTimeout(ctx, c.timeout)); err != nil {
		return fmt.Errorf("%s: %w: %w", processor, domain.ErrProcessorUnavailable, err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return fmt.Errorf("%s: %w: status %d", processor, domain.ErrProcessorUnavailable, status)
	}
	return nil
}

// CheckHealth reports false when the endpoint errors, answers non-2xx, or sets
// "failing".
func (c *PaymentProcessorClient) CheckHealth(ctx context.Context, processor domain.Processor) (bool, error) {
	baseURL, ok := c.baseURLs[processor]
	if !ok {
		return false, fmt.Errorf("unknown processor %q", processor)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(baseURL + serviceHealthPath)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := c.client.DoTimeout(req, resp, c.callTimeout(ctx, c.healthTimeout)); err != nil {
		return false, err
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return false, fmt.Errorf("health status %d", status)
	}

	var res healthResponse
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return false, fmt.Errorf("decode health response: %w", err)
	}
	return !res.Failing, nil
}

// callTimeout caps d by the context deadline, if any.
func (c *PaymentProcessorClient) callTimeout(ctx context.Context, d time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			return max(left, time.Millisecond)
		}
	}
	return d
}
