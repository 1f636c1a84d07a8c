package http

import (
	"context"
	"log/slog"
	"rinha-relay/internal/domain"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
)

// PaymentSubmitter accepts payments and clears the ledger.
type PaymentSubmitter interface {
	Execute(ctx context.Context, payment domain.Payment) error
	PurgePayments(ctx context.Context) error
}

type SummaryReader interface {
	Execute(ctx context.Context, from, to time.Time) (domain.Summary, error)
}

type Handler struct {
	ProcessPaymentUC PaymentSubmitter
	GetSummaryUC     SummaryReader
	DefaultFrom      time.Time
	DefaultTo        time.Time
	RequestTimeout   time.Duration
	Logger           *slog.Logger
}

// requestContext bounds store calls made on behalf of one request.
func (h *Handler) requestContext() (context.Context, context.CancelFunc) {
	if h.RequestTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), h.RequestTimeout)
}

type paymentRequest struct {
	CorrelationId string           `json:"correlationId"`
	Amount        *decimal.Decimal `json:"amount"`
}

func (h *Handler) HandlePayments(ctx *fasthttp.RequestCtx) {
	var req paymentRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.Logger.Debug("invalid body", "error", err)
		ctx.Error("invalid body", fasthttp.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(req.CorrelationId); err != nil {
		ctx.Error("invalid correlationId", fasthttp.StatusBadRequest)
		return
	}
	if req.Amount == nil || !req.Amount.IsPositive() {
		ctx.Error("amount must be > 0", fasthttp.StatusBadRequest)
		return
	}

	c, cancel := h.requestContext()
	defer cancel()
	payment := domain.Payment{CorrelationId: req.CorrelationId, Amount: *req.Amount}
	if err := h.ProcessPaymentUC.Execute(c, payment); err != nil {
		h.Logger.Error("failed to enqueue payment", "correlationId", req.CorrelationId, "error", err)
		ctx.Error("failed to enqueue payment", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusAccepted)
}

func (h *Handler) HandleSummary(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	from, ok := parseInstant(args.Peek("from"), h.DefaultFrom)
	if !ok {
		ctx.Error("invalid 'from' timestamp, use ISO-8601 e.g. 2006-01-02T15:04:05.000Z", fasthttp.StatusBadRequest)
		return
	}
	to, ok := parseInstant(args.Peek("to"), h.DefaultTo)
	if !ok {
		ctx.Error("invalid 'to' timestamp, use ISO-8601 e.g. 2006-01-02T15:04:05.000Z", fasthttp.StatusBadRequest)
		return
	}

	c, cancel := h.requestContext()
	defer cancel()
	summary, err := h.GetSummaryUC.Execute(c, from, to)
	if err != nil {
		h.Logger.Error("failed to get summary", "error", err)
		ctx.Error("failed to get summary", fasthttp.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(summary)
	if err != nil {
		h.Logger.Error("failed to encode summary", "error", err)
		ctx.Error("failed to encode summary", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(body)
}

func (h *Handler) HandleHealth(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString("ok")
}

func (h *Handler) PurgePayments(ctx *fasthttp.RequestCtx) {
	c, cancel := h.requestContext()
	defer cancel()
	if err := h.ProcessPaymentUC.PurgePayments(c); err != nil {
		h.Logger.Error("failed to purge payments", "error", err)
		ctx.Error("failed to purge payments", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
}

// parseInstant accepts RFC 3339 with or without fractional seconds. An absent
// value yields def.
func parseInstant(raw []byte, def time.Time) (time.Time, bool) {
	if len(raw) == 0 {
		return def, true
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
