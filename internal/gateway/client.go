// Package gateway создает Pix-платежи в Invictus Pay.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Dhoini/pix-subscription-service/config"
	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/internal/extractor"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
)

const (
	serviceName      = "invictus"
	transactionsPath = "/api/public/v1/transactions"
	paymentMethodPix = "pix"

	rawLogLimit    = 1200
	parsedLogLimit = 2500
	errorBodyLimit = 500
)

// ChargeCreator создает платеж для покупателя
type ChargeCreator interface {
	CreateCharge(ctx context.Context, subscriberID int64) (*ChargeResult, error)
}

// Client клиент Invictus Pay. Один вызов без повторов: ошибка сразу уходит вызывающему.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiToken       string
	postbackURL    string
	offerHash      string
	productHash    string
	productTitle   string
	priceCents     int
	expireInDays   int
	customer       CustomerProfile
	minImageLength int
	log            *logger.Logger
}

// NewClient создает клиент из конфигурации; httpClient может быть nil
func NewClient(cfg *config.Config, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Gateway.Timeout}
	}
	return &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(cfg.Gateway.BaseURL, "/"),
		apiToken:     cfg.Gateway.APIToken,
		postbackURL:  cfg.Gateway.PostbackURL,
		offerHash:    cfg.Gateway.OfferHash,
		productHash:  cfg.Gateway.ProductHash,
		productTitle: cfg.Gateway.ProductTitle,
		priceCents:   cfg.Plan.PriceCents,
		expireInDays: cfg.Gateway.ExpireInDays,
		customer: CustomerProfile{
			Name:        cfg.Customer.Name,
			Email:       cfg.Customer.Email,
			PhoneNumber: cfg.Customer.Phone,
			Document:    cfg.Customer.Document,
		},
		minImageLength: cfg.Extractor.MinImageLength,
		log:            log.Named("invictus"),
	}
}

// BuildRequest собирает тело запроса фиксированной формы
func (c *Client) BuildRequest(subscriberID int64) CreateTransactionRequest {
	return CreateTransactionRequest{
		Amount:        c.priceCents,
		OfferHash:     c.offerHash,
		PaymentMethod: paymentMethodPix,
		Customer:      c.customer,
		Cart: []CartItem{{
			ProductHash:   c.productHash,
			Title:         c.productTitle,
			Price:         c.priceCents,
			Quantity:      1,
			OperationType: 1,
			Tangible:      false,
		}},
		ExpireInDays: c.expireInDays,
		Tracking:     Tracking{SubscriberID: subscriberID},
	}
}

func (c *Client) endpoint() string {
	q := url.Values{}
	q.Set("api_token", c.apiToken)
	q.Set("postback_url", c.postbackURL)
	return c.baseURL + transactionsPath + "?" + q.Encode()
}

// CreateCharge создает Pix-платеж и извлекает из ответа id, код и картинку
func (c *Client) CreateCharge(ctx context.Context, subscriberID int64) (*ChargeResult, error) {
	body, err := json.Marshal(c.BuildRequest(subscriberID))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.log.Info("POST create transaction for subscriber %d", subscriberID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewExternalServiceError(serviceName, "transport", "request failed", 0,
			fmt.Errorf("%w: %v", domain.ErrExternalServiceUnavailable, err))
	}
	defer resp.Body.Close()

	rawBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewExternalServiceError(serviceName, "read_body", "failed to read response", resp.StatusCode,
			fmt.Errorf("%w: %v", domain.ErrExternalServiceUnavailable, err))
	}
	raw := string(rawBytes)

	c.log.Info("status_code=%d", resp.StatusCode)
	c.log.Info("raw_first_%d=%s", rawLogLimit, truncate(raw, rawLogLimit))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewExternalServiceError(serviceName, fmt.Sprintf("http_%d", resp.StatusCode),
			truncate(raw, errorBodyLimit), resp.StatusCode, domain.ErrGatewayRejected)
	}

	return c.interpret(resp.StatusCode, raw), nil
}

// interpret разбирает тело ответа; неразобранный JSON не ошибка, решают эвристики по тексту
func (c *Client) interpret(statusCode int, raw string) *ChargeResult {
	parsed, parseErr := extractor.DecodeOrWrap([]byte(raw))
	structured := parsed
	if parseErr != nil {
		c.log.Error("failed to parse JSON: %v", parseErr)
		structured = map[string]any{}
	}

	if dump, err := json.Marshal(parsed); err == nil {
		c.log.Info("INVICTUS_CREATE_JSON: %s", truncate(string(dump), parsedLogLimit))
	}

	result := &ChargeResult{
		StatusCode:   statusCode,
		RawResponse:  raw,
		Parsed:       parsed,
		ExternalTxID: ExternalTxID(structured),
	}
	if code, ok := extractor.PaymentCode(structured, raw); ok {
		result.PaymentCode = code
	}
	if img, ok := extractor.ImagePayload(structured, raw, c.minImageLength); ok {
		result.ImagePayload = img
	}
	return result
}

// ExternalTxID id транзакции: id, transaction_id, uuid, затем data.id
func ExternalTxID(parsed any) string {
	obj, ok := extractor.Object(parsed)
	if !ok {
		return ""
	}
	if id := extractor.FirstString(obj, "id", "transaction_id", "uuid"); id != "" {
		return id
	}
	if data, ok := extractor.Object(obj["data"]); ok {
		return extractor.FirstString(data, "id")
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
