package paystack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"heliox/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

const defaultBaseURL = "https://api.paystack.co"
const defaultTimeout = 10 * time.Second

var ErrGateway = errors.New("payment gateway error")

// Client talks to the Paystack REST API. All calls run through a
// circuit breaker and a bounded timeout; amounts cross this boundary
// in major units and are converted to minor units (kobo) exactly once.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// TxnData is the client-redirect handle for an initialized transaction.
type TxnData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyData is the gateway's view of a transaction.
type VerifyData struct {
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	GatewayResponse string `json:"gateway_response"`
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// New builds a client from PAYSTACK_SECRET_KEY and PAYSTACK_BASE_URL.
func New() *Client {
	baseURL := os.Getenv("PAYSTACK_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return NewWithConfig(os.Getenv("PAYSTACK_SECRET_KEY"), baseURL, defaultTimeout)
}

func NewWithConfig(secretKey, baseURL string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0). // failures trip the breaker instead
		SetAuthToken(secretKey).
		SetHeader("Content-Type", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "paystack",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.GatewayBreakerState.Set(state)
			log.Printf("paystack: circuit breaker %s -> %s", from.String(), to.String())
		},
	})

	return &Client{http: httpClient, breaker: breaker}
}

// ToMinorUnits converts a major-unit amount to kobo.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// InstallmentAmount is the per-period charge for splitting total over
// n periods, rounded up so the plan never undercollects.
func InstallmentAmount(total float64, installments int) float64 {
	return math.Ceil(total / float64(installments))
}

// InitializeTransaction opens a transaction for amount (major units)
// and returns the redirect handle. planID is optional; when set the
// transaction is charged against that recurring plan.
func (c *Client) InitializeTransaction(ctx context.Context, email string, amount float64, callbackURL, reference, planID string) (*TxnData, error) {
	body := map[string]any{
		"email":        email,
		"amount":       ToMinorUnits(amount),
		"callback_url": callbackURL,
		"reference":    reference,
	}
	if planID != "" {
		body["plan"] = planID
	}

	out, err := c.breaker.Execute(func() (any, error) {
		var result envelope[TxnData]
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&result).
			Post("/transaction/initialize")
		if err != nil {
			return nil, err
		}
		if resp.IsError() || !result.Status {
			return nil, fmt.Errorf("%w: initialize failed: %s", ErrGateway, result.Message)
		}
		return &result.Data, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*TxnData), nil
}

// CreatePlan registers a monthly recurring plan for amount (major
// units) and returns the plan code.
func (c *Client) CreatePlan(ctx context.Context, name string, amount float64) (string, error) {
	body := map[string]any{
		"name":          name,
		"interval":      "monthly",
		"amount":        ToMinorUnits(amount),
		"send_invoices": true,
		"send_sms":      true,
	}

	out, err := c.breaker.Execute(func() (any, error) {
		var result envelope[struct {
			PlanCode string `json:"plan_code"`
		}]
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&result).
			Post("/plan")
		if err != nil {
			return nil, err
		}
		if resp.IsError() || !result.Status {
			return nil, fmt.Errorf("%w: create plan failed: %s", ErrGateway, result.Message)
		}
		return result.Data.PlanCode, nil
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// VerifyTransaction queries the gateway for the reference's status.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyData, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		var result envelope[VerifyData]
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&result).
			Get("/transaction/verify/" + reference)
		if err != nil {
			return nil, err
		}
		if resp.IsError() || !result.Status {
			return nil, fmt.Errorf("%w: verify failed: %s", ErrGateway, result.Message)
		}
		return &result.Data, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*VerifyData), nil
}
