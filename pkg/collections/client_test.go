package collections

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo-gateway/pkg/msisdn"
)

var fixedReference = uuid.MustParse("6f1b7e52-6d3c-4d8e-9a57-0f6a3c8d2b11")

type scripted struct {
	status int
	body   string
}

type recordedRequest struct {
	method string
	path   string
	header http.Header
	body   []byte
	user   string
	pass   string
}

// fakeGateway answers requests from per-route queues. The last queued
// response of a route is repeated once the queue is drained.
type fakeGateway struct {
	mu        sync.Mutex
	responses map[string][]scripted
	requests  []recordedRequest
	err       error
}

func newFakeGateway() *fakeGateway {
	g := &fakeGateway{responses: make(map[string][]scripted)}
	g.on(http.MethodPost, "/collection/token/", scripted{status: http.StatusOK, body: `{"access_token":"token-1","token_type":"access_token","expires_in":3600}`})
	return g
}

func (g *fakeGateway) on(method, path string, rs ...scripted) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses[method+" "+path] = rs
}

func (g *fakeGateway) Do(req *http.Request) (*http.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	user, pass, _ := req.BasicAuth()
	g.requests = append(g.requests, recordedRequest{
		method: req.Method,
		path:   req.URL.Path,
		header: req.Header.Clone(),
		body:   body,
		user:   user,
		pass:   pass,
	})

	if g.err != nil {
		return nil, g.err
	}

	key := req.Method + " " + req.URL.Path
	queue := g.responses[key]
	if len(queue) == 0 {
		rec := httptest.NewRecorder()
		rec.WriteHeader(http.StatusNotImplemented)
		return rec.Result(), nil
	}

	next := queue[0]
	if len(queue) > 1 {
		g.responses[key] = queue[1:]
	}

	rec := httptest.NewRecorder()
	rec.WriteHeader(next.status)
	_, _ = rec.WriteString(next.body)
	return rec.Result(), nil
}

func (g *fakeGateway) count(method, path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, r := range g.requests {
		if r.method == method && r.path == path {
			n++
		}
	}
	return n
}

func (g *fakeGateway) last(method, path string) recordedRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.requests) - 1; i >= 0; i-- {
		if g.requests[i].method == method && g.requests[i].path == path {
			return g.requests[i]
		}
	}
	return recordedRequest{}
}

type countingRecorder struct {
	requests map[string]int
	reauths  map[string]int
}

func (r *countingRecorder) ObserveRequest(operation string, statusCode int, duration time.Duration) {
	r.requests[operation]++
}

func (r *countingRecorder) ObserveReauthorization(operation string) {
	r.reauths[operation]++
}

func testConfig(g *fakeGateway) Config {
	return Config{
		Username:        "api-user",
		Password:        "api-key",
		SubscriptionKey: "sub-key",
		HTTPClient:      g,
		NewReferenceID:  func() uuid.UUID { return fixedReference },
	}
}

func newTestClient(t *testing.T, g *fakeGateway) *Client {
	t.Helper()
	c, err := New(context.Background(), testConfig(g))
	require.NoError(t, err)
	return c
}

func ghanaPayer(t *testing.T) msisdn.Msisdn {
	t.Helper()
	m, err := msisdn.Normalize("0542373722", msisdn.Ghana)
	require.NoError(t, err)
	return m
}

func TestNewDefaults(t *testing.T) {
	g := newFakeGateway()
	c := newTestClient(t, g)

	assert.Equal(t, SandboxBaseURL, c.BaseURL())
	assert.Equal(t, Sandbox, c.TargetEnvironment())
	assert.Equal(t, FallbackCallbackHost, c.CallbackHost())
	assert.Equal(t, 1, g.count(http.MethodPost, "/collection/token/"))
}

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		configured string
		wantURL    string
		wantEnv    string
	}{
		{"", SandboxBaseURL, Sandbox},
		{"https://momodeveloper.mtn.com", "https://momodeveloper.mtn.com/", Production},
		{"https://momodeveloper.mtn.com/", "https://momodeveloper.mtn.com/", Production},
		{"https://momodeveloper.mtn.com///", "https://momodeveloper.mtn.com/", Production},
		{"https://sandbox.momodeveloper.mtn.com", SandboxBaseURL, Sandbox},
		{"http://localhost:8080/momo", "http://localhost:8080/momo/", Sandbox},
	}

	for _, tt := range tests {
		t.Run(tt.configured, func(t *testing.T) {
			url, env := resolveBaseURL(tt.configured)
			assert.Equal(t, tt.wantURL, url)
			assert.Equal(t, tt.wantEnv, env)
		})
	}
}

func TestNewProductionPaths(t *testing.T) {
	g := newFakeGateway()
	g.on(http.MethodPost, "/v1/collection/token/", scripted{status: http.StatusOK, body: `{"access_token":"prod"}`})

	cfg := testConfig(g)
	cfg.BaseURL = "https://momodeveloper.mtn.com/v1"
	cfg.CallbackHost = "pay.example.com"
	c, err := New(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, Production, c.TargetEnvironment())
	assert.Equal(t, "pay.example.com", c.CallbackHost())
	assert.Equal(t, 1, g.count(http.MethodPost, "/v1/collection/token/"))
}

func TestNewRequiresCredentials(t *testing.T) {
	g := newFakeGateway()
	cfg := testConfig(g)
	cfg.SubscriptionKey = ""

	c, err := New(context.Background(), cfg)
	assert.Nil(t, c)
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Empty(t, g.requests)
}

func TestNewFailsWhenAuthorizationFails(t *testing.T) {
	g := newFakeGateway()
	g.on(http.MethodPost, "/collection/token/", scripted{status: http.StatusUnauthorized, body: `{"error":"login_failed"}`})

	c, err := New(context.Background(), testConfig(g))
	assert.Nil(t, c)

	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, http.StatusUnauthorized, aerr.StatusCode)
	assert.Equal(t, `{"error":"login_failed"}`, aerr.Body)
}

func TestNewFailsOnEmptyToken(t *testing.T) {
	g := newFakeGateway()
	g.on(http.MethodPost, "/collection/token/", scripted{status: http.StatusOK, body: `{"token_type":"access_token"}`})

	_, err := New(context.Background(), testConfig(g))
	assert.ErrorIs(t, err, ErrMissingAccessToken)
}

func TestAuthorizeRequest(t *testing.T) {
	g := newFakeGateway()
	newTestClient(t, g)

	req := g.last(http.MethodPost, "/collection/token/")
	assert.Equal(t, "api-user", req.user)
	assert.Equal(t, "api-key", req.pass)
	assert.Equal(t, "sub-key", req.header.Get("Ocp-Apim-Subscription-Key"))
	assert.Empty(t, req.body)
}

func TestRequestToPay(t *testing.T) {
	g := newFakeGateway()
	g.on(http.MethodPost, "/collection/v1_0/requesttopay/", scripted{status: http.StatusAccepted})
	c := newTestClient(t, g)

	ref, err := c.RequestToPay(context.Background(), decimal.NewFromInt(25), Cedi, ghanaPayer(t), "https://shop.example.com/momo/callback")
	require.NoError(t, err)
	assert.Equal(t, fixedReference, ref)

	req := g.last(http.MethodPost, "/collection/v1_0/requesttopay/")
	assert.Equal(t, "Bearer token-1", req.header.Get("Authorization"))
	assert.Equal(t, "https://shop.example.com/momo/callback", req.header.Get("X-Callback-Url"))
	assert.Equal(t, fixedReference.String(), req.header.Get("X-Reference-Id"))
	assert.Equal(t, Sandbox, req.header.Get("X-Target-Environment"))
	assert.Equal(t, "sub-key", req.header.Get("Ocp-Apim-Subscription-Key"))
	assert.Equal(t, "application/json", req.header.Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(req.body, &body))
	assert.Equal(t, "25", body["amount"])
	assert.Equal(t, "GHS", body["currency"])
	assert.Equal(t, fixedReference.String(), body["externalId"])
	assert.Equal(t, map[string]interface{}{"partyIdType": "MSISDN", "partyId": "233542373722"}, body["payer"])
	assert.Equal(t, DefaultPayerMessage, body["payerMessage"])
	assert.Equal(t, DefaultPayeeNote, body["payeeNote"])
}

func TestRequestToPayCallbackResolution(t *testing.T) {
	t.Run("placeholder host falls back", func(t *testing.T) {
		g := newFakeGateway()
		g.on(http.MethodPost, "/collection/v1_0/requesttopay/", scripted{status: http.StatusAccepted})
		c := newTestClient(t, g)

		_, err := c.RequestToPay(context.Background(), decimal.NewFromInt(1), Cedi, ghanaPayer(t), "")
		require.NoError(t, err)
		assert.Equal(t, FallbackCallbackURL, g.last(http.MethodPost, "/collection/v1_0/requesttopay/").header.Get("X-Callback-Url"))
	})

	t.Run("custom host requires explicit url", func(t *testing.T) {
		g := newFakeGateway()
		cfg := testConfig(g)
		cfg.CallbackHost = "pay.example.com"
		c, err := New(context.Background(), cfg)
		require.NoError(t, err)

		ref, err := c.RequestToPay(context.Background(), decimal.NewFromInt(1), Cedi, ghanaPayer(t), "")
		assert.Equal(t, uuid.Nil, ref)
		var cerr *ConfigurationError
		require.ErrorAs(t, err, &cerr)
		assert.ErrorIs(t, err, ErrMissingCallbackURL)
		assert.Zero(t, g.count(http.MethodPost, "/collection/v1_0/requesttopay/"))
	})
}

func TestRequestToPayRejectsInvalidInput(t *testing.T) {
	g := newFakeGateway()
	c := newTestClient(t, g)

	_, err := c.RequestToPay(context.Background(), decimal.NewFromInt(1), Cedi, msisdn.Msisdn{}, "")
	assert.ErrorIs(t, err, ErrInvalidPayer)

	_, err = c.RequestToPay(context.Background(), decimal.NewFromInt(1), Currency(0), ghanaPayer(t), "")
	var uerr *UnknownCurrencyError
	assert.ErrorAs(t, err, &uerr)

	assert.Zero(t, g.count(http.MethodPost, "/collection/v1_0/requesttopay/"))
}

func TestRequestToPayReauthorizesOnce(t *testing.T) {
	g := newFakeGateway()
	g.on(http.MethodPost, "/collection/token/",
		scripted{status: http.StatusOK, body: `{"access_token":"token-1"}`},
		scripted{status: http.StatusOK, body: `{"access_token":"token-2"}`},
	)
	g.on(http.MethodPost, "/collection/v1_0/requesttopay/",
		scripted{status: http.StatusUnauthorized},
		scripted{status: http.StatusAccepted},
	)
	rec := &countingRecorder{requests: map[string]int{}, reauths: map[string]int{}}
	cfg := testConfig(g)
	cfg.Recorder = rec
	c, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ref, err := c.RequestToPay(context.Background(), decimal.NewFromInt(5), Cedi, ghanaPayer(t), "https://shop.example.com/cb")
	require.NoError(t, err)
	assert.Equal(t, fixedReference, ref)

	assert.Equal(t, 2, g.count(http.MethodPost, "/collection/token/"))
	assert.Equal(t, 2, g.count(http.MethodPost, "/collection/v1_0/requesttopay/"))

	replay := g.last(http.MethodPost, "/collection/v1_0/requesttopay/")
	assert.Equal(t, "Bearer token-2", replay.header.Get("Authorization"))
	assert.Equal(t, fixedReference.String(), replay.header.Get("X-Reference-Id"))

	assert.Equal(t, 1, rec.reauths[OpRequestToPay])
	assert.Equal(t, 2, rec.requests[OpAuthorize])
	assert.Equal(t, 2, rec.requests[OpRequestToPay])
}

func TestSecondConsecutiveUnauthorizedIsSurfaced(t *testing.T) {
	g := newFakeGateway()
	g.on(http.MethodPost, "/collection/v1_0/requesttopay/", scripted{status: http.StatusUnauthorized, body: "expired"})
	c := newTestClient(t, g)

	_, err := c.RequestToPay(context.Background(), decimal.NewFromInt(5), Cedi, ghanaPayer(t), "https://shop.example.com/cb")
	require.Error(t, err)

	var oerr *OperationError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, OpRequestToPay, oerr.Operation)
	assert.Equal(t, http.StatusUnauthorized, oerr.StatusCode)
	assert.Equal(t, fixedReference.String(), oerr.ReferenceID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, 2, g.count(http.MethodPost, "/collection/token/"))
	assert.Equal(t, 2, g.count(http.MethodPost, "/collection/v1_0/requesttopay/"))

	// every invocation gets its own single retry
	_, err = c.RequestToPay(context.Background(), decimal.NewFromInt(5), Cedi, ghanaPayer(t), "https://shop.example.com/cb")
	require.Error(t, err)
	assert.Equal(t, 3, g.count(http.MethodPost, "/collection/token/"))
	assert.Equal(t, 4, g.count(http.MethodPost, "/collection/v1_0/requesttopay/"))
}

func TestFailedReauthorizationReplacesOperationError(t *testing.T) {
	g := newFakeGateway()
	g.on(http.MethodPost, "/collection/token/",
		scripted{status: http.StatusOK, body: `{"access_token":"token-1"}`},
		scripted{status: http.StatusInternalServerError, body: "down"},
	)
	g.on(http.MethodGet, "/collection/v1_0/account/balance", scripted{status: http.StatusUnauthorized})
	c := newTestClient(t, g)

	_, err := c.GetBalance(context.Background())
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, http.StatusInternalServerError, aerr.StatusCode)
	assert.Equal(t, "down", aerr.Body)
	assert.Equal(t, 1, g.count(http.MethodGet, "/collection/v1_0/account/balance"))
}

func TestRecoversAfterTransientAuthorizationFailure(t *testing.T) {
	g := newFakeGateway()
	g.on(http.MethodPost, "/collection/token/",
		scripted{status: http.StatusOK, body: `{"access_token":"token-1"}`},
		scripted{status: http.StatusServiceUnavailable, body: "busy"},
		scripted{status: http.StatusOK, body: `{"access_token":"token-3"}`},
	)
	g.on(http.MethodGet, "/collection/v1_0/account/balance",
		scripted{status: http.StatusUnauthorized},
		scripted{status: http.StatusUnauthorized},
		scripted{status: http.StatusOK, body: `{"availableBalance":"10.50","currency":"GHS"}`},
	)
	c := newTestClient(t, g)

	_, err := c.GetBalance(context.Background())
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)

	// the next invocation gets its own retry
	balance, err := c.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.50", balance.AvailableBalance)
	assert.Equal(t, 3, g.count(http.MethodPost, "/collection/token/"))
	assert.Equal(t, "Bearer token-3", g.last(http.MethodGet, "/collection/v1_0/account/balance").header.Get("Authorization"))
}

func TestRequestToPayOperationError(t *testing.T) {
	g := newFakeGateway()
	g.on(http.MethodPost, "/collection/v1_0/requesttopay/", scripted{status: http.StatusConflict, body: `{"code":"RESOURCE_ALREADY_EXIST"}`})
	c := newTestClient(t, g)

	_, err := c.RequestToPay(context.Background(), decimal.NewFromInt(5), Naira, ghanaPayer(t), "https://shop.example.com/cb")
	var oerr *OperationError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, http.StatusConflict, oerr.StatusCode)
	assert.Equal(t, fixedReference.String(), oerr.ReferenceID)
	assert.Contains(t, oerr.Body, "RESOURCE_ALREADY_EXIST")
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, 1, g.count(http.MethodPost, "/collection/token/"))
}

func TestRequestToPayStatus(t *testing.T) {
	path := "/collection/v1_0/requesttopay/" + fixedReference.String()

	tests := []struct {
		name       string
		response   scripted
		want       PaymentStatus
		wantStatus bool
	}{
		{name: "successful", response: scripted{status: http.StatusOK, body: `{"amount":"5","currency":"GHS","financialTransactionId":"123","externalId":"x","payer":{"partyIdType":"MSISDN","partyId":"233542373722"},"status":"SUCCESSFUL"}`}, want: Resolved},
		{name: "failed", response: scripted{status: http.StatusOK, body: `{"status":"FAILED","reason":"APPROVAL_REJECTED"}`}, want: Rejected},
		{name: "pending", response: scripted{status: http.StatusOK, body: `{"status":"PENDING"}`}, want: Pending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGateway()
			g.on(http.MethodGet, path, tt.response)
			c := newTestClient(t, g)

			status, err := c.RequestToPayStatus(context.Background(), fixedReference)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)

			req := g.last(http.MethodGet, path)
			assert.Equal(t, "Bearer token-1", req.header.Get("Authorization"))
			assert.Equal(t, Sandbox, req.header.Get("X-Target-Environment"))
			assert.Equal(t, "sub-key", req.header.Get("Ocp-Apim-Subscription-Key"))
		})
	}
}

func TestGetRequestToPayDetails(t *testing.T) {
	path := "/collection/v1_0/requesttopay/" + fixedReference.String()
	g := newFakeGateway()
	g.on(http.MethodGet, path, scripted{status: http.StatusOK, body: `{"amount":"5","currency":"GHS","financialTransactionId":"987","externalId":"ext","payer":{"partyIdType":"MSISDN","partyId":"233542373722"},"status":"FAILED","reason":{"code":"PAYER_NOT_FOUND","message":"Payer not found"}}`})
	c := newTestClient(t, g)

	p, err := c.GetRequestToPay(context.Background(), fixedReference)
	require.NoError(t, err)
	assert.Equal(t, Rejected, p.Status)
	assert.Equal(t, "987", p.FinancialTransactionID)
	assert.Equal(t, "233542373722", p.Payer.PartyID)
	assert.Equal(t, "PAYER_NOT_FOUND Payer not found", p.Reason)
}

func TestRequestToPayStatusFailures(t *testing.T) {
	path := "/collection/v1_0/requesttopay/" + fixedReference.String()

	t.Run("unknown status", func(t *testing.T) {
		g := newFakeGateway()
		g.on(http.MethodGet, path, scripted{status: http.StatusOK, body: `{"status":"ONGOING"}`})
		c := newTestClient(t, g)

		_, err := c.RequestToPayStatus(context.Background(), fixedReference)
		var serr *UnknownStatusError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "ONGOING", serr.Status)
	})

	t.Run("not found", func(t *testing.T) {
		g := newFakeGateway()
		g.on(http.MethodGet, path, scripted{status: http.StatusNotFound, body: "missing"})
		c := newTestClient(t, g)

		_, err := c.RequestToPayStatus(context.Background(), fixedReference)
		var oerr *OperationError
		require.ErrorAs(t, err, &oerr)
		assert.Equal(t, OpRequestToPayStatus, oerr.Operation)
		assert.Equal(t, http.StatusNotFound, oerr.StatusCode)
		assert.Equal(t, fixedReference.String(), oerr.ReferenceID)
	})

	t.Run("reauthorizes", func(t *testing.T) {
		g := newFakeGateway()
		g.on(http.MethodGet, path, scripted{status: http.StatusUnauthorized}, scripted{status: http.StatusOK, body: `{"status":"PENDING"}`})
		c := newTestClient(t, g)

		status, err := c.RequestToPayStatus(context.Background(), fixedReference)
		require.NoError(t, err)
		assert.Equal(t, Pending, status)
		assert.Equal(t, 2, g.count(http.MethodPost, "/collection/token/"))
		assert.Equal(t, 2, g.count(http.MethodGet, path))
	})
}

func TestGetBalance(t *testing.T) {
	g := newFakeGateway()
	g.on(http.MethodGet, "/collection/v1_0/account/balance",
		scripted{status: http.StatusUnauthorized},
		scripted{status: http.StatusOK, body: `{"availableBalance":"1200.75","currency":"GHS"}`},
	)
	c := newTestClient(t, g)

	balance, err := c.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "GHS", balance.Currency)

	amount, err := balance.Amount()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1200.75").Equal(amount))
	assert.Equal(t, 2, g.count(http.MethodPost, "/collection/token/"))

	g.on(http.MethodGet, "/collection/v1_0/account/balance", scripted{status: http.StatusInternalServerError, body: "oops"})
	_, err = c.GetBalance(context.Background())
	var oerr *OperationError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, OpGetBalance, oerr.Operation)
	assert.Empty(t, oerr.ReferenceID)
}

func TestTransportErrorsPropagate(t *testing.T) {
	g := newFakeGateway()
	c := newTestClient(t, g)

	boom := errors.New("connection reset")
	g.err = boom

	_, err := c.GetBalance(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, g.count(http.MethodGet, "/collection/v1_0/account/balance"))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, ok := tokenExpiry(signed)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = tokenExpiry("opaque-token")
	assert.False(t, ok)
}

func TestReasonText(t *testing.T) {
	assert.Equal(t, "", ReasonText(nil))
	assert.Equal(t, "", ReasonText(json.RawMessage(`null`)))
	assert.Equal(t, "APPROVAL_REJECTED", ReasonText(json.RawMessage(`"APPROVAL_REJECTED"`)))
	assert.Equal(t, "NOT_ENOUGH_FUNDS", ReasonText(json.RawMessage(`{"code":"NOT_ENOUGH_FUNDS"}`)))
}
