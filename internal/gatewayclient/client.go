// Package gatewayclient is a Go client for the gateway's HTTP API, used by
// integration tests and tooling.
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// APIError is a non-2xx answer of the gateway.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsCode reports whether err is an APIError of the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type Client struct {
	baseURL    string
	chainID    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New returns a client for the gateway at baseURL, addressing chainID.
func New(baseURL, chainID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		chainID:    chainID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the bearer credential sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Message = string(data)
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) chainPath(format string, args ...interface{}) string {
	return "/v1/chains/" + url.PathEscape(c.chainID) + fmt.Sprintf(format, args...)
}

// Health and about

type Status struct {
	Status string `json:"status"`
}

type About struct {
	Name        string  `json:"name"`
	Version     *string `json:"version"`
	BuildNumber *string `json:"buildNumber"`
}

func (c *Client) Liveness(ctx context.Context) (Status, error) {
	var s Status
	err := c.do(ctx, http.MethodGet, "/health/live", nil, &s)
	return s, err
}

func (c *Client) Readiness(ctx context.Context) (Status, error) {
	var s Status
	err := c.do(ctx, http.MethodGet, "/health/ready", nil, &s)
	return s, err
}

func (c *Client) About(ctx context.Context) (About, error) {
	var a About
	err := c.do(ctx, http.MethodGet, "/about", nil, &a)
	return a, err
}

// Auth

type Nonce struct {
	Nonce     string `json:"nonce"`
	ExpiresAt string `json:"expiresAt"`
}

type SessionInfo struct {
	Token     string `json:"token"`
	Address   string `json:"address"`
	ExpiresAt string `json:"expiresAt"`
}

func (c *Client) Nonce(ctx context.Context) (Nonce, error) {
	var n Nonce
	err := c.do(ctx, http.MethodGet, "/v1/auth/nonce", nil, &n)
	return n, err
}

// Verify exchanges a signed SIWE message for a session and keeps its
// credential for later calls.
func (c *Client) Verify(ctx context.Context, message, signature string) (SessionInfo, error) {
	var s SessionInfo
	body := map[string]string{"message": message, "signature": signature}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/verify", body, &s); err != nil {
		return s, err
	}
	c.SetToken(s.Token)
	return s, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil)
	c.SetToken("")
	return err
}

// Accounts

type Account struct {
	ID        string  `json:"id"`
	GroupID   *string `json:"groupId"`
	Address   string  `json:"address"`
	Name      *string `json:"name"`
	CreatedAt int64   `json:"createdAt"`
}

type DataType struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"isActive"`
}

type DataSetting struct {
	DataTypeID int  `json:"dataTypeId"`
	Enabled    bool `json:"enabled"`
}

func (c *Client) CreateAccount(ctx context.Context, address string, name *string) (Account, error) {
	var a Account
	body := map[string]interface{}{"address": address, "name": name}
	err := c.do(ctx, http.MethodPost, "/v1/accounts", body, &a)
	return a, err
}

func (c *Client) GetAccount(ctx context.Context, address string) (Account, error) {
	var a Account
	err := c.do(ctx, http.MethodGet, "/v1/accounts/"+address, nil, &a)
	return a, err
}

func (c *Client) DeleteAccount(ctx context.Context, address string) error {
	return c.do(ctx, http.MethodDelete, "/v1/accounts/"+address, nil, nil)
}

func (c *Client) DataTypes(ctx context.Context) ([]DataType, error) {
	var out []DataType
	err := c.do(ctx, http.MethodGet, "/v1/data-types", nil, &out)
	return out, err
}

func (c *Client) DataSettings(ctx context.Context, address string) ([]DataSetting, error) {
	var out []DataSetting
	err := c.do(ctx, http.MethodGet, "/v1/accounts/"+address+"/data-settings", nil, &out)
	return out, err
}

func (c *Client) UpsertDataSettings(ctx context.Context, address string, settings []DataSetting) ([]DataSetting, error) {
	var out []DataSetting
	body := map[string]interface{}{"accountDataSettings": settings}
	err := c.do(ctx, http.MethodPut, "/v1/accounts/"+address+"/data-settings", body, &out)
	return out, err
}

// Address books

type AddressBookItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type AddressBook struct {
	ID        string            `json:"id"`
	AccountID string            `json:"accountId"`
	ChainID   string            `json:"chainId"`
	Data      []AddressBookItem `json:"data"`
}

func (c *Client) bookPath(owner string) string {
	return "/v1/accounts/" + owner + "/address-books/" + url.PathEscape(c.chainID)
}

func (c *Client) AddressBook(ctx context.Context, owner string) (AddressBook, error) {
	var b AddressBook
	err := c.do(ctx, http.MethodGet, c.bookPath(owner), nil, &b)
	return b, err
}

func (c *Client) CreateAddressBookItem(ctx context.Context, owner, name, address string) (AddressBookItem, error) {
	var it AddressBookItem
	err := c.do(ctx, http.MethodPost, c.bookPath(owner), AddressBookItem{Name: name, Address: address}, &it)
	return it, err
}

func (c *Client) UpdateAddressBookItem(ctx context.Context, owner, id, name, address string) (AddressBookItem, error) {
	var it AddressBookItem
	err := c.do(ctx, http.MethodPut, c.bookPath(owner)+"/"+url.PathEscape(id), AddressBookItem{Name: name, Address: address}, &it)
	return it, err
}

func (c *Client) DeleteAddressBookItem(ctx context.Context, owner, id string) error {
	return c.do(ctx, http.MethodDelete, c.bookPath(owner)+"/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteAddressBook(ctx context.Context, owner string) error {
	return c.do(ctx, http.MethodDelete, c.bookPath(owner), nil, nil)
}

// Counterfactual safes

type CounterfactualSafe struct {
	ChainID          string   `json:"chainId"`
	Creator          string   `json:"creator,omitempty"`
	FallbackHandler  string   `json:"fallbackHandler"`
	Owners           []string `json:"owners"`
	PredictedAddress string   `json:"predictedAddress"`
	SaltNonce        string   `json:"saltNonce"`
	SingletonAddress string   `json:"singletonAddress"`
	Threshold        int      `json:"threshold"`
	CreatedAt        int64    `json:"createdAt,omitempty"`
}

func (c *Client) CreateCounterfactualSafe(ctx context.Context, creator string, in CounterfactualSafe) (CounterfactualSafe, error) {
	var out CounterfactualSafe
	err := c.do(ctx, http.MethodPost, "/v1/accounts/"+creator+"/counterfactual-safes", in, &out)
	return out, err
}

func (c *Client) CounterfactualSafe(ctx context.Context, creator, predicted string) (CounterfactualSafe, error) {
	var out CounterfactualSafe
	path := "/v1/accounts/" + creator + "/counterfactual-safes/" + url.PathEscape(c.chainID) + "/" + predicted
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) CounterfactualSafes(ctx context.Context, creator string) ([]CounterfactualSafe, error) {
	var out []CounterfactualSafe
	err := c.do(ctx, http.MethodGet, "/v1/accounts/"+creator+"/counterfactual-safes", nil, &out)
	return out, err
}

func (c *Client) DeleteCounterfactualSafe(ctx context.Context, creator, predicted string) error {
	path := "/v1/accounts/" + creator + "/counterfactual-safes/" + url.PathEscape(c.chainID) + "/" + predicted
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) DeleteCounterfactualSafes(ctx context.Context, creator string) error {
	return c.do(ctx, http.MethodDelete, "/v1/accounts/"+creator+"/counterfactual-safes", nil, nil)
}

// Transactions

type Confirmation struct {
	Signer      string `json:"signer"`
	Signature   string `json:"signature"`
	SubmittedAt int64  `json:"submittedAt"`
}

type Transaction struct {
	SafeTxHash    string         `json:"safeTxHash"`
	Safe          string         `json:"safe"`
	ChainID       string         `json:"chainId"`
	Nonce         uint64         `json:"nonce"`
	To            string         `json:"to"`
	Value         string         `json:"value"`
	Data          string         `json:"data"`
	Operation     int            `json:"operation"`
	Proposer      string         `json:"proposer"`
	Confirmations []Confirmation `json:"confirmations"`
	Status        string         `json:"txStatus"`
	SubmittedAt   int64          `json:"submittedAt"`
	ExecutedAt    *int64         `json:"executedAt"`
	TxHash        *string        `json:"txHash"`
}

type Nonces struct {
	CurrentNonce     uint64 `json:"currentNonce"`
	RecommendedNonce uint64 `json:"recommendedNonce"`
}

type ProposeTransaction struct {
	To             string  `json:"to"`
	Value          string  `json:"value"`
	Data           string  `json:"data,omitempty"`
	Nonce          string  `json:"nonce"`
	Operation      int     `json:"operation"`
	SafeTxGas      string  `json:"safeTxGas"`
	BaseGas        string  `json:"baseGas"`
	GasPrice       string  `json:"gasPrice"`
	GasToken       string  `json:"gasToken,omitempty"`
	RefundReceiver string  `json:"refundReceiver,omitempty"`
	SafeTxHash     string  `json:"safeTxHash"`
	Sender         string  `json:"sender"`
	Signature      string  `json:"signature"`
	Origin         *string `json:"origin,omitempty"`
}

type page[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

func (c *Client) Nonces(ctx context.Context, safe string) (Nonces, error) {
	var n Nonces
	err := c.do(ctx, http.MethodGet, c.chainPath("/safes/%s/nonces", safe), nil, &n)
	return n, err
}

func (c *Client) Queue(ctx context.Context, safe string) ([]Transaction, error) {
	var p page[Transaction]
	err := c.do(ctx, http.MethodGet, c.chainPath("/safes/%s/transactions/queued", safe), nil, &p)
	return p.Results, err
}

func (c *Client) History(ctx context.Context, safe string) ([]Transaction, error) {
	var p page[Transaction]
	err := c.do(ctx, http.MethodGet, c.chainPath("/safes/%s/transactions/history", safe), nil, &p)
	return p.Results, err
}

func (c *Client) Propose(ctx context.Context, safe string, in ProposeTransaction) (Transaction, error) {
	var tx Transaction
	err := c.do(ctx, http.MethodPost, c.chainPath("/safes/%s/transactions/propose", safe), in, &tx)
	return tx, err
}

func (c *Client) Transaction(ctx context.Context, safeTxHash string) (Transaction, error) {
	var tx Transaction
	err := c.do(ctx, http.MethodGet, c.chainPath("/transactions/%s", safeTxHash), nil, &tx)
	return tx, err
}

func (c *Client) Confirm(ctx context.Context, safeTxHash, signature string) (Transaction, error) {
	var tx Transaction
	body := map[string]string{"signature": signature}
	err := c.do(ctx, http.MethodPost, c.chainPath("/transactions/%s/confirmations", safeTxHash), body, &tx)
	return tx, err
}

func (c *Client) DeleteTransaction(ctx context.Context, safeTxHash, signature string) error {
	body := map[string]string{"signature": signature}
	return c.do(ctx, http.MethodDelete, c.chainPath("/transactions/%s", safeTxHash), body, nil)
}

// Delegates

type Delegate struct {
	Safe      *string `json:"safe"`
	Delegate  string  `json:"delegate"`
	Delegator string  `json:"delegator"`
	Label     string  `json:"label"`
}

type CreateDelegate struct {
	Safe      *string `json:"safe,omitempty"`
	Delegate  string  `json:"delegate"`
	Delegator string  `json:"delegator"`
	Signature string  `json:"signature"`
	Label     string  `json:"label"`
}

type DeleteDelegate struct {
	Delegate  string  `json:"-"`
	Delegator *string `json:"delegator,omitempty"`
	Safe      *string `json:"safe,omitempty"`
	Signature string  `json:"signature"`
}

// DelegateQuery filters Delegates; empty fields are not sent.
type DelegateQuery struct {
	Safe      string
	Delegate  string
	Delegator string
	Label     string
}

func (c *Client) delegatesPath() string {
	return "/v2/chains/" + url.PathEscape(c.chainID) + "/delegates"
}

func (c *Client) CreateDelegate(ctx context.Context, in CreateDelegate) error {
	return c.do(ctx, http.MethodPost, c.delegatesPath(), in, nil)
}

func (c *Client) DeleteDelegate(ctx context.Context, in DeleteDelegate) error {
	return c.do(ctx, http.MethodDelete, c.delegatesPath()+"/"+in.Delegate, in, nil)
}

func (c *Client) Delegates(ctx context.Context, q DelegateQuery) ([]Delegate, error) {
	values := url.Values{}
	for k, v := range map[string]string{"safe": q.Safe, "delegate": q.Delegate, "delegator": q.Delegator, "label": q.Label} {
		if v != "" {
			values.Set(k, v)
		}
	}
	path := c.delegatesPath()
	if len(values) > 0 {
		path += "?" + values.Encode()
	}
	var p page[Delegate]
	err := c.do(ctx, http.MethodGet, path, nil, &p)
	return p.Results, err
}
