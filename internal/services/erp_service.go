package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/tillpoint/internal/config"
	"github.com/example/tillpoint/internal/models"
	"github.com/example/tillpoint/internal/session"
	"github.com/example/tillpoint/internal/storage"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

var ErrERPDisabled = errors.New("erp: upstream integration is disabled")

// ERPService talks to the upstream ERP: it pushes completed sales and pulls
// stock snapshots. Its access credential is owned by a session.Scheduler,
// which renews it ahead of expiry.
type ERPService struct {
	baseURL  string
	email    string
	password string
	enabled  bool
	session  *session.Scheduler
}

// NewERPService wires the ERP client with a durable credential store.
func NewERPService(cfg *config.Config, store storage.KV) *ERPService {
	s := &ERPService{
		baseURL:  strings.TrimRight(cfg.ERPBaseURL, "/"),
		email:    cfg.ERPEmail,
		password: cfg.ERPPassword,
		enabled:  cfg.ERPEnabled && cfg.ERPBaseURL != "",
	}
	s.session = session.NewScheduler(&erpAuthClient{service: s}, store)
	return s
}

// Session exposes the credential scheduler, mainly for shutdown.
func (s *ERPService) Session() *session.Scheduler {
	return s.session
}

// Connect restores a persisted session or performs a fresh login.
func (s *ERPService) Connect(ctx context.Context) error {
	if !s.enabled {
		return ErrERPDisabled
	}

	if err := s.session.Restore(ctx); err != nil {
		log.Printf("[ERP] failed to restore session: %v", err)
	}
	if s.session.Credential().Valid() {
		return nil
	}

	cred, err := s.login(ctx)
	if err != nil {
		return err
	}
	return s.session.SetCredential(ctx, cred)
}

type erpCredentialPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	TenantID     string `json:"tenant_id"`
	Role         string `json:"role"`
	Email        string `json:"email"`
}

func (p *erpCredentialPayload) credential() *session.Credential {
	return &session.Credential{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		UserID:       p.UserID,
		TenantID:     p.TenantID,
		Role:         p.Role,
		Email:        p.Email,
	}
}

func (s *ERPService) login(ctx context.Context) (*session.Credential, error) {
	var payload erpCredentialPayload
	err := s.post(ctx, "/auth/login", map[string]string{
		"email":    s.email,
		"password": s.password,
	}, "", &payload)
	if err != nil {
		return nil, fmt.Errorf("erp login: %w", err)
	}
	return payload.credential(), nil
}

// erpAuthClient adapts the ERP auth endpoints to the scheduler's contract.
type erpAuthClient struct {
	service *ERPService
}

func (c *erpAuthClient) Refresh(ctx context.Context, refreshToken string) (*session.Credential, error) {
	var payload erpCredentialPayload
	err := c.service.post(ctx, "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, "", &payload)
	if err != nil {
		return nil, fmt.Errorf("erp refresh: %w", err)
	}
	return payload.credential(), nil
}

func (c *erpAuthClient) Revoke(ctx context.Context, refreshToken string) error {
	return c.service.post(ctx, "/auth/revoke", map[string]string{
		"refresh_token": refreshToken,
	}, "", nil)
}

// ERPSaleResult carries the upstream identifiers of a pushed sale.
type ERPSaleResult struct {
	SaleID string `json:"sale_id"`
	Number string `json:"number"`
}

type erpSaleItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type erpSalePayment struct {
	Method    string  `json:"method"`
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference,omitempty"`
}

// PushSale records a completed sale upstream.
func (s *ERPService) PushSale(ctx context.Context, sale *models.Sale) (*ERPSaleResult, error) {
	if !s.enabled {
		return nil, ErrERPDisabled
	}

	items := make([]erpSaleItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		erpItem := erpSaleItem{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		if item.ProductID != nil {
			erpItem.ProductID = item.ProductID.String()
		}
		items = append(items, erpItem)
	}

	payments := make([]erpSalePayment, 0, len(sale.Payments))
	for _, payment := range sale.Payments {
		payments = append(payments, erpSalePayment{
			Method:    payment.Method,
			Amount:    payment.Amount,
			Reference: payment.Reference,
		})
	}

	body := map[string]any{
		"number":   sale.SaleNumber,
		"currency": sale.Currency,
		"total":    sale.TotalAmount,
		"items":    items,
		"payments": payments,
	}

	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var result ERPSaleResult
	if err := s.post(ctx, "/sales", body, token, &result); err != nil {
		return nil, fmt.Errorf("erp push sale: %w", err)
	}
	return &result, nil
}

// ERPStockLevel is one product's stock as reported by the ERP.
type ERPStockLevel struct {
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

// FetchStock pulls the current stock snapshot from the ERP.
func (s *ERPService) FetchStock(ctx context.Context) ([]ERPStockLevel, error) {
	if !s.enabled {
		return nil, ErrERPDisabled
	}

	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/stock", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var levels []ERPStockLevel
	if err := s.do(req, &levels); err != nil {
		return nil, fmt.Errorf("erp fetch stock: %w", err)
	}
	return levels, nil
}

func (s *ERPService) accessToken(ctx context.Context) (string, error) {
	cred := s.session.Credential()
	if !cred.Valid() {
		if err := s.Connect(ctx); err != nil {
			return "", err
		}
		cred = s.session.Credential()
	}
	if !cred.Valid() {
		return "", ErrNoSession
	}
	return cred.AccessToken, nil
}

var ErrNoSession = errors.New("erp: no active session")

func (s *ERPService) post(ctx context.Context, path string, body any, token string, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return s.do(req, out)
}

func (s *ERPService) do(req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return fmt.Errorf("upstream returned %d: %s", resp.StatusCode, msg)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
