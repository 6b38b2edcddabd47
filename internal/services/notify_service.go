package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// NotifyService sends operational notifications to Telegram.
type NotifyService struct {
	botToken    string
	adminChatID string
}

// NewNotifyService creates a NotifyService. It degrades to a no-op when the
// bot token or chat ID is missing.
func NewNotifyService(botToken, adminChatID string) *NotifyService {
	return &NotifyService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to the specified chat.
func (s *NotifyService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Notify] failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Notify] unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *NotifyService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// SaleItemNotification is one line of a sale notification.
type SaleItemNotification struct {
	Name      string
	Quantity  int
	UnitPrice float64
}

// SaleNotification contains the data announced after checkout.
type SaleNotification struct {
	SaleNumber    string
	Items         []SaleItemNotification
	TotalAmount   float64
	Currency      string
	PaymentMethod string
	CashierName   string
}

// NotifySale announces a completed sale to the admin chat.
func (s *NotifyService) NotifySale(n SaleNotification) error {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🧾 <b>Sale %s</b>\n", n.SaleNumber))
	for _, item := range n.Items {
		sb.WriteString(fmt.Sprintf("• %s × %d — %.2f %s\n", item.Name, item.Quantity, item.UnitPrice*float64(item.Quantity), n.Currency))
	}
	sb.WriteString(fmt.Sprintf("\nTotal: <b>%.2f %s</b>\n", n.TotalAmount, n.Currency))
	sb.WriteString(fmt.Sprintf("Payment: %s\n", n.PaymentMethod))
	if n.CashierName != "" {
		sb.WriteString(fmt.Sprintf("Cashier: %s\n", n.CashierName))
	}
	return s.SendToAdmin(sb.String())
}

// NotifyLowStock warns the admin chat that a product dropped below threshold.
func (s *NotifyService) NotifyLowStock(productName, sku string, stock int) error {
	text := fmt.Sprintf("⚠️ <b>Low stock</b>\n%s (%s): %d left", productName, sku, stock)
	return s.SendToAdmin(text)
}
