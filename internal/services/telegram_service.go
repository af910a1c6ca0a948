package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/vitalux/internal/models"
)

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
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
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// FormatPoints renders a point total with thousand separators.
func FormatPoints(points int) string {
	str := fmt.Sprintf("%d", points)
	negative := strings.HasPrefix(str, "-")
	if negative {
		str = str[1:]
	}

	var result strings.Builder
	length := len(str)
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	formatted := result.String()
	if negative {
		formatted = "-" + formatted
	}
	return formatted + " pts"
}

// NotifyTierChange sends a best-effort admin notification when a member's
// discount tier changes.
func (s *TelegramService) NotifyTierChange(user *models.User, newPercent, recentTotal int, validUntil time.Time) error {
	if s.adminChatID == "" {
		return nil
	}

	direction := "⬆️ TIER UPGRADE"
	if newPercent < user.DiscountPercent {
		direction = "⬇️ TIER DOWNGRADE"
	}

	message := fmt.Sprintf(`<b>%s</b>
<b>👤 Member:</b> %s
<b>📞 Phone:</b> %s
<b>🏷 Discount:</b> %d%% → %d%%
<b>⭐ Recent points:</b> %s
<b>📅 Valid until:</b> %s
━━━━━━━━━━━━━━━━━━`,
		direction,
		user.DisplayName,
		user.Phone,
		user.DiscountPercent,
		newPercent,
		FormatPoints(recentTotal),
		validUntil.Format("2006-01-02"),
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}
