package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pokeclass/pokeclass/pkg/logger"
	"gorm.io/gorm"
)

// TelegramNotifier sends owner audit messages to a Telegram chat and
// student messages to students who linked a Telegram account. Students
// without a link are skipped silently.
type TelegramNotifier struct {
	api         *tgbotapi.BotAPI
	ownerChatID int64
	db          *gorm.DB
}

func NewTelegramNotifier(token string, ownerChatID int64, db *gorm.DB) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram notifier: %w", err)
	}
	logger.Info("Telegram notifier ready", "bot", api.Self.UserName)
	return &TelegramNotifier{api: api, ownerChatID: ownerChatID, db: db}, nil
}

func (n *TelegramNotifier) NotifyStudent(studentID uint, title, message string) error {
	chatID, err := n.studentChatID(studentID)
	if err != nil || chatID == 0 {
		// Not linked; nothing to deliver.
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s\n%s", title, message))
	_, err = n.api.Send(msg)
	return err
}

func (n *TelegramNotifier) NotifyOwners(title, message string) error {
	if n.ownerChatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(n.ownerChatID, fmt.Sprintf("%s\n%s", title, message))
	_, err := n.api.Send(msg)
	return err
}

func (n *TelegramNotifier) studentChatID(studentID uint) (int64, error) {
	var link struct {
		ChatID int64
	}
	err := n.db.Table("student_telegram_links").
		Select("chat_id").
		Where("student_id = ?", studentID).
		Take(&link).Error
	if err != nil {
		return 0, err
	}
	return link.ChatID, nil
}
