package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/amishk599/upfeed/internal/config"
)

// KeyringService groups upfeed's secrets in the OS keychain.
const KeyringService = "upfeed"

// BotToken returns the Telegram bot token: the configured value when set,
// otherwise the keychain entry for telegram.token_keyring_account.
func BotToken(cfg config.TelegramConfig) (string, error) {
	if strings.TrimSpace(cfg.Token) != "" {
		return cfg.Token, nil
	}
	if strings.TrimSpace(cfg.TokenKeyringAccount) == "" {
		return "", errors.New("telegram bot token not configured")
	}

	token, err := keyring.Get(KeyringService, cfg.TokenKeyringAccount)
	if err != nil {
		return "", fmt.Errorf("reading bot token from keychain (%s): %w", cfg.TokenKeyringAccount, err)
	}
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("keychain entry %s is empty", cfg.TokenKeyringAccount)
	}
	return token, nil
}

// SetBotToken stores token in the keychain under account.
func SetBotToken(account, token string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, account, token)
}

// DeleteBotToken removes the keychain entry for account.
func DeleteBotToken(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}
