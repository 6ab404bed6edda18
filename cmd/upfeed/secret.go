package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/upfeed/internal/secrets"
)

const defaultKeyringAccount = "upfeed-bot"

var keyringAccount string

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the bot token in the OS keychain",
}

var secretSetCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Store the Telegram bot token",
	Long:  "Reads the bot token from stdin and stores it in the OS keychain. Point telegram.token_keyring_account at the same account.",
	RunE:  runSecretSet,
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete-token",
	Short: "Remove the Telegram bot token",
	RunE:  runSecretDelete,
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
	secretCmd.PersistentFlags().StringVar(&keyringAccount, "account", defaultKeyringAccount, "keychain account name")
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	fmt.Fprint(os.Stderr, "Bot token: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading token: %w", err)
	}

	if err := secrets.SetBotToken(keyringAccount, strings.TrimSpace(line)); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Token stored for account %q.\n", keyringAccount)
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	if err := secrets.DeleteBotToken(keyringAccount); err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Token deleted for account %q.\n", keyringAccount)
	return nil
}
