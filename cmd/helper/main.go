// Command helper encrypts and decrypts "enc:" environment secrets with the
// key in PRIVATE_KEY.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"portal/internal/config"
	"portal/internal/utils/crypto"
	"portal/internal/utils/logger"
)

func main() {
	var log = logger.New("helper")
	log.Info("🔑 Starting encryption/decryption helper CLI")

	if err := godotenv.Load(); err != nil {
		log.Warn("No .env loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		_ = log.Error("❌ Failed to load configuration", err)
		os.Exit(1)
	}
	keys, err := crypto.LoadKeys(cfg.Crypto.PrivateKey)
	if err != nil {
		_ = log.Error("❌ Failed to initialize keys", err)
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("Enter 'e' to encrypt, 'd' to decrypt, or 'q' to quit: ")
		choice, err := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)
		if choice == "q" || (err != nil && choice == "") {
			log.Info("👋 Exiting helper CLI")
			return
		}

		fmt.Print("Enter the string to process: ")
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch choice {
		case "e":
			encrypted, err := keys.Encrypt(input)
			if err != nil {
				_ = log.Error("❌ Encryption failed", err)
				continue
			}
			log.Success("✅ Encrypted value: %s%s", config.EncryptedPrefix, encrypted)
		case "d":
			decrypted, err := keys.Decrypt(strings.TrimPrefix(input, config.EncryptedPrefix))
			if err != nil {
				_ = log.Error("❌ Decryption failed", err)
				continue
			}
			log.Success("✅ Decrypted string: %s", decrypted)
		default:
			log.Warn("⚠️ Invalid choice. Please enter 'e', 'd', or 'q'.")
		}
	}
}
