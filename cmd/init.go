package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coursekit/internal/config"
	"coursekit/internal/sheets"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize coursekit configuration",
	Long:  `Set up the marking Google Sheet, the service account credentials, the GitHub token and the time zone.`,
	Run: func(cmd *cobra.Command, args []string) {
		reader := bufio.NewReader(os.Stdin)

		fmt.Print("Enter Google Sheet URL or ID (press Enter to skip): ")
		sheetURL, _ := reader.ReadString('\n')
		sheetURL = strings.TrimSpace(sheetURL)
		if sheetURL != "" {
			sheetID, err := sheets.ExtractSheetID(sheetURL)
			if err != nil {
				fatalf("Invalid Sheet URL/ID: %v", err)
			}
			cfg.SheetID = sheetID

			fmt.Print("Enter path to credentials.json: ")
			credPath, _ := reader.ReadString('\n')
			absPath, err := filepath.Abs(strings.TrimSpace(credPath))
			if err != nil {
				fatalf("Invalid path: %v", err)
			}
			cfg.CredentialsPath = absPath
		}

		// GitHub token (optional)
		fmt.Print("\n--- Optional: GitHub access ---\n")
		fmt.Print("Enter GitHub Token (press Enter to skip): ")
		token := readSecret(reader)
		if token != "" {
			tokenPath, err := config.TokenPath()
			if err != nil {
				fatalf("Failed to locate config dir: %v", err)
			}
			if err := os.MkdirAll(filepath.Dir(tokenPath), 0700); err != nil {
				fatalf("Failed to create config dir: %v", err)
			}
			if err := os.WriteFile(tokenPath, []byte(token+"\n"), 0600); err != nil {
				fatalf("Failed to save token: %v", err)
			}
			cfg.GitHubTokenFile = tokenPath
		}

		fmt.Printf("Enter time zone (default: %s): ", cfg.Timezone)
		tz, _ := reader.ReadString('\n')
		if tz = strings.TrimSpace(tz); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				fatalf("Invalid time zone: %v", err)
			}
			cfg.Timezone = tz
		}

		if err := config.Save(cfg); err != nil {
			fatalf("Failed to save config: %v", err)
		}

		fmt.Println("🎓 Configuration saved successfully! Ready to mark.")
	},
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(reader *bufio.Reader) string {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			fatalf("Failed to read token: %v", err)
		}
		return strings.TrimSpace(string(b))
	}
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func init() {
	rootCmd.AddCommand(initCmd)
}
