package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"

	sheets "lorrylog/internal/sheets/google"
)

// sheets-init verifies the service account setup before the workers rely on
// it: it loads the credentials, prints the client email to share the
// spreadsheet with, and confirms the account can open the spreadsheet.
func main() {
	creds, source, err := loadCredentials()
	if err != nil {
		log.Fatalf("load credentials: %v", err)
	}

	cfg, err := google.JWTConfigFromJSON(creds, gsheet.SpreadsheetsScope)
	if err != nil {
		log.Fatalf("parse service account JSON: %v", err)
	}
	fmt.Printf("Credentials loaded from %s\n", source)
	fmt.Printf("Service account: %s\n", cfg.Email)
	fmt.Println("Share the spreadsheet with this address (Editor access).")

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		fmt.Println("GOOGLE_SPREADSHEET_ID not set - skipping access check.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := sheets.NewFromEnv(ctx)
	if err != nil {
		log.Fatalf("init sheets client: %v", err)
	}
	title, tabs, err := client.SpreadsheetInfo(ctx)
	if err != nil {
		log.Fatalf("open spreadsheet %s: %v", spreadsheetID, err)
	}

	fmt.Printf("Spreadsheet: %q (%d tabs)\n", title, tabs)
	fmt.Println("Setup looks good.")
}

func loadCredentials() ([]byte, string, error) {
	if v := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"); v != "" {
		return []byte(v), "GOOGLE_SERVICE_ACCOUNT_JSON", nil
	}
	for _, env := range []string{"GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		if path := os.Getenv(env); path != "" {
			b, err := os.ReadFile(path)
			if err != nil {
				return nil, "", fmt.Errorf("read %s: %w", env, err)
			}
			return b, env, nil
		}
	}
	return nil, "", fmt.Errorf("set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS")
}
