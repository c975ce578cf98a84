package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken string

	SpreadsheetID            string
	GoogleServiceAccountJSON string

	AdminTGIDs map[int64]bool

	ExportTokenSecret string

	HTTPAddr      string
	BasePublicURL string // when set, updates arrive via POST /webhook instead of long polling

	// Row 0 of the teams/answers sheets is a header and is skipped on scan.
	HeaderRow bool

	SheetsTimeout time.Duration
}

func FromEnv() (Config, error) {
	var c Config
	c.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	c.SpreadsheetID = strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"))
	c.GoogleServiceAccountJSON = strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))

	c.ExportTokenSecret = strings.TrimSpace(os.Getenv("EXPORT_TOKEN_SECRET"))
	if c.ExportTokenSecret == "" {
		c.ExportTokenSecret = "change-me"
	}

	c.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}

	c.BasePublicURL = strings.TrimRight(strings.TrimSpace(os.Getenv("BASE_PUBLIC_URL")), "/")

	c.HeaderRow = true
	if v := strings.TrimSpace(os.Getenv("TEAMS_HEADER_ROW")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("TEAMS_HEADER_ROW: %w", err)
		}
		c.HeaderRow = b
	}

	c.SheetsTimeout = 5 * time.Second
	if v := strings.TrimSpace(os.Getenv("SHEETS_TIMEOUT_SECONDS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c, fmt.Errorf("SHEETS_TIMEOUT_SECONDS must be a positive integer")
		}
		c.SheetsTimeout = time.Duration(n) * time.Second
	}

	if c.TelegramToken == "" {
		return c, fmt.Errorf("TELEGRAM_BOT_TOKEN is empty")
	}
	if c.SpreadsheetID == "" {
		return c, fmt.Errorf("GOOGLE_SHEETS_SPREADSHEET_ID is empty")
	}
	if c.GoogleServiceAccountJSON == "" {
		return c, fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is empty")
	}

	c.AdminTGIDs = parseAdminIDs(os.Getenv("ADMIN_TG_IDS"))

	return c, nil
}

func parseAdminIDs(raw string) map[int64]bool {
	m := map[int64]bool{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return m
	}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		m[v] = true
	}
	return m
}
