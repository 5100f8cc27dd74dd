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

	DBPath           string
	CompetitionsFile string

	AdminTGIDs map[int64]bool

	HTTPAddr      string
	BasePublicURL string
	ExportSecret  string

	ProposalTTL time.Duration
}

func FromEnv() (Config, error) {
	var c Config
	c.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	c.DBPath = strings.TrimSpace(os.Getenv("DB_PATH"))
	if c.DBPath == "" {
		c.DBPath = "running_bot.db"
	}
	c.CompetitionsFile = strings.TrimSpace(os.Getenv("COMPETITIONS_FILE"))

	c.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	c.BasePublicURL = strings.TrimRight(strings.TrimSpace(os.Getenv("BASE_PUBLIC_URL")), "/")

	c.ExportSecret = strings.TrimSpace(os.Getenv("EXPORT_SECRET"))
	if c.ExportSecret == "" {
		c.ExportSecret = "change-me"
	}

	ttlDays := 14
	if raw := strings.TrimSpace(os.Getenv("PROPOSAL_TTL_DAYS")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return c, fmt.Errorf("PROPOSAL_TTL_DAYS: bad value %q", raw)
		}
		ttlDays = v
	}
	c.ProposalTTL = time.Duration(ttlDays) * 24 * time.Hour

	if c.TelegramToken == "" {
		return c, fmt.Errorf("TELEGRAM_BOT_TOKEN is empty")
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
	parts := strings.Split(raw, ",")
	for _, p := range parts {
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
