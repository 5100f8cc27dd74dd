package server

import (
	"net/http"
	"strconv"

	"running-bot/internal/config"
	"running-bot/internal/tgbot"
	"running-bot/internal/util"
)

func New(cfg config.Config, bot *tgbot.App) *http.Server {
	mux := http.NewServeMux()

	// CSV export (admin-only link with token = HMAC)
	mux.HandleFunc("/export/competition.csv", func(w http.ResponseWriter, r *http.Request) {
		rawID := r.URL.Query().Get("competition_id")
		token := r.URL.Query().Get("token")
		if rawID == "" || token == "" {
			http.Error(w, "competition_id and token required", http.StatusBadRequest)
			return
		}
		compID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || compID <= 0 {
			http.Error(w, "bad competition_id", http.StatusBadRequest)
			return
		}
		expected := util.HMACSHA256Hex(cfg.ExportSecret, "export:"+rawID)
		if token != expected {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		csv, err := bot.BuildCompetitionCSV(compID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="competition_`+rawID+`.csv"`)
		_, _ = w.Write([]byte(csv))
	})

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}
