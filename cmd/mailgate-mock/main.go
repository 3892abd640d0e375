// A stand-in for the external mail gateway, for local development. It
// accepts messages on /send and logs them instead of delivering anything.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type mailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	port := getEnv("MAILGATE_PORT", "8090")

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"mailgate-mock"}`))
	}).Methods("GET")

	router.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		var msg mailMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if msg.To == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}

		logger.WithFields(logrus.Fields{
			"to":      msg.To,
			"subject": msg.Subject,
		}).Info("Mail accepted (not delivered, mock)")

		w.WriteHeader(http.StatusAccepted)
	}).Methods("POST")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.WithField("port", port).Info("Starting mailgate mock")
	if err := srv.ListenAndServe(); err != nil {
		logger.WithError(err).Fatal("Failed to start mailgate mock")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
