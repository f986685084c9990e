package main

import (
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"tasklist-backend/internal/config"
	"tasklist-backend/internal/db"
	"tasklist-backend/internal/middleware"
	"tasklist-backend/internal/tasks"
)

// ----------------------
//        MAIN
// ----------------------

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load config: ", err)
	}

	logger := newLogger(cfg.LogLevel)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("Failed to open DB: ", err)
	}
	defer database.Close()

	if err := db.Init(database); err != nil {
		logger.Fatal("Failed to apply schema: ", err)
	}
	logger.Info("DB ready at ", cfg.DBPath)

	store := tasks.NewStore(database)
	handler := tasks.NewHandler(store, logger)

	mux := http.NewServeMux()

	// Health endpoint
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// ----- TASKS API -----
	mux.HandleFunc("GET /api/tasks", handler.List)
	mux.HandleFunc("POST /api/tasks", handler.Create)
	mux.HandleFunc("GET /api/tasks/{id}", handler.Get)
	mux.HandleFunc("PATCH /api/tasks/{id}", handler.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", handler.Delete)

	// Browser UI
	mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	chain := middleware.RequestID(middleware.Logging(logger)(c.Handler(mux)))

	logger.Info("API server is running on ", cfg.Addr())
	logger.Fatal(http.ListenAndServe(cfg.Addr(), chain))
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "ts",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}
