package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	transport "trivia-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	recorder := app.NewRecorder(b.store, b.store)
	auth := app.NewAuthService(b.store, b.principals, app.NewTokenIssuer(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)))
	quiz := app.NewQuizService(b.sessions, b.questions, recorder, app.SessionOptions{
		QuestionLimit:   cfg.Quiz.QuestionLimit,
		QuestionSeconds: cfg.Quiz.QuestionSeconds,
	})
	api := &transport.API{
		Auth:        auth,
		Questions:   app.NewQuestionBank(b.store, b.questions),
		Dashboard:   app.NewDashboardService(b.store, b.store, b.store),
		Leaderboard: app.NewLeaderboardService(b.store, b.store),
	}
	writeTimeout := config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second)
	router := transport.NewRouter(api, transport.NewWSHandler(quiz, auth), transport.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Timeout:        writeTimeout,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: writeTimeout + 5*time.Second, // upgraded websockets clear their deadlines
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	recorder.Wait()
	return err
}
