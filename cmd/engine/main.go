// Command engine runs the EDL rendering service.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"edlengine/internal/config"
	"edlengine/internal/edl"
	"edlengine/internal/engine"
	"edlengine/internal/logger"
	"edlengine/internal/media"
	"edlengine/internal/transport"
)

var port int
var logLevel string

var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Offline audio editing engine server",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the engine HTTP+WebSocket server",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	serveCmd.Flags().IntVar(&port, "port", 0, "listen port (default from ENGINE_PORT or 50051)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "log level override")
	rootCmd.AddCommand(serveCmd)
}

func runServe() {
	cfg := config.Load()
	if port != 0 {
		cfg.Port = port
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger.Init(logger.Config{Level: logger.Level(cfg.LogLevel), OutputPath: cfg.LogPath})

	cache := media.NewCache(media.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
		StageDir:  cfg.MediaStageDir,
	})
	store := edl.NewStore(cache)
	eng := engine.New(store, cache)
	srv := transport.NewServer(eng)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Listening", logger.String("addr", addr))
	fmt.Printf("Listening on %s\n", addr)

	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Fatal("server exited", logger.Err(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
