// Package main is the Kotae CLI entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/chat"
	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generate"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys are commonly kept in a local .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "chat":
		runChat()
	case "upload":
		runUpload()
	case "files":
		runFiles()
	case "stats":
		runStats()
	case "clear":
		runClear()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Directory != "" {
		idx := components.Indexer
		watchSvc := watcher.New(cfg.Watch.Directory, cfg.Watch.Extensions, func(path string) {
			if _, err := idx.IngestFile(context.Background(), path); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		}, logger)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Chat,
		components.Indexer,
		components.Store,
		components.Registry,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = run the pipeline in-process)")
	noRAG := fs.Bool("no-rag", false, "disable retrieval; chat with the model directly")
	filesFlag := fs.String("files", "", "comma-separated filenames to restrict retrieval to")
	_ = fs.Parse(os.Args[2:])

	useRAG := !*noRAG
	var selected []string
	if *filesFlag != "" {
		for _, f := range strings.Split(*filesFlag, ",") {
			if f = strings.TrimSpace(f); f != "" {
				selected = append(selected, f)
			}
		}
	}
	sessionID := uuid.NewString()

	var ask func(message string) (*models.ChatResponse, error)
	if *serverURL != "" {
		ask = func(message string) (*models.ChatResponse, error) {
			return chatViaHTTP(*serverURL, &models.ChatRequest{
				Message:       message,
				UseRAG:        &useRAG,
				SelectedFiles: selected,
				SessionID:     sessionID,
			})
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ask = func(message string) (*models.ChatResponse, error) {
			return components.Chat.Chat(context.Background(), &models.ChatRequest{
				Message:       message,
				UseRAG:        &useRAG,
				SelectedFiles: selected,
				SessionID:     sessionID,
			})
		}
	}

	fmt.Println("Type a question; \"exit\" or \"quit\" to leave.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		resp, err := ask(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
			continue
		}
		fmt.Println(resp.Reply)
		if resp.UsedRAG {
			fmt.Printf("(%d context chunk(s) used)\n", resp.RetrievedChunks)
		}
	}
}

func chatViaHTTP(serverURL string, req *models.ChatRequest) (*models.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = ingest in-process)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae upload [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	if *serverURL != "" {
		resp, err := uploadViaHTTP(*serverURL, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %s: %d chunk(s), %d char(s) extracted (%d total in collection)\n",
			resp.Filename, resp.NumChunks, resp.TextLength, resp.Stats.TotalChunks)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}
	resp, err := components.Indexer.IngestBytes(context.Background(), content, filepath.Base(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %s: %d chunk(s), %d char(s) extracted (%d total in collection)\n",
		resp.Filename, resp.NumChunks, resp.TextLength, resp.Stats.TotalChunks)
}

func uploadViaHTTP(serverURL, path string) (*models.UploadResponse, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/documents", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func runFiles() {
	fs := flag.NewFlagSet("files", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/documents")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "List failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Documents []models.FileInfo `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	if len(out.Documents) == 0 {
		fmt.Println("No documents uploaded.")
		return
	}
	for _, d := range out.Documents {
		fmt.Printf("%s  %d chunk(s)\n", d.Filename, d.ChunkCount)
	}
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Stats failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
		os.Exit(1)
	}

	if *outputFormat == "json" {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, payload, "", "  "); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(pretty.String())
		return
	}

	var status struct {
		Documents      int64  `json:"documents"`
		TotalChunks    int    `json:"total_chunks"`
		Collection     string `json:"collection"`
		DiskUsageBytes *int64 `json:"disk_usage_bytes"`
	}
	if err := json.Unmarshal(payload, &status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("collection:       %s\n", status.Collection)
	fmt.Printf("documents:        %d\n", status.Documents)
	fmt.Printf("total_chunks:     %d\n", status.TotalChunks)
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes: %d\n", *status.DiskUsageBytes)
	}
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/documents", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Clear failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Println("Collection cleared.")
}

// Components holds initialized services.
type Components struct {
	Embedder embedding.Embedder
	Store    *vector.Store
	Registry storage.Registry
	Indexer  *indexer.Indexer
	Chat     *chat.Service
}

func (c *Components) Close() {
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	store, err := vector.NewStore(cfg.Storage.PersistDir, cfg.Storage.CollectionName, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	registry, err := storage.NewSQLiteRegistry(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload registry: %w", err)
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	ch := chunker.New(cfg.Chat.ChunkSize, cfg.Chat.ChunkOverlap)
	idx := indexer.New(ch, store, registry, cfg.Storage.UploadDir, logger)
	chatSvc := chat.NewService(store, generator, cfg.Chat.NResults, cfg.Chat.MaxHistory, logger)

	return &Components{
		Embedder: embedder,
		Store:    store,
		Registry: registry,
		Indexer:  idx,
		Chat:     chatSvc,
	}, nil
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	if cfg.Embedding.Mock {
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions), nil
	}
	var apiKey string
	if cfg.Embedding.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.Embedding.APIKeyEnv)
	}
	client, err := embedding.NewClient(embedding.ClientConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		APIKey:     apiKey,
	})
	if err != nil {
		return nil, err
	}
	return embedding.NewCachedEmbedder(client, cfg.Embedding.CacheSize), nil
}

func newGenerator(cfg *config.Config) (generate.Generator, error) {
	switch cfg.Generation.Provider {
	case "anthropic":
		return generate.NewAnthropic(
			os.Getenv("ANTHROPIC_API_KEY"),
			cfg.Generation.Model,
			cfg.Generation.MaxTokens,
		)
	case "ollama", "":
		timeout := time.Duration(cfg.Generation.TimeoutSeconds) * time.Second
		return generate.NewOllama(cfg.Generation.BaseURL, cfg.Generation.Model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Generation.Provider)
	}
}

func printUsage() {
	fmt.Println(`kotae - Retrieval-augmented chat over your documents

Usage:
  kotae server [flags]          Start the HTTP server
  kotae chat [flags]            Interactive chat session
  kotae upload [flags] <file>   Upload and index a document
  kotae files [flags]           List uploaded documents
  kotae stats [flags]           Show collection status
  kotae clear [flags]           Delete all documents
  kotae version                 Show version
  kotae help                    Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Chat Flags:
  --config string    Config file path (for in-process mode)
  --server string    Server URL (empty = run the pipeline in-process, default)
  --no-rag           Disable retrieval; chat with the model directly
  --files string     Comma-separated filenames to restrict retrieval to

Upload Flags:
  --config string    Config file path (for in-process mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to ingest in-process.

Stats Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae upload report.pdf
  kotae chat
  kotae chat --files report.pdf --server http://localhost:8080
  kotae stats --output json
  kotae clear`)
}
