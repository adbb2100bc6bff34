// File: cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/ksamadi/omnichat/internal/config"
	"github.com/ksamadi/omnichat/internal/domain"
	"github.com/ksamadi/omnichat/internal/handlers"
	"github.com/ksamadi/omnichat/internal/middleware"
	"github.com/ksamadi/omnichat/internal/repository/chatgroup"
	"github.com/ksamadi/omnichat/internal/repository/document"
	"github.com/ksamadi/omnichat/internal/repository/message"
	"github.com/ksamadi/omnichat/internal/repository/user"
	"github.com/ksamadi/omnichat/internal/services"
	"github.com/ksamadi/omnichat/internal/services/ai"
	"github.com/ksamadi/omnichat/internal/services/chat"
	"github.com/ksamadi/omnichat/internal/services/judge"
	"github.com/ksamadi/omnichat/internal/services/pinecone"
	"github.com/ksamadi/omnichat/internal/services/tools"
)

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg := config.Load()
	logger := services.NewLogger("omnichat")

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}

	if err := db.AutoMigrate(&domain.User{}, &domain.ChatGroup{}, &domain.Message{}, &domain.Document{}); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	// --- Repositories ---
	userRepo := user.NewUserRepository(db)
	chatGroupRepo := chatgroup.NewChatGroupRepository(db)
	messageRepo := message.NewMessageRepository(db)
	documentRepo := document.NewDocumentRepository(db)

	// --- Provider ---
	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.OpenAIAPIKey
	aiConfig.BaseURL = cfg.OpenAIBaseURL
	aiConfig.DefaultModel = cfg.DefaultModel
	aiConfig.EmbeddingModel = cfg.EmbeddingModelName

	provider, err := ai.NewOpenAIProvider(aiConfig, services.NewLogger("ai"))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize AI provider: %v", err)
	}

	// --- Tool collaborators ---
	var mailProvider tools.MailProvider
	if cfg.MailBridgeURL != "" {
		mailConfig := tools.DefaultMailConfig()
		mailConfig.BridgeURL = cfg.MailBridgeURL
		mailConfig.AccessKey = cfg.MailAccessKey
		mailProvider, err = tools.NewBridgeMailProvider(mailConfig)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize mail bridge: %v", err)
		}
	} else {
		logger.Warn("mail bridge not configured, mail tool disabled")
	}

	searchConfig := tools.DefaultSearchConfig()
	if cfg.SearchBaseURL != "" {
		searchConfig.BaseURL = cfg.SearchBaseURL
	}

	dispatcher := tools.NewDispatcher(
		mailProvider,
		tools.NewRepositoryDocumentStore(documentRepo),
		tools.NewHTMLSearchProvider(searchConfig),
		services.NewLogger("tools"),
	)

	// --- Services ---
	chatConfig := chat.DefaultConfig()
	chatConfig.DefaultModel = cfg.DefaultModel
	chatConfig.PersonaModel = cfg.PersonaModel
	chatConfig.TitleModel = cfg.DefaultModel

	streamingService, err := chat.NewStreamingService(chatConfig, chatGroupRepo, messageRepo, provider, dispatcher, services.NewLogger("chat"))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize streaming service: %v", err)
	}
	groupService := chat.NewGroupService(chatConfig, chatGroupRepo, messageRepo, provider, services.NewLogger("chat"))

	judgeService, pineconeClient, err := buildJudgeService(cfg, messageRepo, chatGroupRepo, provider)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize judge service: %v", err)
	}

	// --- Handlers ---
	secureCookies := strings.ToLower(cfg.Environment) == "production"
	authHandler := handlers.NewAuthHandler(userRepo, groupService, cfg.JWTSecretKey, secureCookies, services.NewLogger("auth"))
	chatHandler := handlers.NewChatHandler(streamingService, services.NewLogger("chat"))
	groupHandler := handlers.NewGroupHandler(groupService, services.NewLogger("chat"))
	judgeHandler := handlers.NewJudgeHandler(judgeService, services.NewLogger("judge"))

	healthHandler := handlers.NewHealthHandler(services.NewLogger("health"))
	healthHandler.Register("mail_bridge", mailProvider)
	if pineconeClient != nil {
		healthHandler.Register("pinecone", pineconeClient)
	}

	// --- Router Setup ---
	r := mux.NewRouter()
	authMiddleware := middleware.NewJWTMiddleware(cfg.JWTSecretKey)
	streamLimiter := middleware.NewIPRateLimiter(middleware.DefaultStreamConfig())

	r.Use(corsMiddleware)
	r.Use(middleware.RecoverPanic(services.NewLogger("http")))
	r.Use(middleware.LoggingMiddleware(services.NewLogger("http")))

	// --- Public Routes ---
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")
	r.HandleFunc("/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/logout", authHandler.Logout).Methods("POST")

	// --- Protected Routes ---
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware)

	stream := api.NewRoute().Subrouter()
	stream.Use(streamLimiter.Middleware)
	stream.HandleFunc("/chat", chatHandler.Chat).Methods("GET")
	stream.HandleFunc("/chatCompletion", chatHandler.ChatCompletion).Methods("GET")
	stream.HandleFunc("/chatTool", chatHandler.ChatTool).Methods("GET")
	stream.HandleFunc("/chatGroupName", chatHandler.ChatGroupName).Methods("GET")

	api.HandleFunc("/tokens", chatHandler.Tokens).Methods("POST")
	api.HandleFunc("/judge", judgeHandler.Judge).Methods("POST")
	api.HandleFunc("/judgeMass", judgeHandler.JudgeMass).Methods("POST")

	api.HandleFunc("/chatGroups", groupHandler.ListGroups).Methods("GET")
	api.HandleFunc("/chatGroups", groupHandler.CreateGroup).Methods("POST")
	api.HandleFunc("/chatGroups/{id:[0-9]+}/messages", groupHandler.GetMessages).Methods("GET")
	api.HandleFunc("/chatGroups/{id:[0-9]+}/attachment", groupHandler.AttachFile).Methods("POST")
	api.HandleFunc("/chatGroups/{id:[0-9]+}", groupHandler.DeleteGroup).Methods("DELETE")

	// --- Server Configuration ---
	port := ":8080"
	if cfg.ServerPort != "" {
		port = ":" + cfg.ServerPort
	}
	srv := &http.Server{
		Addr:    port,
		Handler: r,
	}

	// --- Startup Logging ---
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("==================================================")
	log.Printf("Omnichat - Streaming Chat Orchestrator")
	log.Printf("==================================================")
	log.Printf("Server starting on port %s", port)
	log.Printf("Local access: http://localhost%s", port)
	log.Printf("Server ready to accept connections!")
	log.Printf("==================================================")

	// --- Start Server in Goroutine ---
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// buildJudgeService wires the evaluation flow. Without a configured
// fact index the judge still runs, just without reference retrieval.
// The pinecone client is returned (nil when unconfigured) so the
// health endpoint can ping it.
func buildJudgeService(cfg *config.Config, messageRepo message.MessageRepository, chatGroupRepo chatgroup.ChatGroupRepository, provider ai.Provider) (*judge.Service, *pinecone.ClientService, error) {
	judgeConfig := judge.DefaultConfig()
	judgeConfig.Model = cfg.DefaultModel
	judgeConfig.FactTopK = cfg.RetrievalTopK
	judgeConfig.CallDelay = cfg.JudgeCallDelay

	var facts judge.FactProvider = noopFactProvider{}
	var client *pinecone.ClientService
	if cfg.PineconeAPIKey != "" && cfg.PineconeIndexHost != "" {
		pcConfig := pinecone.DefaultConfig()
		pcConfig.APIKey = cfg.PineconeAPIKey
		pcConfig.IndexHost = cfg.PineconeIndexHost
		pcConfig.Namespace = cfg.PineconeNamespace
		pcConfig.TopK = cfg.RetrievalTopK

		pcLogger := services.NewLogger("pinecone")
		var err error
		client, err = pinecone.NewClientService(pcConfig, pcLogger)
		if err != nil {
			return nil, nil, err
		}
		facts = pinecone.NewFactService(client, pinecone.NewRetryService(pcConfig, pcLogger), pcConfig, pcLogger)
	}

	service, err := judge.NewService(judgeConfig, messageRepo, chatGroupRepo, provider, facts, services.NewLogger("judge"))
	if err != nil {
		return nil, nil, err
	}
	return service, client, nil
}

// noopFactProvider backs the judge when no fact index is configured.
type noopFactProvider struct{}

func (noopFactProvider) QuerySimilar(ctx context.Context, embedding []float32, topK int) ([]pinecone.Fact, error) {
	return nil, nil
}
