package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"duochat/internal/config"
	"duochat/internal/domain"
	"duochat/internal/security"
	"duochat/internal/service"
	"duochat/internal/store/postgres"
	"duochat/internal/store/sqlite"
	"duochat/internal/ws"
)

type repos struct {
	users         domain.UserRepository
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	messages      domain.MessageRepository
}

func newRepos(driver string, db *sql.DB) repos {
	if driver == "postgres" {
		return repos{
			users:         postgres.NewUserRepo(db),
			conversations: postgres.NewConversationRepo(db),
			participants:  postgres.NewParticipantRepo(db),
			messages:      postgres.NewMessageRepo(db),
		}
	}
	return repos{
		users:         sqlite.NewUserRepo(db),
		conversations: sqlite.NewConversationRepo(db),
		participants:  sqlite.NewParticipantRepo(db),
		messages:      sqlite.NewMessageRepo(db),
	}
}

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(cfg *config.Config, db *sql.DB, hub *ws.Hub, tokenSvc *security.TokenService, passwordHasher *security.PasswordHasher, encryptor *security.Encryptor) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	store := newRepos(cfg.DBDriver, db)

	// Services
	authSvc := service.NewAuthService(store.users, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(store.users)
	convSvc := service.NewConversationService(store.conversations, store.participants, store.messages, store.users, encryptor)
	msgSvc := service.NewMessageService(convSvc, store.conversations, store.participants, store.messages, store.users, encryptor)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"duochat API","version":"1.0.0","docs":"/docs"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Swagger documentation
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API routes. The request deadline applies here only; the websocket
	// route below must outlive any per-request timeout.
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, store.users))

			r.Get("/auth/me", handleMe())

			// Users
			r.Route("/users", func(r chi.Router) {
				r.Get("/", handleListUsers(userSvc))
				r.Get("/{userID}", handleGetUser(userSvc))
			})

			// Conversations
			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", handleCreateConversation(convSvc, userSvc))
				r.Get("/", handleListConversations(convSvc))
				r.Delete("/{conversationID}", handleDeleteConversation(convSvc))
				r.Get("/{conversationID}/messages", handleListMessages(msgSvc))
				r.Post("/{conversationID}/messages", handleCreateMessage(msgSvc, hub))
			})

			// Messages
			r.Route("/messages", func(r chi.Router) {
				r.Post("/send", handleSendDirect(msgSvc, hub))
				r.Put("/{messageID}", handleEditMessage(msgSvc, hub))
				r.Delete("/{messageID}", handleDeleteMessage(msgSvc, hub))
			})

			// Uploads (implementation in separate file)
			r.Mount("/uploads", UploadRoutes(cfg))
		})
	})

	// WebSocket endpoint, one connection per conversation
	r.Get("/ws/chat/{conversationID}", ws.MakeHandler(hub, userSvc, msgSvc, cfg.CORSOrigins))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
