package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"

	"gobear/internal/config"
	"gobear/internal/handlers/apiserver"
	appKafka "gobear/internal/kafka"
	"gobear/internal/middleware"
	appRedis "gobear/internal/redis"
	"gobear/internal/services"
	"gobear/internal/storage"
	"gobear/internal/ws"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("%s %s starting", cfg.AppName, cfg.AppVersion)

	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("Failed to migrate database tables: %v", err)
	}
	log.Println("Database ready.")

	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	tokenBlacklist := appRedis.NewRedisTokenBlacklist(redisClient)
	log.Println("Redis ready.")

	// Repositories
	userRepo := storage.NewGormUserRepository(db)
	friendRequestRepo := storage.NewGormFriendRequestRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)
	teamRepo := storage.NewGormTeamRepository(db)
	teamInviteRepo := storage.NewGormTeamInviteRepository(db)
	taskRepo := storage.NewGormTaskRepository(db)
	pointsRepo := storage.NewGormPointsRepository(db)
	notificationRepo := storage.NewGormNotificationRepository(db)

	// Kafka producer for notification events
	producer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer producer.Close()
	dispatcher := services.NewKafkaNotificationDispatcher(producer, cfg.Kafka.NotificationsTopic)

	// Notification push hub
	hub := ws.NewHub()
	go hub.Run()

	// Services
	authService := services.NewAuthService(userRepo, tokenBlacklist, cfg)
	userService := services.NewUserService(userRepo)
	friendService := services.NewFriendService(db, userRepo, friendRequestRepo, friendshipRepo, dispatcher)
	teamService := services.NewTeamService(db, teamRepo, teamInviteRepo, userRepo, dispatcher)
	taskService := services.NewTaskService(db, taskRepo, teamRepo, pointsRepo, userRepo, dispatcher)
	notificationService := services.NewNotificationService(notificationRepo, hub)

	// Handlers
	authHandler := apiserver.NewAuthHandler(authService)
	userHandler := apiserver.NewUserHandler(userService)
	friendHandler := apiserver.NewFriendHandler(friendService)
	teamHandler := apiserver.NewTeamHandler(teamService)
	taskHandler := apiserver.NewTaskHandler(taskService)
	notificationHandler := apiserver.NewNotificationHandler(notificationService, hub, cfg.WebSocket)

	r := mux.NewRouter()

	// Public routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.RegisterHandler).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", authHandler.LoginHandler).Methods(http.MethodPost)

	authMW := middleware.AuthMiddleware(cfg.Auth.JWTSecretKey, tokenBlacklist)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(authMW)

	apiRouter.HandleFunc("/auth/logout", authHandler.LogoutHandler).Methods(http.MethodPost)

	// Users
	apiRouter.HandleFunc("/users/me", userHandler.GetMeHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/me", userHandler.UpdateMeHandler).Methods(http.MethodPut)
	apiRouter.HandleFunc("/users/search", friendHandler.SearchUsersHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{userID:[0-9]+}", userHandler.GetUserHandler).Methods(http.MethodGet)

	// Friend requests and friends
	friendRequestRouter := apiRouter.PathPrefix("/friend-requests").Subrouter()
	friendRequestRouter.HandleFunc("", friendHandler.SendRequestHandler).Methods(http.MethodPost)
	friendRequestRouter.HandleFunc("/incoming", friendHandler.ListIncomingHandler).Methods(http.MethodGet)
	friendRequestRouter.HandleFunc("/outgoing", friendHandler.ListOutgoingHandler).Methods(http.MethodGet)
	friendRequestRouter.HandleFunc("/{requestID:[0-9]+}/accept", friendHandler.AcceptRequestHandler).Methods(http.MethodPost)
	friendRequestRouter.HandleFunc("/{requestID:[0-9]+}/decline", friendHandler.DeclineRequestHandler).Methods(http.MethodPost)
	friendRequestRouter.HandleFunc("/{requestID:[0-9]+}/cancel", friendHandler.CancelRequestHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/friends", friendHandler.ListFriendsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/friends/{userID:[0-9]+}", friendHandler.UnfriendHandler).Methods(http.MethodDelete)

	// Teams
	apiRouter.HandleFunc("/teams", teamHandler.CreateTeamHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/teams", teamHandler.ListMyTeamsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/teams/search", teamHandler.SearchTeamsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/teams/{teamID:[0-9]+}", teamHandler.GetTeamHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/teams/{teamID:[0-9]+}", teamHandler.UpdateTeamHandler).Methods(http.MethodPut)
	apiRouter.HandleFunc("/teams/{teamID:[0-9]+}", teamHandler.DeleteTeamHandler).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/teams/{teamID:[0-9]+}/join", teamHandler.JoinTeamHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/teams/{teamID:[0-9]+}/invites", teamHandler.InviteMemberHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/teams/{teamID:[0-9]+}/accept-invite", teamHandler.AcceptInviteHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/teams/{teamID:[0-9]+}/leave", teamHandler.LeaveTeamHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/teams/{teamID:[0-9]+}/members", teamHandler.ListMembersHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/teams/{teamID:[0-9]+}/members/{userID:[0-9]+}", teamHandler.RemoveMemberHandler).Methods(http.MethodDelete)

	// Tasks and points
	apiRouter.HandleFunc("/teams/{teamID:[0-9]+}/tasks", taskHandler.CreateTaskHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/teams/{teamID:[0-9]+}/tasks", taskHandler.ListTeamTasksHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/tasks/mine", taskHandler.ListMyTasksHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/tasks/{taskID:[0-9]+}/assign", taskHandler.AssignTaskHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/tasks/{taskID:[0-9]+}/complete", taskHandler.CompleteTaskHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/points", taskHandler.GetPointsSummaryHandler).Methods(http.MethodGet)

	// Notifications
	apiRouter.HandleFunc("/notifications", notificationHandler.ListNotificationsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/notifications/ws", notificationHandler.NotificationSocketHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/notifications/{notificationID:[0-9]+}/read", notificationHandler.MarkReadHandler).Methods(http.MethodPost)

	// Kafka consumer persisting notification events and pushing them out
	consumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create Kafka consumer: %v", err)
	}
	defer consumer.Close()

	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()

	go func() {
		topics := []string{cfg.Kafka.NotificationsTopic}
		log.Printf("Notification consumer starting, topic: %s, group: %s", cfg.Kafka.NotificationsTopic, cfg.Kafka.ConsumerGroup)
		handler := func(ctx context.Context, msg *confluentKafka.Message) error {
			return notificationService.ProcessNotificationEvent(ctx, msg.Key, msg.Value)
		}
		if err := consumer.Consume(consumerCtx, topics, cfg.Kafka.ConsumerGroup, handler); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Notification consumer error: %v", err)
		}
		log.Println("Notification consumer stopped.")
	}()

	// CORS
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.Server.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.Server.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.Server.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.Server.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.Server.CORS.MaxAge),
	}
	if cfg.Server.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:           serverAddr,
		Handler:        handlers.CORS(corsOptions...)(r),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		IdleTimeout:    60 * time.Second,
	}

	go func() {
		log.Printf("API server listening on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received, stopping API server...")

	cancelConsumer()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("API server forced to shut down: %v", err)
	}

	log.Println("API server stopped cleanly.")
}
