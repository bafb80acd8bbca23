package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cancelAppointmentHandler "github.com/m04kA/PMC-SchedulingService/internal/api/handlers/cancel_appointment"
	createAppointmentHandler "github.com/m04kA/PMC-SchedulingService/internal/api/handlers/create_appointment"
	getAppointmentHandler "github.com/m04kA/PMC-SchedulingService/internal/api/handlers/get_appointment"
	getAvailableSlotsHandler "github.com/m04kA/PMC-SchedulingService/internal/api/handlers/get_available_slots"
	getCalendarConfigHandler "github.com/m04kA/PMC-SchedulingService/internal/api/handlers/get_calendar_config"
	getProfessionalAppointmentsHandler "github.com/m04kA/PMC-SchedulingService/internal/api/handlers/get_professional_appointments"
	rescheduleAppointmentHandler "github.com/m04kA/PMC-SchedulingService/internal/api/handlers/reschedule_appointment"
	updateAppointmentStatusHandler "github.com/m04kA/PMC-SchedulingService/internal/api/handlers/update_appointment_status"
	updateCalendarConfigHandler "github.com/m04kA/PMC-SchedulingService/internal/api/handlers/update_calendar_config"
	"github.com/m04kA/PMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/PMC-SchedulingService/internal/config"
	appointmentRepo "github.com/m04kA/PMC-SchedulingService/internal/infra/storage/appointment"
	calendarRepo "github.com/m04kA/PMC-SchedulingService/internal/infra/storage/calendar"
	auditSinkClient "github.com/m04kA/PMC-SchedulingService/internal/integrations/auditsink"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/coordinator"
	appointmentsService "github.com/m04kA/PMC-SchedulingService/internal/service/appointments"
	calendarcfgService "github.com/m04kA/PMC-SchedulingService/internal/service/calendarcfg"
	"github.com/m04kA/PMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/PMC-SchedulingService/pkg/logger"
	"github.com/m04kA/PMC-SchedulingService/pkg/metrics"
	"github.com/m04kA/PMC-SchedulingService/pkg/simpletxmanager"
	"github.com/m04kA/PMC-SchedulingService/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting PMC-SchedulingService...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	var wrappedDB *dbmetrics.DB
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Инициализируем репозитории и transaction manager (с метриками или без)
	var (
		appointmentRepository *appointmentRepo.Repository
		calendarRepository    *calendarRepo.Repository
		txMgr                 calendarcfgService.TransactionManager
	)

	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		log.Info("Database metrics collection started")

		appointmentRepository = appointmentRepo.NewRepository(wrappedDB)
		calendarRepository = calendarRepo.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	} else {
		appointmentRepository = appointmentRepo.NewRepository(db)
		calendarRepository = calendarRepo.NewRepository(db)
		txMgr = simpletxmanager.NewTransactionManager(db)
	}

	// Инициализируем сервис календарей - он же CalendarSource движка
	calendarSvc := calendarcfgService.NewService(calendarRepository, txMgr, log)

	// Приемник событий аудита (если включен)
	var eventSink coordinator.EventSink
	if cfg.AuditSink.Enabled {
		eventSink = auditSinkClient.NewClient(
			cfg.AuditSink.URL,
			time.Duration(cfg.AuditSink.Timeout)*time.Second,
			log,
		)
		log.Info("Audit sink client initialized (url=%s timeout=%ds)", cfg.AuditSink.URL, cfg.AuditSink.Timeout)
	}

	// Инициализируем движок расписания и восстанавливаем таймлайны
	engine := coordinator.New(appointmentRepository, calendarSvc, eventSink, log)

	hydrateCtx, cancelHydrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := engine.Hydrate(hydrateCtx); err != nil {
		cancelHydrate()
		log.Fatal("Failed to hydrate scheduling engine: %v", err)
	}
	cancelHydrate()
	log.Info("Scheduling engine hydrated")

	// Инициализируем сервис приемов
	appointmentSvc := appointmentsService.NewService(engine, appointmentRepository, log)

	// Инициализируем handlers
	createAppointment := createAppointmentHandler.NewHandler(appointmentSvc, log)
	getAppointment := getAppointmentHandler.NewHandler(appointmentSvc, log)
	rescheduleAppointment := rescheduleAppointmentHandler.NewHandler(appointmentSvc, log)
	cancelAppointment := cancelAppointmentHandler.NewHandler(appointmentSvc, log)
	updateAppointmentStatus := updateAppointmentStatusHandler.NewHandler(appointmentSvc, log)
	getProfessionalAppointments := getProfessionalAppointmentsHandler.NewHandler(appointmentSvc, log)
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(appointmentSvc, log)
	getCalendarConfig := getCalendarConfigHandler.NewHandler(calendarSvc, log)
	updateCalendarConfig := updateCalendarConfigHandler.NewHandler(calendarSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector, cfg.Metrics.ServiceName))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Свободные слоты специалиста
	api.HandleFunc("/professionals/{professionalId}/available-slots",
		getAvailableSlots.Handle).Methods(http.MethodGet)

	// Действующие календари
	api.HandleFunc("/calendars/default", getCalendarConfig.Handle).Methods(http.MethodGet)
	api.HandleFunc("/calendars/{resourceId}", getCalendarConfig.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Приемы ---
	protected.HandleFunc("/appointments", createAppointment.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}", getAppointment.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{appointmentId}/reschedule",
		rescheduleAppointment.Handle).Methods(http.MethodPut)
	protected.HandleFunc("/appointments/{appointmentId}", cancelAppointment.Handle).Methods(http.MethodDelete)
	protected.HandleFunc("/appointments/{appointmentId}/status",
		updateAppointmentStatus.Handle).Methods(http.MethodPatch)

	// --- Расписание специалиста ---
	protected.HandleFunc("/professionals/{professionalId}/appointments",
		getProfessionalAppointments.Handle).Methods(http.MethodGet)

	// --- Управление календарями ---
	protected.HandleFunc("/calendars/default", updateCalendarConfig.Handle).Methods(http.MethodPut)
	protected.HandleFunc("/calendars/{resourceId}", updateCalendarConfig.Handle).Methods(http.MethodPut)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
