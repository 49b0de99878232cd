package main

import (
	"context"
	"fmt"
	common_api "go-sitter/internal/common/api"
	"go-sitter/internal/config"
	"go-sitter/internal/database"
	"go-sitter/internal/dispatch"
	"go-sitter/internal/features/auth"
	"go-sitter/internal/features/automation"
	"go-sitter/internal/features/availability"
	"go-sitter/internal/features/booking"
	"go-sitter/internal/features/client"
	"go-sitter/internal/features/export"
	"go-sitter/internal/features/notification"
	"go-sitter/internal/features/system"
	"go-sitter/internal/features/waitlist"
	"go-sitter/internal/logger"
	"go-sitter/internal/middleware"
	"go-sitter/pkg/clock"
	"go-sitter/pkg/utils"
	"log"
	"time"

	_ "go-sitter/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for _, route := range routes {
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, bookings booking.Repository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := bookings.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure booking indexes: %v", err)
				}
			}()
			return nil
		},
	})
}

// slotFreedRelay defers the waitlist binding until after construction.
// The action executor and the booking service both emit slot-freed events,
// and the waitlist scheduler that consumes them depends on the rule engine,
// so wiring the scheduler in directly would be a constructor cycle.
type slotFreedRelay struct {
	target booking.SlotFreedTrigger
}

func (r *slotFreedRelay) SlotFreed(serviceType, date, startTime string) {
	if r.target == nil {
		return
	}
	r.target.SlotFreed(serviceType, date, startTime)
}

// @title           Sitter Booking API
// @version         1.0
// @description     Booking automation service with rule evaluation, conflict detection and waitlist scheduling.

// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Shared infrastructure
			dispatch.NewDispatcher,
			func() clock.Clock { return clock.System() },

			// Initialize Repository
			auth.NewUserRepository,
			booking.NewRepository,
			automation.NewRepository,
			automation.NewExecutionRepository,
			waitlist.NewRepository,
			notification.NewRepository,
			availability.NewSitterRepository,
			client.NewRatingRepository,

			// Initialize Services
			auth.NewService,
			client.NewHistoryService,
			availability.NewDetector,
			notification.NewHub,
			notification.NewService,
			automation.NewContextBuilder,
			automation.NewActionExecutor,
			automation.NewEngine,
			automation.NewService,
			booking.NewService,
			waitlist.NewScheduler,
			waitlist.NewSweeper,
			export.NewService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func() *slotFreedRelay { return &slotFreedRelay{} },
			func(r *slotFreedRelay) booking.SlotFreedTrigger { return r },
			func(e *automation.Engine) booking.AutomationTrigger { return e },
			func(d *availability.Detector) booking.AvailabilityChecker { return d },
			func(r availability.SitterRepository) availability.Provider { return r },
			func(s notification.Service) notification.Sender { return s },

			// Initialize Controller
			auth.NewController,
			client.NewController,
			booking.NewController,
			automation.NewController,
			waitlist.NewController,
			notification.NewController,
			export.NewController,

			// Initialize API Routes
			AsRoute(auth.NewApi),
			AsRoute(client.NewApi),
			AsRoute(booking.NewApi),
			AsRoute(automation.NewApi),
			AsRoute(waitlist.NewApi),
			AsRoute(notification.NewApi),
			AsRoute(export.NewApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			func(relay *slotFreedRelay, scheduler *waitlist.Scheduler) { relay.target = scheduler },

			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, sweeper *waitlist.Sweeper) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						sweeper.Start()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						sweeper.Stop()
						return nil
					},
				})
			},
			func(lc fx.Lifecycle, dispatcher *dispatch.Dispatcher) {
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						dispatcher.Close()
						return nil
					},
				})
			},
			InitializeIndexes,
		),
	)

	app.Run()
}
