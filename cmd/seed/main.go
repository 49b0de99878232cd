package main

import (
	"context"

	"go-sitter/internal/config"
	"go-sitter/internal/database"
	"go-sitter/internal/features/auth"
	"go-sitter/internal/features/automation"
	"go-sitter/internal/features/availability"
	"go-sitter/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func defaultRules() []automation.Rule {
	return []automation.Rule{
		{
			Name: "Auto-approve loyal clients",
			Type: automation.RuleAutoApproval,
			Conditions: []automation.Condition{
				{Field: automation.FieldBookingStatus, Operator: automation.OperatorEquals, Value: "pending"},
				{Field: automation.FieldClientCompletedBookings, Operator: automation.OperatorGreaterThanOrEqual, Value: "5"},
				{Field: automation.FieldClientAverageRating, Operator: automation.OperatorGreaterThanOrEqual, Value: "4"},
			},
			Actions:  []automation.Action{{Type: automation.ActionApproveBooking}},
			Priority: 10,
			Enabled:  true,
		},
		{
			Name: "Peak hour surcharge",
			Type: automation.RulePricing,
			Conditions: []automation.Condition{
				{Field: automation.FieldIsPeakHour, Operator: automation.OperatorEquals, Value: "true"},
			},
			Actions: []automation.Action{
				{Type: automation.ActionAdjustPricing, Parameters: map[string]string{"multiplier": "1.25"}},
			},
			Priority: 50,
			Enabled:  true,
		},
		{
			Name: "Follow up after completion",
			Type: automation.RuleQualityAssurance,
			Conditions: []automation.Condition{
				{Field: automation.FieldBookingStatus, Operator: automation.OperatorEquals, Value: "completed"},
			},
			Actions:  []automation.Action{{Type: automation.ActionCreateFollowUp}},
			Priority: 90,
			Enabled:  true,
		},
	}
}

func defaultSitters() []availability.Sitter {
	return []availability.Sitter{
		{Name: "Maya Patel", Active: true, Services: []string{"babysitting", "tutoring"}},
		{Name: "Jonas Weber", Active: true, Services: []string{"petsitting", "housesitting"}},
		{Name: "Ana Souza", Active: true, Services: []string{"babysitting", "eldercare"}},
	}
}

// Seed runs the database seeding
func Seed(
	lc fx.Lifecycle,
	rules automation.Service,
	sitters availability.SitterRepository,
	users auth.Service,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("🌱 Starting Database Seeding...")

				existing, err := rules.ListRules(ctx)
				if err != nil {
					logger.Fatal("Failed to list rules", zap.Error(err))
				}
				if len(existing) > 0 {
					logger.Info("Rules already present, skipping rule seeding", zap.Int("count", len(existing)))
				} else {
					for _, rule := range defaultRules() {
						r := rule
						if err := rules.CreateRule(ctx, &r); err != nil {
							logger.Error("Failed to create rule", zap.String("rule", r.Name), zap.Error(err))
							continue
						}
						logger.Info("Rule created", zap.String("rule", r.Name))
					}
				}

				existingSitters, err := sitters.List(ctx)
				if err != nil {
					logger.Fatal("Failed to list sitters", zap.Error(err))
				}
				if len(existingSitters) > 0 {
					logger.Info("Sitters already present, skipping sitter seeding", zap.Int("count", len(existingSitters)))
				} else {
					for _, s := range defaultSitters() {
						sitter := s
						if err := sitters.Create(ctx, &sitter); err != nil {
							logger.Error("Failed to create sitter", zap.String("sitter", sitter.Name), zap.Error(err))
							continue
						}
						logger.Info("Sitter created", zap.String("sitter", sitter.Name))
					}
				}

				if _, err := users.Register(ctx, "admin", "admin123", "admin@example.com"); err != nil {
					logger.Info("Admin user not created", zap.Error(err))
				} else {
					logger.Info("Admin user created", zap.String("username", "admin"))
				}

				logger.Info("✅ Seeding finished")
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,

			auth.NewUserRepository,
			auth.NewService,
			automation.NewRepository,
			automation.NewExecutionRepository,
			automation.NewService,
			availability.NewSitterRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
