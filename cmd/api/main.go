package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bakery/internal/config"
	"bakery/internal/domain/model"
	"bakery/internal/infra/db"
	"bakery/internal/logging"
	"bakery/internal/middleware"
	auth "bakery/internal/usecase/auth_usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func newJWTIssuer(cfg config.Config) *jwtIssuer {
	//アクセストークン
	return &jwtIssuer{
		secret:    []byte(cfg.JWTSecret),
		accessTTL: cfg.AccessTTL,
	}
}

// claimの形は middleware.AccessClaims と共通
func (i *jwtIssuer) Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (string, time.Time, error) {
	claims := middleware.NewAccessClaims(userID, role, tokenVersion, now, i.accessTTL)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, claims.ExpiresAt.Time, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "bakery",
		Short:         "Bakery storefront API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newCreateAdminCmd(&configPath),
	)
	return root
}

// 設定とロガーの読み込みは全コマンド共通
func bootstrap(configPath string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			return a.run(ctx)
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			gormDB, err := db.Connect(cfg.DB)
			if err != nil {
				return err
			}
			if err := db.Migrate(gormDB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migration completed", zap.String("driver", cfg.DB.Driver))
			return nil
		},
	}
}

func newCreateAdminCmd(configPath *string) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, or promote an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			uc := auth.NewCreateAdminUsecase(a.userRepo, auth.NewBcryptPasswordHasher(12), &realClock{})
			u, created, err := uc.Execute(cmd.Context(), auth.CreateAdminInput{
				Name:     name,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}

			verb := "promoted"
			if created {
				verb = "created"
			}
			logger.Info("admin "+verb, zap.Int64("user_id", u.ID), zap.String("email", u.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s: %s (id=%d)\n", verb, u.Email, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email (required)")
	cmd.Flags().StringVar(&password, "password", "", "admin password, at least 8 characters (required)")
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
