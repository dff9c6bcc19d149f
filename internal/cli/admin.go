package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facturaIA/invoice-stock-service/internal/auth"
	"github.com/facturaIA/invoice-stock-service/internal/db"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API users",
}

var userCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Create a user that can log in to the API",
	Example: `  invoice-stock user create --email depo@firma.com.tr --password '...' --role admin`,
	Args:    cobra.NoArgs,
	RunE:    runUserCreate,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(userCmd, migrateCmd)
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().String("email", "", "Login email")
	userCreateCmd.Flags().String("password", "", "Password, at least 8 characters")
	userCreateCmd.Flags().String("role", auth.RoleOperator, "admin or operator")
	userCreateCmd.MarkFlagRequired("email")
	userCreateCmd.MarkFlagRequired("password")
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("user")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	role, _ := cmd.Flags().GetString("role")

	ctx := context.Background()
	gdb, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.CloseDB(gdb)
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	user, err := auth.NewService(gdb, nil).CreateUser(ctx, email, password, role)
	if err != nil {
		return err
	}
	log.Info().Uint("user_id", user.ID).Str("email", user.Email).Str("role", user.Role).Msg("user created")
	fmt.Fprintf(cmd.OutOrStdout(), "user %d created (%s, %s)\n", user.ID, user.Email, user.Role)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("migrate")
	ctx := context.Background()

	gdb, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.CloseDB(gdb)

	if err := db.Migrate(gdb); err != nil {
		return err
	}
	log.Info().Str("driver", gdb.Dialector.Name()).Msg("schema migrated")
	return nil
}
