package main

import (
	"context"
	"fmt"

	"github.com/dimitrije/boltstax-api/internal/email"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
		if err := e.db.Migrate(ctx); err != nil {
			return err
		}
		e.log.Info("migrations applied")
		return nil
	}),
}

var reminderWindow string

var sendRemindersCmd = &cobra.Command{
	Use:   "send-reminders",
	Short: "Email suppliers whose product sheets are due soon",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
		window := e.cfg.Reminders.Window
		if reminderWindow != "" {
			d, err := parseWindow(reminderWindow)
			if err != nil {
				return err
			}
			window = d
		}

		sender := email.NewSender(e.cfg, e.log)
		responses := services.NewResponseService(e.db, sender, nil, nil, e.log, e.cfg.BaseURL)
		sheets := services.NewSheetService(e.db, sender, responses, nil, e.log, e.cfg.BaseURL)

		sent, err := sheets.SendDueReminders(ctx, window)
		if err != nil {
			return err
		}
		fmt.Printf("Sent %d reminder(s)\n", sent)
		return nil
	}),
}

var linkRole string

var linkCmd = &cobra.Command{
	Use:   "link <company-id> <counterpart-id>",
	Short: "Relate two companies in both directions",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
		holder, counterpart, role, err := parseLink(args)
		if err != nil {
			return err
		}
		if err := services.NewCompanyService(e.db, e.log).LinkCompanies(ctx, holder, counterpart, role); err != nil {
			return err
		}
		fmt.Printf("Linked %s as %s of %s\n", counterpart, role, holder)
		return nil
	}),
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <company-id> <counterpart-id>",
	Short: "Remove a relationship between two companies in both directions",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
		holder, counterpart, role, err := parseLink(args)
		if err != nil {
			return err
		}
		if err := services.NewCompanyService(e.db, e.log).UnlinkCompanies(ctx, holder, counterpart, role); err != nil {
			return err
		}
		fmt.Printf("Unlinked %s as %s of %s\n", counterpart, role, holder)
		return nil
	}),
}

var purgeTokensCmd = &cobra.Command{
	Use:   "purge-tokens",
	Short: "Delete expired refresh tokens",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
		removed, err := services.NewTokenService(e.db).CleanupExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d expired token(s)\n", removed)
		return nil
	}),
}

var setRoleCmd = &cobra.Command{
	Use:   "set-role <email> <admin|user>",
	Short: "Change a user's role",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
		user, err := services.NewUserService(e.db, e.log).SetRole(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s is now %s\n", user.Email, user.Role)
		return nil
	}),
}

func init() {
	sendRemindersCmd.Flags().StringVar(&reminderWindow, "window", "", "remind sheets due within this duration (default from REMINDER_WINDOW)")

	for _, c := range []*cobra.Command{linkCmd, unlinkCmd} {
		c.Flags().StringVar(&linkRole, "role", string(models.RoleSupplier), "role the counterpart plays: supplier or customer")
	}

	rootCmd.AddCommand(migrateCmd, sendRemindersCmd, linkCmd, unlinkCmd, purgeTokensCmd, setRoleCmd)
}

func parseLink(args []string) (uuid.UUID, uuid.UUID, models.RelationshipRole, error) {
	holder, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("invalid company id %q: %w", args[0], err)
	}
	counterpart, err := uuid.Parse(args[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("invalid counterpart id %q: %w", args[1], err)
	}
	role := models.RelationshipRole(linkRole)
	if !role.Valid() {
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("invalid role %q: must be supplier or customer", linkRole)
	}
	return holder, counterpart, role, nil
}
