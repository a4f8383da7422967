package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/fest-registration/internal/apperr"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/seed"
	"github.com/iliyamo/fest-registration/internal/service"
	"github.com/iliyamo/fest-registration/internal/sheets"
)

var (
	seedFile    string
	exportEvent uint64
	adminUser   string
	adminEmail  string
	adminPass   string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import a fest with its events, rounds and schedule from YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := os.Open(seedFile)
		if err != nil {
			return err
		}
		defer f.Close()
		doc, err := seed.Parse(f)
		if err != nil {
			return err
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()
		ctx := cmd.Context()
		actor, err := a.systemActor(ctx)
		if err != nil {
			return err
		}
		im := &seed.Importer{Catalog: a.catalog, Content: a.content, Users: a.users}
		res, err := im.Import(ctx, actor, doc)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "fest %d %q: %d events, %d schedule items\n", res.Fest.ID, res.Fest.Name, len(res.Events), res.Schedules)
		for _, c := range res.Credentials {
			fmt.Fprintf(out, "  coordinator for %q: %s / %s\n", c.Event, c.Username, c.Password)
		}
		return nil
	},
}

var exportSheetCmd = &cobra.Command{
	Use:   "export-sheet",
	Short: "Write an event's participant list to Google Sheets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if exportEvent == 0 {
			return errors.New("--event is required")
		}
		ctx := cmd.Context()
		client, err := sheets.New(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID)
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		ev, err := a.events.GetByID(ctx, exportEvent)
		if err != nil {
			return fmt.Errorf("event %d: %w", exportEvent, err)
		}
		ps, err := a.participants.ListByEvent(ctx, ev.ID)
		if err != nil {
			return err
		}
		tab, err := client.ExportEvent(ctx, ev, ps)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d participants to tab %q of %s\n", len(ps), tab, client.SpreadsheetID())
		return nil
	},
}

// create-admin bootstraps the first superuser, so it cannot go through the
// systemActor lookup.
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a superuser account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if adminPass == "" {
			adminPass = os.Getenv("ADMIN_PASSWORD")
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()
		u, err := createAdmin(cmd.Context(), a.auth, adminUser, adminEmail, adminPass)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created superuser %q (id %d)\n", u.Username, u.ID)
		return nil
	},
}

func createAdmin(ctx context.Context, auth *service.AuthService, username, email, password string) (model.User, error) {
	bootstrap := service.Actor{UserID: ^uint64(0), Role: model.RoleSuperuser}
	u, err := auth.CreateUser(ctx, bootstrap, service.NewUser{
		Username: strings.TrimSpace(username),
		Email:    email,
		Password: password,
		Role:     model.RoleSuperuser,
	})
	if errors.Is(err, apperr.ErrConflict) {
		return model.User{}, fmt.Errorf("user %q already exists", username)
	}
	return u, err
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "fest.yaml", "YAML document to import")

	exportSheetCmd.Flags().Uint64Var(&exportEvent, "event", 0, "event id to export")

	createAdminCmd.Flags().StringVar(&adminUser, "username", "admin", "login name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "contact address")
	createAdminCmd.Flags().StringVar(&adminPass, "password", "", "password (default $ADMIN_PASSWORD)")
}
