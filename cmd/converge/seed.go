package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/convergehq/converge/internal/account"
	"github.com/convergehq/converge/internal/config"
	"github.com/convergehq/converge/internal/crypto"
	"github.com/convergehq/converge/internal/profile"
	"github.com/convergehq/converge/internal/project"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo accounts, profiles, and project listings",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type demoUser struct {
	email    string
	password string
	profile  profile.UpsertInput
}

var demoUsers = []demoUser{
	{
		email:    "maya@demo.converge.dev",
		password: "demo-password",
		profile: profile.UpsertInput{
			Name:         "Maya Lindqvist",
			Year:         "3",
			Department:   "Computer Science",
			Institution:  "Demo University",
			Availability: "10 hrs/week",
		},
	},
	{
		email:    "jon@demo.converge.dev",
		password: "demo-password",
		profile: profile.UpsertInput{
			Name:         "Jon Okafor",
			Year:         "4",
			Department:   "Electrical Engineering",
			Institution:  "Demo University",
			Availability: "weekends",
		},
	},
	{
		email:    "sara@demo.converge.dev",
		password: "demo-password",
		profile: profile.UpsertInput{
			Name:         "Sara Haddad",
			Year:         "2",
			Department:   "Design",
			Institution:  "Demo University",
			Availability: "full-time over summer",
		},
	},
}

var demoProjects = []project.CreateProjectInput{
	{
		Title:                 "Campus Ride Share",
		Type:                  "mobile",
		Visibility:            "public",
		RequiredSkills:        project.StringList{"Kotlin", "Go", "Postgres"},
		PreferredTechnologies: project.StringList{"gRPC", "Docker"},
		Domain:                project.StringList{"transport"},
		Description:           "Shared rides between campuses with live matching.",
		OwnerEmail:            "maya@demo.converge.dev",
	},
	{
		Title:                 "Lab Inventory Tracker",
		Type:                  "web",
		Visibility:            "public",
		RequiredSkills:        project.StringList{"React", "Go"},
		PreferredTechnologies: project.StringList{"chi", "pgx"},
		Domain:                project.StringList{"tooling", "research"},
		Description:           "Track lab equipment checkouts and maintenance windows.",
		OwnerEmail:            "jon@demo.converge.dev",
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	cipher, err := crypto.NewCipher(cfg.Crypto.ProfileKey)
	if err != nil {
		return err
	}

	accounts := account.NewStore(pool)
	profiles := profile.NewStore(pool, cipher)
	projects := project.NewService(project.NewStore(pool))

	for _, u := range demoUsers {
		if _, err := accounts.Create(ctx, u.email, u.password); err != nil {
			return fmt.Errorf("seeding account %s: %w", u.email, err)
		}
		in := u.profile
		in.Email = u.email
		if _, err := profiles.Upsert(ctx, in); err != nil {
			return fmt.Errorf("seeding profile %s: %w", u.email, err)
		}
		slog.Info("seeded user", "email", u.email)
	}

	for _, p := range demoProjects {
		created, err := projects.Create(ctx, p)
		if err != nil {
			return fmt.Errorf("seeding project %q: %w", p.Title, err)
		}
		slog.Info("seeded project", "id", created.ID, "title", created.Title)
	}

	slog.Info("seed complete", "users", len(demoUsers), "projects", len(demoProjects))
	return nil
}
