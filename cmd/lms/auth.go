package main

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/shelfdesk/lms-client/internal/models"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and remember the session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "User name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				Usage:    "Password",
				EnvVars:  []string{"LMS_PASSWORD"},
				Required: true,
			},
		},
		Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
			userName := strings.TrimSpace(c.String("user"))
			resp, err := e.client.Login(ctx, userName, c.String("password"))
			if err != nil {
				return err
			}

			user := models.User{Name: userName}
			if len(resp.User) > 0 {
				var returned models.User
				if err := json.Unmarshal(resp.User, &returned); err == nil && returned.Name != "" {
					user = returned
				}
			}

			if err := e.session.Set(user, resp.AccessToken); err != nil {
				return err
			}
			e.printf("Signed in as %s\n", user.Name)
			return nil
		}),
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and forget all local state",
		Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
			if err := e.session.Teardown(); err != nil {
				return err
			}
			e.printf("Signed out\n")
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
			if !e.session.IsAuthenticated() {
				e.printf("Not signed in\n")
				return nil
			}

			user, _ := e.session.User()
			claims := e.session.Claims()
			e.printf("User:    %s\n", user.Name)
			if claims.UserID != "" {
				e.printf("User ID: %s\n", claims.UserID)
			}
			if claims.Role != "" {
				e.printf("Role:    %s\n", claims.Role)
			}
			if !claims.ExpiresAt.IsZero() {
				e.printf("Expires: %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		}),
	}
}
