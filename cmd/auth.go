package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/backend"
	"github.com/spigell/cv-ranker/internal/secrets"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the matching service and store the access token",
	Run: func(cmd *cobra.Command, _ []string) {
		authenticate(cmd, false)
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account on the matching service and store the access token",
	Run: func(cmd *cobra.Command, _ []string) {
		authenticate(cmd, true)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)

	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringP("email", "e", "", "account email")
	}
	signupCmd.Flags().StringP("name", "n", "", "account display name")
}

func authenticate(cmd *cobra.Command, signup bool) {
	ctx := context.Background()
	logger, config := bootstrap()

	tokenFile := strings.TrimSpace(config.Backend.TokenFile)
	if tokenFile == "" {
		logger.Fatal("backend token file is not configured",
			zap.String("hint", "set CV_RANKER_TOKEN_FILE environment variable or the 'backend.token-file' key in the configuration file"),
		)
	}

	email, _ := cmd.Flags().GetString("email")
	email, err := promptValue("Email", email, false)
	if err != nil {
		logger.Fatal("reading email", zap.Error(err))
	}
	password, err := promptValue("Password", "", true)
	if err != nil {
		logger.Fatal("reading password", zap.Error(err))
	}

	client := newBackendClient(config, logger)

	var token string
	if signup {
		name, _ := cmd.Flags().GetString("name")
		if name, err = promptValue("Name", name, false); err != nil {
			logger.Fatal("reading name", zap.Error(err))
		}
		confirm, err := promptValue("Confirm password", "", true)
		if err != nil {
			logger.Fatal("reading password", zap.Error(err))
		}
		token, err = client.Signup(ctx, backend.Registration{
			Name:            name,
			Email:           email,
			Password:        password,
			ConfirmPassword: confirm,
		})
		if err != nil {
			logger.Fatal("signing up", zap.Error(err))
		}
	} else {
		token, err = client.Login(ctx, backend.Credentials{Email: email, Password: password})
		if err != nil {
			logger.Fatal("logging in", zap.Error(err))
		}
	}

	if err := secrets.Store(tokenFile, token); err != nil {
		logger.Fatal("storing the token", zap.Error(err))
	}

	fields := []zap.Field{zap.String("token_file", tokenFile)}
	if exp, ok, err := backend.TokenExpiry(token); err == nil && ok {
		fields = append(fields, zap.Time("expires_at", exp))
	}
	logger.Info("access token stored", fields...)
}

// promptValue asks for a value unless preset is already filled.
func promptValue(label, preset string, mask bool) (string, error) {
	if preset = strings.TrimSpace(preset); preset != "" {
		return preset, nil
	}

	p := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("value is required")
			}
			return nil
		},
	}
	if mask {
		p.Mask = '*'
	}

	value, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("prompt %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(value), nil
}
