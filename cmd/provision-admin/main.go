// Command provision-admin creates a confirmed user with the admin role.
//
//	SUPABASE_URL=... SUPABASE_SERVICE_ROLE_KEY=... provision-admin --email ops@example.org
//
// The password is read from --password-file or prompted for without echo.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/Dosada05/association-portal/gateway"
)

const minPasswordLength = 12

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		logger.Error("provisioning failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(args []string, stdin *os.File, stdout io.Writer) error {
	flags := pflag.NewFlagSet("provision-admin", pflag.ContinueOnError)
	email := flags.StringP("email", "e", "", "email of the admin account")
	passwordFile := flags.String("password-file", "", "read the password from this file instead of prompting")
	timeout := flags.Duration("timeout", 15*time.Second, "request timeout")
	if err := flags.Parse(args); err != nil {
		return err
	}

	_ = godotenv.Load()
	projectURL := os.Getenv("SUPABASE_URL")
	serviceKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if projectURL == "" || serviceKey == "" {
		return errors.New("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY must be set")
	}
	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}

	password, err := readPassword(*passwordFile, stdin, stdout)
	if err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	admin, err := gateway.NewAdminService(projectURL, serviceKey, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	user, err := admin.CreateUser(ctx, gateway.CreateUserInput{
		Email:        strings.TrimSpace(*email),
		Password:     password,
		EmailConfirm: true,
		UserMetadata: map[string]any{"role": "admin"},
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	fmt.Fprintf(stdout, "created admin %s (%s)\n", user.Email, user.ID)
	return nil
}

func readPassword(path string, stdin *os.File, stdout io.Writer) (string, error) {
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	}

	fd := int(stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(stdout, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(stdout)
	if err != nil {
		return "", err
	}
	fmt.Fprint(stdout, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(stdout)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
