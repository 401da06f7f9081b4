package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/grandcamel/splunk-as/internal/config"
	"github.com/grandcamel/splunk-as/internal/format"
	"github.com/grandcamel/splunk-as/internal/splunk"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Store and inspect credentials",
}

var (
	authURL      string
	authMethod   string
	authUsername string
	authNoVerify bool
)

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store credentials for a profile",
	Long: `Prompt for credentials, verify them against the server, and store
them in the credentials file with owner-only permissions.

Example:
  splunk-as auth login --url splunk.example.com --method bearer`,
	RunE: runAuthLogin,
}

var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show where the active credentials come from",
	RunE:  runAuthShow,
}

var authVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Test the stored credentials against the server",
	RunE:  runAuthVerify,
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove stored credentials for a profile",
	RunE:  runAuthClear,
}

func init() {
	authLoginCmd.Flags().StringVar(&authURL, "url", "", "Splunk site URL")
	authLoginCmd.Flags().StringVar(&authMethod, "method", "bearer", "Auth method: bearer or basic")
	authLoginCmd.Flags().StringVarP(&authUsername, "username", "u", "", "Username for basic auth")
	authLoginCmd.Flags().BoolVar(&authNoVerify, "no-verify", false, "Store without testing against the server")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authShowCmd)
	authCmd.AddCommand(authVerifyCmd)
	authCmd.AddCommand(authClearCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	if authMethod != "bearer" && authMethod != "basic" {
		return &splunk.ValidationError{Message: fmt.Sprintf("invalid auth method %q (expected bearer or basic)", authMethod)}
	}

	manager, err := loadManager()
	if err != nil {
		return err
	}

	name := profileName
	if name == "" {
		name = manager.DefaultProfile()
	}

	siteURL := authURL
	if siteURL == "" {
		siteURL = manager.Resolve(name).URL
	}
	if siteURL == "" {
		siteURL, err = promptLine("Splunk URL: ")
		if err != nil {
			return err
		}
	}
	if siteURL == "" {
		return &splunk.ValidationError{Message: "a Splunk URL is required"}
	}

	creds := config.Credentials{URL: siteURL}
	switch authMethod {
	case "bearer":
		token, err := promptSecret("Token: ")
		if err != nil {
			return err
		}
		if token == "" {
			return &splunk.ValidationError{Message: "a token is required for bearer auth"}
		}
		creds.Token = token
	case "basic":
		username := authUsername
		if username == "" {
			username, err = promptLine("Username: ")
			if err != nil {
				return err
			}
		}
		if username == "" {
			return &splunk.ValidationError{Message: "a username is required for basic auth"}
		}
		password, err := promptSecret("Password: ")
		if err != nil {
			return err
		}
		if password == "" {
			return &splunk.ValidationError{Message: "a password is required for basic auth"}
		}
		creds.Username = username
		creds.Password = password
	}

	if !authNoVerify {
		probe := config.Profile{
			URL:      siteURL,
			Token:    creds.Token,
			Username: creds.Username,
			Password: creds.Password,
		}
		if err := verifyCredentials(manager, probe); err != nil {
			return fmt.Errorf("credential check failed: %w", err)
		}
		format.Success("Credentials verified")
	}

	if err := manager.StoreCredentials(name, creds); err != nil {
		return err
	}
	format.Success("Credentials stored for profile %q in %s", name, manager.CredsPath)
	return nil
}

// verifyCredentials makes a single authenticated call to /server/info.
func verifyCredentials(manager *config.Manager, profile config.Profile) error {
	api := manager.API()
	client := splunk.NewClient(profile.BaseURL(), &splunk.Options{
		Token:       profile.Token,
		Username:    profile.Username,
		Password:    profile.Password,
		InsecureSSL: profile.InsecureSkipVerify(),
		Timeout:     api.Timeout,
		MaxRetries:  1,
		Debug:       verbose,
	})

	ctx, cancel := signalContext()
	defer cancel()
	info, err := client.ServerInfo(ctx)
	if err != nil {
		return err
	}
	if version := contentString(info, "version"); version != "" {
		fmt.Printf("Connected to %s (Splunk %s)\n", contentString(info, "serverName"), version)
	}
	return nil
}

func runAuthShow(cmd *cobra.Command, args []string) error {
	manager, err := loadManager()
	if err != nil {
		return err
	}

	name := profileName
	if name == "" {
		name = manager.DefaultProfile()
	}
	profile := manager.Resolve(name)
	sources := manager.CredentialSource(name)

	fmt.Printf("Profile: %s\n", name)
	fmt.Printf("URL:     %s\n", valueOrUnset(profile.URL))
	fmt.Printf("Method:  %s\n", profile.AuthMethod)
	if profile.Token != "" {
		fmt.Printf("Token:   %s (%s)\n", config.MaskSecret(profile.Token), sources["token"])
	}
	if profile.Username != "" {
		fmt.Printf("User:    %s (%s)\n", profile.Username, sources["username"])
	}
	if profile.Password != "" {
		fmt.Printf("Pass:    %s (%s)\n", config.MaskSecret(profile.Password), sources["password"])
	}
	if profile.Token == "" && profile.Username == "" {
		format.Warning("No credentials configured. Run 'splunk-as auth login'.")
	}
	return nil
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func runAuthVerify(cmd *cobra.Command, args []string) error {
	manager, err := loadManager()
	if err != nil {
		return err
	}
	if problems := manager.Validate(profileName); len(problems) > 0 {
		return &splunk.ValidationError{Message: strings.Join(problems, "\n")}
	}
	if err := verifyCredentials(manager, manager.Resolve(profileName)); err != nil {
		return err
	}
	format.Success("Credentials are valid")
	return nil
}

func runAuthClear(cmd *cobra.Command, args []string) error {
	manager, err := loadManager()
	if err != nil {
		return err
	}

	name := profileName
	if name == "" {
		name = manager.DefaultProfile()
	}
	if err := manager.ClearCredentials(name); err != nil {
		return err
	}
	format.Success("Cleared stored credentials for profile %q", name)
	return nil
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("could not read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("could not read secret: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
