package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/grandcamel/splunk-as/internal/config"
	"github.com/grandcamel/splunk-as/internal/format"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration profiles",
}

var configOutput string

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured profiles",
	RunE:  runConfigList,
}

var configShowCmd = &cobra.Command{
	Use:   "show [PROFILE]",
	Short: "Show the effective settings for a profile",
	Long: `Show the settings a profile resolves to after merging the config
file, the credentials file, and environment variables. Secrets are masked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [PROFILE]",
	Short: "Check that a profile has everything needed to connect",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigValidate,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file locations",
	RunE:  runConfigPath,
}

func init() {
	configListCmd.Flags().StringVarP(&configOutput, "output", "o", format.OutputText, "Output format: text or json")
	configShowCmd.Flags().StringVarP(&configOutput, "output", "o", format.OutputText, "Output format: text or json")

	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigList(cmd *cobra.Command, args []string) error {
	manager, err := loadManager()
	if err != nil {
		return err
	}

	names := manager.ProfileNames()
	sort.Strings(names)
	defaultName := manager.DefaultProfile()

	if configOutput == format.OutputJSON {
		format.PrintJSON(map[string]any{
			"profiles": names,
			"default":  defaultName,
		})
		return nil
	}

	if len(names) == 0 {
		fmt.Println("No profiles configured. Settings come from environment variables.")
		fmt.Printf("Active profile name: %s\n", defaultName)
		return nil
	}
	for _, name := range names {
		marker := "  "
		if name == defaultName {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, name)
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	manager, err := loadManager()
	if err != nil {
		return err
	}

	name := optionalArg(args)
	if name == "" {
		name = manager.DefaultProfile()
	}
	profile := manager.Resolve(name)
	api := manager.API()
	defaults := manager.SearchDefaults()

	verifySSL := true
	if profile.VerifySSL != nil {
		verifySSL = *profile.VerifySSL
	}

	if configOutput == format.OutputJSON {
		format.PrintJSON(map[string]any{
			"profile":       name,
			"url":           profile.URL,
			"port":          profile.Port,
			"base_url":      profile.BaseURL(),
			"auth_method":   profile.AuthMethod,
			"token":         config.MaskSecret(profile.Token),
			"username":      profile.Username,
			"password":      config.MaskSecret(profile.Password),
			"default_app":   profile.DefaultApp,
			"default_index": profile.DefaultIndex,
			"verify_ssl":    verifySSL,
			"api": map[string]any{
				"timeout":        api.Timeout.String(),
				"search_timeout": api.SearchTimeout.String(),
				"max_retries":    api.MaxRetries,
				"retry_backoff":  api.RetryBackoff,
			},
			"search_defaults": map[string]any{
				"earliest_time": defaults.EarliestTime,
				"latest_time":   defaults.LatestTime,
				"max_count":     defaults.MaxCount,
			},
		})
		return nil
	}

	fmt.Printf("Profile:        %s\n", name)
	fmt.Printf("URL:            %s\n", profile.URL)
	fmt.Printf("Base URL:       %s\n", profile.BaseURL())
	fmt.Printf("Auth method:    %s\n", profile.AuthMethod)
	if profile.Token != "" {
		fmt.Printf("Token:          %s\n", config.MaskSecret(profile.Token))
	}
	if profile.Username != "" {
		fmt.Printf("Username:       %s\n", profile.Username)
		fmt.Printf("Password:       %s\n", config.MaskSecret(profile.Password))
	}
	fmt.Printf("Default app:    %s\n", profile.DefaultApp)
	fmt.Printf("Default index:  %s\n", profile.DefaultIndex)
	fmt.Printf("Verify SSL:     %t\n", verifySSL)
	fmt.Printf("API timeout:    %s (search %s, %d retries)\n", api.Timeout, api.SearchTimeout, api.MaxRetries)
	fmt.Printf("Search window:  %s to %s (max %d results)\n", defaults.EarliestTime, defaults.LatestTime, defaults.MaxCount)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	manager, err := loadManager()
	if err != nil {
		return err
	}

	name := optionalArg(args)
	if name == "" {
		name = manager.DefaultProfile()
	}
	problems := manager.Validate(name)
	if len(problems) == 0 {
		format.Success("Profile %q is ready to use", name)
		return nil
	}
	for _, problem := range problems {
		format.Error("%s", problem)
	}
	return fmt.Errorf("profile %q has %d problem(s)", name, len(problems))
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	manager, err := loadManager()
	if err != nil {
		return err
	}
	fmt.Printf("Config:      %s\n", manager.Path)
	fmt.Printf("Credentials: %s\n", manager.CredsPath)
	return nil
}

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
