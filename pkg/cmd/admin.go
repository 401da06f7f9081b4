package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grandcamel/splunk-as/internal/format"
	"github.com/grandcamel/splunk-as/internal/splunk"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Server information and raw REST access",
}

var (
	adminOutput string
	adminApp    string
	adminOwner  string
	adminData   string
)

var adminInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show server version, build, and license state",
	RunE:  runAdminInfo,
}

var adminStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	RunE:  runAdminStatus,
}

var adminHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the splunkd health report",
	RunE:  runAdminHealth,
}

var adminUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "List users",
	RunE:  runAdminUsers,
}

var adminRolesCmd = &cobra.Command{
	Use:   "list-roles",
	Short: "List roles",
	RunE:  runAdminRoles,
}

var adminRestGetCmd = &cobra.Command{
	Use:   "rest-get ENDPOINT",
	Short: "GET an arbitrary REST endpoint",
	Long: `Perform a raw GET against any splunkd REST endpoint. With --app the
endpoint is rewritten into the /servicesNS/{owner}/{app} namespace.

Example:
  splunk-as admin rest-get /services/data/props/extractions --app search`,
	Args: cobra.ExactArgs(1),
	RunE: runAdminRestGet,
}

var adminRestPostCmd = &cobra.Command{
	Use:   "rest-post ENDPOINT",
	Short: "POST to an arbitrary REST endpoint",
	Long: `Perform a raw POST against any splunkd REST endpoint. --data accepts
either a JSON object or an ampersand-separated form string.

Example:
  splunk-as admin rest-post /services/saved/searches --data '{"name":"errors","search":"index=main ERROR"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runAdminRestPost,
}

func init() {
	for _, c := range []*cobra.Command{adminInfoCmd, adminStatusCmd, adminHealthCmd, adminUsersCmd, adminRolesCmd} {
		c.Flags().StringVarP(&adminOutput, "output", "o", format.OutputText, "Output format: text or json")
	}

	adminRestGetCmd.Flags().StringVar(&adminApp, "app", "", "App namespace for the endpoint")
	adminRestGetCmd.Flags().StringVar(&adminOwner, "owner", "", "Owner namespace (defaults to '-' when --app is set)")

	adminRestPostCmd.Flags().StringVar(&adminApp, "app", "", "App namespace for the endpoint")
	adminRestPostCmd.Flags().StringVar(&adminOwner, "owner", "", "Owner namespace (defaults to '-' when --app is set)")
	adminRestPostCmd.Flags().StringVarP(&adminData, "data", "d", "", "Request body as JSON or k=v&k=v")

	adminCmd.AddCommand(adminInfoCmd)
	adminCmd.AddCommand(adminStatusCmd)
	adminCmd.AddCommand(adminHealthCmd)
	adminCmd.AddCommand(adminUsersCmd)
	adminCmd.AddCommand(adminRolesCmd)
	adminCmd.AddCommand(adminRestGetCmd)
	adminCmd.AddCommand(adminRestPostCmd)
}

func runAdminInfo(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	info, err := client.ServerInfo(ctx)
	if err != nil {
		return err
	}

	if adminOutput == format.OutputJSON {
		format.PrintJSON(info)
		return nil
	}
	fmt.Printf("Server:  %s\n", contentString(info, "serverName"))
	fmt.Printf("Version: %s\n", contentString(info, "version"))
	fmt.Printf("Build:   %s\n", contentString(info, "build"))
	fmt.Printf("OS:      %s\n", contentString(info, "os_name"))
	fmt.Printf("License: %s\n", contentString(info, "licenseState"))
	if roles := contentString(info, "server_roles"); roles != "" {
		fmt.Printf("Roles:   %s\n", roles)
	}
	return nil
}

func runAdminStatus(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	status, err := client.ServerStatus(ctx)
	if err != nil {
		return err
	}

	if adminOutput == format.OutputJSON {
		format.PrintJSON(status)
		return nil
	}
	format.Success("Server is reachable")
	for _, key := range []string{"startup_time", "eai:acl"} {
		if v := contentString(status, key); v != "" {
			fmt.Printf("%s: %s\n", key, v)
		}
	}
	return nil
}

func runAdminHealth(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	health, err := client.Health(ctx)
	if err != nil {
		return err
	}

	if adminOutput == format.OutputJSON {
		format.PrintJSON(health)
		return nil
	}
	overall := contentString(health, "health")
	switch strings.ToLower(overall) {
	case "green":
		format.Success("Overall health: %s", overall)
	case "yellow":
		format.Warning("Overall health: %s", overall)
	default:
		format.Error("Overall health: %s", overall)
	}
	printHealthFeatures(health, "")
	return nil
}

// printHealthFeatures walks the nested features map depth-first and prints
// one indented line per feature with its color.
func printHealthFeatures(node map[string]any, indent string) {
	features, ok := node["features"].(map[string]any)
	if !ok {
		return
	}
	for name, raw := range features {
		feature, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		color, _ := feature["health"].(string)
		fmt.Printf("%s%s: %s\n", indent+"  ", name, color)
		printHealthFeatures(feature, indent+"  ")
	}
}

func runAdminUsers(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	users, err := client.ListUsers(ctx)
	if err != nil {
		return err
	}

	if adminOutput == format.OutputJSON {
		var out []map[string]any
		for _, user := range users {
			out = append(out, map[string]any{
				"name":      user.Name,
				"real_name": user.RealName,
				"email":     user.Email,
				"roles":     user.Roles,
			})
		}
		format.PrintJSON(out)
		return nil
	}

	rows := make([]map[string]any, 0, len(users))
	for _, user := range users {
		rows = append(rows, map[string]any{
			"Name":      user.Name,
			"Real name": user.RealName,
			"Email":     user.Email,
			"Roles":     strings.Join(user.Roles, ", "),
		})
	}
	format.PrintTable(rows, []string{"Name", "Real name", "Email", "Roles"})
	fmt.Printf("\nTotal: %d users\n", len(users))
	return nil
}

func runAdminRoles(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	roles, err := client.ListRoles(ctx)
	if err != nil {
		return err
	}

	if adminOutput == format.OutputJSON {
		var out []map[string]any
		for _, role := range roles {
			out = append(out, map[string]any{
				"name":           role.Name,
				"imported_roles": role.ImportedRoles,
				"capabilities":   role.Capabilities,
			})
		}
		format.PrintJSON(out)
		return nil
	}

	rows := make([]map[string]any, 0, len(roles))
	for _, role := range roles {
		rows = append(rows, map[string]any{
			"Name":         role.Name,
			"Imports":      strings.Join(role.ImportedRoles, ", "),
			"Capabilities": role.Capabilities,
		})
	}
	format.PrintTable(rows, []string{"Name", "Imports", "Capabilities"})
	fmt.Printf("\nTotal: %d roles\n", len(roles))
	return nil
}

func runAdminRestGet(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	endpoint := splunk.NamespaceEndpoint(args[0], adminApp, adminOwner)
	response, err := client.RestGet(ctx, endpoint)
	if err != nil {
		return err
	}
	format.PrintJSON(response)
	return nil
}

func runAdminRestPost(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	endpoint := splunk.NamespaceEndpoint(args[0], adminApp, adminOwner)
	response, err := client.RestPost(ctx, endpoint, adminData)
	if err != nil {
		return err
	}
	format.PrintJSON(response)
	return nil
}
