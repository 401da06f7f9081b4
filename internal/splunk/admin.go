package splunk

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
)

// ServerInfo returns the content block of /server/info.
func (c *Client) ServerInfo(ctx context.Context) (map[string]any, error) {
	response, err := c.Get(ctx, "/server/info", nil, "get server info")
	if err != nil {
		return nil, err
	}
	return firstContent(response), nil
}

// ServerStatus returns the content block of /server/status.
func (c *Client) ServerStatus(ctx context.Context) (map[string]any, error) {
	response, err := c.Get(ctx, "/server/status", nil, "get server status")
	if err != nil {
		return nil, err
	}
	return firstContent(response), nil
}

// Health returns the splunkd health tree.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	response, err := c.Get(ctx, "/server/health/splunkd", nil, "get health")
	if err != nil {
		return nil, err
	}
	return firstContent(response), nil
}

// UserInfo summarizes one entry of /authentication/users.
type UserInfo struct {
	Name     string
	RealName string
	Email    string
	Roles    []string
}

// ListUsers returns all users visible to the authenticated account.
func (c *Client) ListUsers(ctx context.Context) ([]UserInfo, error) {
	response, err := c.Get(ctx, "/authentication/users", nil, "list users")
	if err != nil {
		return nil, err
	}

	var users []UserInfo
	for _, entry := range entries(response) {
		content := entryContent(entry)
		name, _ := entry["name"].(string)
		realName, _ := content["realname"].(string)
		email, _ := content["email"].(string)
		users = append(users, UserInfo{
			Name:     name,
			RealName: realName,
			Email:    email,
			Roles:    stringList(content["roles"]),
		})
	}
	return users, nil
}

// RoleInfo summarizes one entry of /authorization/roles.
type RoleInfo struct {
	Name          string
	ImportedRoles []string
	Capabilities  int
}

// ListRoles returns all roles.
func (c *Client) ListRoles(ctx context.Context) ([]RoleInfo, error) {
	response, err := c.Get(ctx, "/authorization/roles", nil, "list roles")
	if err != nil {
		return nil, err
	}

	var roles []RoleInfo
	for _, entry := range entries(response) {
		content := entryContent(entry)
		name, _ := entry["name"].(string)
		roles = append(roles, RoleInfo{
			Name:          name,
			ImportedRoles: stringList(content["imported_roles"]),
			Capabilities:  len(stringList(content["capabilities"])),
		})
	}
	return roles, nil
}

// RestGet performs a raw GET against any REST endpoint, as-is.
func (c *Client) RestGet(ctx context.Context, endpoint string) (map[string]any, error) {
	return c.Get(ctx, endpoint, nil, "GET "+endpoint)
}

// RestPost performs a raw POST against any REST endpoint. data may be a
// JSON object of string values or a k=v&k=v form string.
func (c *Client) RestPost(ctx context.Context, endpoint, data string) (map[string]any, error) {
	form := url.Values{}
	if data != "" {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(data), &decoded); err == nil {
			for k, v := range decoded {
				switch value := v.(type) {
				case string:
					form.Set(k, value)
				default:
					raw, _ := json.Marshal(value)
					form.Set(k, string(raw))
				}
			}
		} else {
			for _, pair := range strings.Split(data, "&") {
				k, v, found := strings.Cut(pair, "=")
				if found {
					form.Set(k, v)
				}
			}
		}
	}
	return c.Post(ctx, endpoint, form, "POST "+endpoint)
}

// NamespaceEndpoint rewrites a bare endpoint into an app/owner namespace.
func NamespaceEndpoint(endpoint, app, owner string) string {
	if app == "" {
		return endpoint
	}
	endpoint = "/" + strings.TrimLeft(endpoint, "/")
	endpoint = strings.TrimPrefix(endpoint, "/services")
	if owner == "" {
		owner = "-"
	}
	return "/servicesNS/" + owner + "/" + app + endpoint
}

func firstContent(response map[string]any) map[string]any {
	responseEntries := entries(response)
	if len(responseEntries) == 0 {
		return map[string]any{}
	}
	return entryContent(responseEntries[0])
}

func stringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
