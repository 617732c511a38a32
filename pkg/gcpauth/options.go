// Package gcpauth turns the GCP credential settings into client options
// shared by the Pub/Sub and BigQuery clients.
package gcpauth

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// ClientOptions prefers inline JSON credentials over a credentials file.
// With neither set the clients fall back to Application Default Credentials.
func ClientOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}
