// Package gcp holds the client options shared by every Google Cloud client in
// this module.
//
// Credentials are resolved in this order:
//   - GOOGLE_CREDENTIALS: inline service account JSON
//   - GOOGLE_APPLICATION_CREDENTIALS: path to a service account JSON file
//   - Application Default Credentials (no explicit option)
package gcp

import (
	"os"

	"google.golang.org/api/option"
)

// CredentialSource names where ClientOptions found credentials.
type CredentialSource string

const (
	CredentialsInline  CredentialSource = "GOOGLE_CREDENTIALS"
	CredentialsFile    CredentialSource = "GOOGLE_APPLICATION_CREDENTIALS"
	CredentialsDefault CredentialSource = "application-default"
)

// ClientOptions returns the credential options for a Google Cloud client
// together with the source they were taken from.
func ClientOptions() ([]option.ClientOption, CredentialSource) {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}, CredentialsInline
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}, CredentialsFile
	}
	return nil, CredentialsDefault
}
