package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// Headless hosts without a keychain supply logins this way.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(profile string) (*Credentials, error) {
	user := os.Getenv("DBEXTRACT_DB_USER")
	password := os.Getenv("DBEXTRACT_DB_PASSWORD")

	if user == "" || password == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables carry a single login, whatever the profile
	if profile == "" {
		profile = "default"
	}

	return &Credentials{
		Profile:      profile,
		User:         user,
		Password:     password,
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(profile string) bool {
	return os.Getenv("DBEXTRACT_DB_USER") != "" && os.Getenv("DBEXTRACT_DB_PASSWORD") != ""
}
