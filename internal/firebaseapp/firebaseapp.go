// Package firebaseapp builds the Firebase app shared by the FCM transport and
// the Firestore token store. Credentials always come from a service account file.
package firebaseapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	"github.com/smilecare-labs/clinic-push/internal/config"
	"google.golang.org/api/option"
)

// ErrCredentialsMissing means no readable service account file was configured.
var ErrCredentialsMissing = errors.New("firebase credentials missing")

const credentialsEnv = "GOOGLE_APPLICATION_CREDENTIALS"

// CredentialsFile resolves the service account path: config first, then GOOGLE_APPLICATION_CREDENTIALS.
// It fails when the file is not configured or cannot be read.
func CredentialsFile(cfg config.Firebase) (string, error) {
	path := strings.TrimSpace(cfg.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(credentialsEnv))
	}
	if path == "" {
		return "", fmt.Errorf("%w: set firebase.credentials_file or %s", ErrCredentialsMissing, credentialsEnv)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialsMissing, err)
	}
	_ = f.Close()
	return path, nil
}

// New initialises the Firebase app.
func New(ctx context.Context, cfg config.Firebase) (*firebase.App, error) {
	path, err := CredentialsFile(cfg)
	if err != nil {
		return nil, err
	}
	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbCfg, option.WithCredentialsFile(path))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	return app, nil
}
