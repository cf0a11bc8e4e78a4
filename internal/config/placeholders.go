package config

import (
	"errors"
	"io/fs"
	"strings"
)

// Values shipped in defaults that an operator has to replace before sending.
const (
	PlaceholderToken           = "REPLACE_WITH_DEVICE_TOKEN"
	PlaceholderVAPIDPublicKey  = "REPLACE_WITH_VAPID_PUBLIC_KEY"
	PlaceholderVAPIDPrivateKey = "REPLACE_WITH_VAPID_PRIVATE_KEY"
)

// IsPlaceholder reports whether value is empty or still a REPLACE_WITH marker.
func IsPlaceholder(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || strings.Contains(value, "REPLACE_WITH")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
