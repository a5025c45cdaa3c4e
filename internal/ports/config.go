package ports

import "github.com/target/mmk-ui-shell/internal/domain/appconfig"

// AuthSettingsSource exposes the authConfig block of the loaded configuration document.
// Before the document loads it reports a disabled zero value.
type AuthSettingsSource interface {
	Auth() appconfig.AuthSettings
}
