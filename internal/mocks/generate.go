// Package mocks provides mock implementations for testing the shell's session ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// Hand-written fakes for the OIDC client and friends live in the auth subpackage.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	shared := mocks.NewMockSharedSession(ctrl)
//	shared.EXPECT().MarkAuthorized(gomock.Any()).Return(nil)
package mocks

// Generate mocks for SharedSession and Reloader from internal/ports.
// SharedSession covers MarkAuthorized, ClearAuthorized, IsAuthorized, Publish and Subscribe.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_mock.go github.com/target/mmk-ui-shell/internal/ports SharedSession,Reloader
