// Package manifest carries build metadata set through -ldflags.
package manifest

// Version is overridden at build time with
// -ldflags "-X coapnotify/internal/manifest.Version=v1.2.3".
var Version = "dev"
