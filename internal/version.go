package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
)

const appName = "seikenbot"

// version is set at build time with -ldflags "-X seikenbot/internal.version=..."
var version = ""

// Version returns the version of the application. Without a build time version it falls back
// to the main module version recorded by the Go toolchain.
func Version() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

func VersionHTTPHandler(w http.ResponseWriter, _ *http.Request) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	body := struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}{Name: appName, Version: Version()}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, fmt.Sprintf("{\"error\":%q}\n", err.Error()), http.StatusInternalServerError)
		return
	}
}
