package main

import (
	"log/slog"
	"net/http"
	"os"

	_ "net/http/pprof" // profiling

	"github.com/Taarique/blutter/internal/cli/cmd"
	"github.com/Taarique/blutter/internal/cli/paniclog"
)

func main() {
	defer paniclog.RecoverPanic("main", func() {
		slog.Error("blutter terminated due to unhandled panic")
	})

	if os.Getenv("BLUTTER_PROFILE") != "" {
		go func() {
			slog.Info("serving pprof at localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				slog.Error("failed to serve pprof", "error", err)
			}
		}()
	}

	cmd.Execute()
}
