// Copyright 2025 The attribeval Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/attribeval/attribeval/metric"
	"github.com/attribeval/attribeval/server"
)

type serveCmdFlags struct {
	addr string
}

var serveFlags serveCmdFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves stored runs and registered metrics over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveFlags.serve(cmd.Context())
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.addr, "addr", "a", ":8080", "Listen address")
}

func (f *serveCmdFlags) serve(ctx context.Context) error {
	store, err := Flags.storage.open(ctx)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    f.addr,
		Handler: server.NewRouter(server.NewRunsController(store, metric.DefaultRegistry)),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown failed", "error", err)
		}
	}()

	slog.Info("serving", "addr", f.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
