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

// Package commands implements the attribeval CLI.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attribeval/attribeval/storage"
)

type storageFlags struct {
	backend   string
	path      string
	gcsBucket string
}

var Flags struct {
	storage storageFlags
}

// RootCmd is the attribeval command.
var RootCmd = &cobra.Command{
	Use:          "attribeval",
	Short:        "Batched evaluation of model explanations.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&Flags.storage.backend, "storage", "memory", "Run storage backend: memory, file, sqlite, or gcs")
	RootCmd.PersistentFlags().StringVar(&Flags.storage.path, "storage-path", ".attribeval", "Base directory (file backend) or database file (sqlite backend)")
	RootCmd.PersistentFlags().StringVar(&Flags.storage.gcsBucket, "gcs-bucket", "", "Bucket name for the gcs backend")
}

func (f *storageFlags) open(ctx context.Context) (storage.Storage, error) {
	switch f.backend {
	case "memory":
		return storage.NewMemory(), nil
	case "file":
		return storage.NewFile(f.path)
	case "sqlite":
		return storage.NewSQLite(f.path)
	case "gcs":
		return storage.NewGCS(ctx, f.gcsBucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", f.backend)
	}
}
