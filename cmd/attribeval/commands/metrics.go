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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attribeval/attribeval/metric"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Lists the registered metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range metric.DefaultRegistry.ListMetrics() {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(metricsCmd)
}
