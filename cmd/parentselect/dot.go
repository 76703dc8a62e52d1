// Copyright Project Contour Authors
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

package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"

	"github.com/projectcontour/parentselect/internal/debug"
	"github.com/projectcontour/parentselect/internal/health"
	"github.com/projectcontour/parentselect/pkg/config"
)

type dotContext struct {
	ConfigFile string
}

func registerDot(app *kingpin.Application) (*kingpin.CmdClause, *dotContext) {
	ctx := &dotContext{}
	cmd := app.Command("dot", "Print the DOT topology of a strategy document's groups and hosts to stdout.")
	cmd.Flag("config", "Path to the strategy document.").Required().StringVar(&ctx.ConfigFile)
	return cmd, ctx
}

// doDot renders ctx.ConfigFile's topology offline: every host is shown
// available except those Build marked down as self-detected, since no
// probing has run to mark any other host down.
func doDot(ctx *dotContext) error {
	doc, err := config.ParseFile(ctx.ConfigFile)
	if err != nil {
		return err
	}

	store := health.NewStore(logrus.StandardLogger())
	strategies, _ := config.Build(doc, store, logrus.StandardLogger())

	debug.WriteDot(os.Stdout, strategies)
	return nil
}
