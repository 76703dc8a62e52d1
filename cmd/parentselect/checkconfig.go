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
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"

	"github.com/projectcontour/parentselect/internal/health"
	"github.com/projectcontour/parentselect/pkg/config"
)

type checkConfigContext struct {
	ConfigFile string
}

func registerCheckConfig(app *kingpin.Application) (*kingpin.CmdClause, *checkConfigContext) {
	ctx := &checkConfigContext{}
	cmd := app.Command("check-config", "Load a strategy document, report warnings, and exit non-zero if any strategy was rejected.")
	cmd.Flag("config", "Path to the strategy document.").Required().StringVar(&ctx.ConfigFile)
	return cmd, ctx
}

// doCheckConfig parses and builds ctx.ConfigFile against a fresh health
// store (every host starts up; Build marks only self-detected hosts down)
// and reports every strategy and warning found, without starting any
// listener.
func doCheckConfig(log *logrus.Logger, ctx *checkConfigContext) error {
	doc, err := config.ParseFile(ctx.ConfigFile)
	if err != nil {
		return err
	}

	store := health.NewStore(log)
	strategies, warnings := config.Build(doc, store, log)

	for _, w := range warnings {
		fmt.Println("warning:", w.Error())
	}
	for _, s := range strategies {
		fmt.Printf("strategy %q: %d parents across %d groups, ring_mode=%s\n", s.Name, s.NumParents(), len(s.Groups()), s.RingMode)
	}

	if len(strategies) == 0 {
		return fmt.Errorf("no usable strategies in %s", ctx.ConfigFile)
	}
	if len(strategies) < len(doc.Strategies) {
		return fmt.Errorf("%d of %d strategies rejected, see warnings above", len(doc.Strategies)-len(strategies), len(doc.Strategies))
	}
	return nil
}
