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
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/projectcontour/parentselect/internal/build"
	"github.com/projectcontour/parentselect/internal/log/stdlog"
)

func main() {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Before kingpin has parsed flags, the GOMAXPROCS setup reports through
	// a small stdlib-only Logger so its problems are never silently
	// dropped; argument errors are reported by kingpin.MustParse itself.
	bootstrap := stdlog.New(os.Stdout, os.Stderr, 0)
	if _, err := maxprocs.Set(maxprocs.Logger(bootstrap.Infof)); err != nil {
		bootstrap.Errorf("failed to set GOMAXPROCS: %v", err)
	}

	app := kingpin.New("parentselect", "Next-hop parent selection service.")
	app.HelpFlag.Short('h')

	serve, serveCtx := registerServe(app)
	checkConfig, checkConfigCtx := registerCheckConfig(app)
	dot, dotCtx := registerDot(app)
	version := app.Command("version", "Build information for parentselect.")

	args := os.Args[1:]
	switch kingpin.MustParse(app.Parse(args)) {
	case serve.FullCommand():
		if err := doServe(log, serveCtx); err != nil {
			log.WithError(err).Fatal("serve failed")
		}
	case checkConfig.FullCommand():
		if err := doCheckConfig(log, checkConfigCtx); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case dot.FullCommand():
		if err := doDot(dotCtx); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case version.FullCommand():
		fmt.Println(build.PrintBuildInfo())
	default:
		app.Usage(args)
		os.Exit(2)
	}
}
