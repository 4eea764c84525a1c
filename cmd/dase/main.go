// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command dase drives the node engine from YAML run configurations and
// evaluates JSON sheets exported by the web interface.
//
// Usage:
//
//	dase run [config.yaml ...] [-o results.json] [--metrics-addr :9090]
//	dase roles PATTERN [-n nodes]
//	dase sheet sheet.json [-o web_results.json]
//
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
