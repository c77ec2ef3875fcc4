// Copyright 2025 The SymptoServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the symptom prediction server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

SymptoServe resolves free-text symptoms against a fixed vocabulary and ranks
the diseases a trained classifier considers likely. It can operate as a
MessagePack IPC server for integration with other processes, or as an
interactive CLI for testing and debugging.

Symptoms are resolved through a cascade of matchers: exact lookup, fuzzy
token-sort comparison, an optional embedding based semantic stage and a TF-IDF
fallback. Resolved symptoms become a binary feature vector that the classifier
turns into class probabilities.

# Usage

Start the server with default settings:

	symptoserve serve

Use a custom data directory and enable debug mode:

	symptoserve serve --data /path/to/artifacts -d

Run the interactive CLI:

	symptoserve repl

Inspect the loaded artifacts:

	symptoserve inspect --prefix skin --match "stomach ache"

The data directory holds vocabulary.msgpack and model.msgpack, plus an
optional disease_info.yaml with descriptions and precautions.

# Configuration

Runtime configuration is managed through a TOML file:

	[matcher]
	threshold = 80.0
	predict_threshold = 75.0

	[ranker]
	top_n = 3
	confidence_threshold = 0.3

	[semantic]
	backend = "none" # "onnx" or "openai"

The config file is automatically created with defaults if it doesn't exist.
Keys of the wrong type fall back to their defaults without discarding the rest
of the file. The OpenAI backend reads its key from OPENAI_API_KEY.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout:

	{"id": "req1", "op": "predict", "symptoms": ["itching", "skin rash"]}
	{"id": "req2", "op": "suggest", "partial": "ski"}

See the server package for the response shapes. Logs always go to stderr.
*/
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
)

const (
	Version = "0.1.0-beta"
	AppName = "symptoserve"
	gh      = "https://github.com/bastiangx/symptoserve"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main only wires signals and hands control to the root command.
func main() {
	sigHandler()
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
