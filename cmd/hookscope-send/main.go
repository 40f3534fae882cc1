// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

// Hookscope-send submits one hook event to a hookscope server. It is
// the reference producer: hook scripts invoke it with event metadata
// as flags and the JSON payload on stdin.
//
//	echo '{"tool":"Read","path":"main.go"}' | hookscope-send \
//	    --source-app resume-agent \
//	    --session-id "$SESSION_ID" \
//	    --event-type PreToolUse
//
// On success it prints the server-assigned event id to stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/hookscope/hookscope/lib/hookclient"
	"github.com/hookscope/hookscope/lib/process"
	"github.com/hookscope/hookscope/lib/schema/hook"
	"github.com/hookscope/hookscope/lib/version"
)

// maxPayloadSize bounds the stdin read. Matches the server's ingest
// body limit.
const maxPayloadSize = 16 << 20

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		serverURL   string
		sourceApp   string
		sessionID   string
		eventType   string
		summary     string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("hookscope-send", pflag.ContinueOnError)
	flagSet.StringVar(&serverURL, "server", "http://127.0.0.1:4000", "hookscope server base URL")
	flagSet.StringVar(&sourceApp, "source-app", "", "emitting application name (required)")
	flagSet.StringVar(&sessionID, "session-id", "", "session identifier (required)")
	flagSet.StringVar(&eventType, "event-type", "", "hook event type, e.g. PreToolUse (required)")
	flagSet.StringVar(&summary, "summary", "", "optional AI-generated event summary")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if showVersion {
		version.Print("hookscope-send")
		return nil
	}

	payload, err := io.ReadAll(io.LimitReader(os.Stdin, maxPayloadSize))
	if err != nil {
		return fmt.Errorf("reading payload from stdin: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("payload is required on stdin")
	}
	if !json.Valid(payload) {
		return fmt.Errorf("payload on stdin is not valid JSON")
	}

	client, err := hookclient.New(hookclient.Config{BaseURL: serverURL})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), hookclient.DefaultTimeout)
	defer cancel()

	stored, err := client.PostEvent(ctx, hook.IngestRequest{
		Timestamp:     time.Now().UnixMilli(),
		SourceApp:     sourceApp,
		SessionID:     sessionID,
		HookEventType: eventType,
		Payload:       payload,
		AISummary:     summary,
	})
	if err != nil {
		return err
	}

	fmt.Println(stored.ID)
	return nil
}
