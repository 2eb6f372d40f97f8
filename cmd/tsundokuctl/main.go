// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command tsundokuctl runs maintenance tasks against the library document and
// the cover cache used by the API server.
//
// # Commands
//
//	tsundokuctl set-password      Replace the password and lift any lock.
//	tsundokuctl unlock            Clear the lock and the failed attempts.
//	tsundokuctl security          Print the throttle state.
//	tsundokuctl covers migrate    Mirror every external thumbnail locally.
//	tsundokuctl covers cleanup    Remove unreferenced cover files.
//
// It reads the same environment (and .env file) as the server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(loadApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "erreur:", err)
		os.Exit(1)
	}
}
