// Command remind runs the reminder workflow daemon: it loads a set of
// reminder recipes, drives each one's engine.Flow, and performs the
// effects they emit against real services (Google Sheets, IMAP,
// Telegram).
package main

import "os"

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
