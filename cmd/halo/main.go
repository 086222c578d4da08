// Command halo draws a highlight around the mouse cursor.
package main

import (
	"fmt"
	"os"
	"runtime"
)

// Version is set via ldflags during build.
var version = "dev"

func init() {
	// Window, hotkey and tray calls must stay on the thread that made them.
	runtime.LockOSThread()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
