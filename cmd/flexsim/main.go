// Package main provides the flexsim command. It runs synthetic workloads on
// out-of-order cores attached to the reference memory fabric.
package main

import (
	"github.com/tebeka/atexit"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
