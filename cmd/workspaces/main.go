package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
