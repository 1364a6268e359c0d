package main

import (
	"os"

	"github.com/alpacahq/framestore/cmd"
	"github.com/alpacahq/framestore/utils/log"
)

func main() {
	defer log.Sync()
	if err := cmd.Execute(); err != nil {
		log.Error("%v", err)
		log.Sync()
		os.Exit(1)
	}
}
