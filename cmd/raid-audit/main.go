package main

import (
	"flag"
	"os"

	"github.com/louisbranch/throne-of-dust/internal/platform/config"
	"github.com/louisbranch/throne-of-dust/internal/tools/raidaudit"
)

func main() {
	cfg, err := raidaudit.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := raidaudit.Run(cfg, os.Stdout); err != nil {
		config.Exitf("read audit: %v", err)
	}
}
