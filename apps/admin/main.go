package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/trezcool/darasa/core"
	logsvc "github.com/trezcool/darasa/services/logger"
	notifsvc "github.com/trezcool/darasa/services/notifier"
)

func main() {
	defer os.Exit(0)

	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	var logger core.Logger
	if conf.RollbarToken != "" && !conf.Debug {
		logger = logsvc.NewRollbarLogger(std, conf)
	} else {
		logger = logsvc.NewConsoleLogger(std, conf)
	}

	cli := commandLine{
		conf:      conf,
		log:       logger,
		notify:    notifsvc.NewConsoleNotifier(std),
		confirm:   notifsvc.NewTerminalConfirmer(os.Stdin, os.Stdout),
		in:        os.Stdin,
		out:       os.Stdout,
		tokenPath: tokenPath(),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func tokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".darasa_token")
}
