package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/opd-ai/chatfiles/client"
)

// VERSION is populated via build flags when packaging release binaries.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "chatfiles-client"
	myApp.Usage = "interactive chat client; type /connect to join a server"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "loglevel",
			Value: "warn",
			Usage: "logging level (debug, info, warn, error)",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		level, err := logrus.ParseLevel(c.String("loglevel"))
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		logrus.SetLevel(level)

		if err := client.New(os.Stdin, os.Stdout).Run(); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	}

	if err := myApp.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
