package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/opd-ai/chatfiles/limits"
	"github.com/opd-ai/chatfiles/server"
)

// VERSION is populated via build flags when packaging release binaries.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "chatfiles-server"
	myApp.Usage = "chat room server with a shared file store"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "listen,l",
			Value: fmt.Sprintf("0.0.0.0:%d", limits.DefaultPort),
			Usage: "address to listen on",
		},
		cli.StringFlag{
			Name:  "store,s",
			Value: ".",
			Usage: "directory for uploaded and served files",
		},
		cli.StringFlag{
			Name:  "loglevel",
			Value: "info",
			Usage: "logging level (debug, info, warn, error)",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		level, err := logrus.ParseLevel(c.String("loglevel"))
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		logrus.SetLevel(level)

		srv, err := server.New(c.String("listen"), c.String("store"))
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}

		if err := srv.Run(); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	}

	if err := myApp.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
