package main

import (
	"github.com/sirupsen/logrus"

	"scavengerhunt/internal/server"
)

func main() {
	if err := server.Run(); err != nil {
		logrus.Fatal(err)
	}
}
