package main

import (
	"context"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := rootCommand().ExecuteContext(context.Background()); err != nil {
		logrus.Fatalf("beacon: %v", err)
	}
}
