package main

import (
	"github.com/robotalks/bugsy.go/pkg/cli/sh"

	_ "github.com/robotalks/bugsy.go/pkg/cli/cmds/robot"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
