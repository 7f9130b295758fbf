// Package main is the entry point for the mozaic-daily application
package main

import (
	"github.com/brwells78094/mozaic-daily/cmd"
)

func main() {
	cmd.Execute()
}
