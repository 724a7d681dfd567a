package main

import (
	"fmt"
	"os"

	cmd "github.com/func/seeder/cmd/seeder"
)

func main() {
	err := cmd.Seeder.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
