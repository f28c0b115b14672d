package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kilianp07/oncall/cmd"
	"github.com/kilianp07/oncall/core/monitoring"
)

func main() {
	defer monitoring.Recover()
	err := cmd.Execute()
	monitoring.Flush(2 * time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
