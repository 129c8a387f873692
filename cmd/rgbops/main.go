package main

import (
	"fmt"
	"os"

	"github.com/ngerakines/rgbops/cmd/rgbops/internal"
)

func main() {
	if err := internal.RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
