package main

import (
	"context"
	"fmt"
	"os"

	"github.com/woc-plugin/scrypt-verifier/cmd/verifier"
)

func main() {
	command := verifier.CreateRootCommand()
	err := command.ExecuteContext(context.Background())
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
