package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

// execute runs the command line and closes the database however it ends
func execute() error {
	a := &app{}
	defer a.close()
	return newRootCmd(a).Execute()
}
