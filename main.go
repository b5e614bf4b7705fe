package main

import (
	"os"

	"github.com/farah699/Users-Permissions-Backend/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
