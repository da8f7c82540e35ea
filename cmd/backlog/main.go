package main

import (
	"os"

	"horse.fit/backlog/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
