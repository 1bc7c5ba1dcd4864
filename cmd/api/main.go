package main

import (
	"github.com/dixis/marketplace/internal/cmd"
)

func main() {
	cmd.Execute()
}
