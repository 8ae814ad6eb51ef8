package main

import (
	"github.com/buschevapoly-del/final-project-nndl-1/internal/cli"
)

func main() {
	cli.Execute()
}
