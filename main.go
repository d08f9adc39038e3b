package main

import (
	"os"

	"github.com/shhayash-work/copilot-qna/cmd/qna"
)

func main() {
	if err := qna.Execute(); err != nil {
		os.Exit(1)
	}
}
