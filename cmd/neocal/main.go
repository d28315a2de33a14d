package main

import (
	"fmt"
	"os"

	// distroless等tzdataを持たない実行環境でもユーザーのタイムゾーンを解決できるようにする
	_ "time/tzdata"

	"github.com/hitoshi/neocal/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
