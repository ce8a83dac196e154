// Command bitmeme はBitMemeのAPIサーバー・ワーカー・マイグレーションを起動する。
//
//	bitmeme [serve|worker|migrate [up|down|version]|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/bitmeme/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bitmeme: %v\n", err)
		os.Exit(1)
	}
}
