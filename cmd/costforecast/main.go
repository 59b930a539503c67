package main

import "github.com/lilnaht/excelfile-automation/internal/cli"

func main() {
	cli.Execute()
}
