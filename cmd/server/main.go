package main

import "github.com/facturaIA/invoice-stock-service/internal/cli"

func main() {
	cli.Execute()
}
