package main

import "github.com/evmstore/blockcache/internal/cli"

func main() {
	cli.Execute()
}
