package main

import (
	"log"

	"github.com/govmx/vmxdbg/flag"
)

func main() {
	if err := flag.Parse(); err != nil {
		log.Fatal(err)
	}
}
