package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	fmt.Println("ignoring signals")
	go func() {
		for s := range sigs {
			fmt.Printf("ignored %v\n", s)
		}
	}()

	for {
		time.Sleep(time.Second)
	}
}
