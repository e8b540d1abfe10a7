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

	fmt.Println("good citizen started")

	select {
	case sig := <-sigs:
		fmt.Fprintf(os.Stderr, "received %s, cleaning up\n", sig)
		time.Sleep(200 * time.Millisecond)
		fmt.Println("exiting gracefully")
	case <-time.After(30 * time.Second):
		fmt.Println("finished work")
	}
}
