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

	fmt.Println("slow citizen started")
	go func() {
		<-sigs
		fmt.Println("heard the signal, still busy")
		time.Sleep(10 * time.Second)
		os.Exit(0)
	}()

	select {}
}
