package webcast_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tiktokalert/tiktokalert-go/pkg/webcast"
)

// ExampleClient_Run shows a connect/run loop that waits while the
// broadcaster is offline.
func ExampleClient_Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := webcast.NewClient("some_streamer",
		webcast.WithRelayURL("ws://localhost:8080/ws"),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	for {
		if err := client.Connect(ctx); err != nil {
			if errors.Is(err, webcast.ErrUserOffline) {
				time.Sleep(5 * time.Minute)
				continue
			}
			log.Fatal(err)
		}

		err := client.Run(ctx, func(ev webcast.Event) {
			switch ev.Type {
			case webcast.EventComment:
				fmt.Printf("%s -> %s\n", ev.User.UniqueID, ev.Comment)
			case webcast.EventJoin:
				fmt.Printf("%s joined\n", ev.User.UniqueID)
			}
		})
		if !errors.Is(err, webcast.ErrDisconnected) {
			return
		}
	}
}
