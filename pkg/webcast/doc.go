// Package webcast connects to a TikTok LIVE room through a webcast relay and
// delivers the room's events to a single callback.
//
// The relay does the TikTok-side work (room lookup, signing, protobuf
// decoding) and forwards every event as a JSON frame over a WebSocket.
// This package only speaks that JSON protocol.
//
// # Basic Usage
//
//	client, err := webcast.NewClient("some_streamer",
//	    webcast.WithRelayURL("ws://localhost:8080/ws"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Connect(ctx); err != nil {
//	    if errors.Is(err, webcast.ErrUserOffline) {
//	        // not live yet, try again later
//	    }
//	    log.Fatal(err)
//	}
//
//	err = client.Run(ctx, func(ev webcast.Event) {
//	    switch ev.Type {
//	    case webcast.EventComment:
//	        fmt.Printf("%s -> %s\n", ev.User.UniqueID, ev.Comment)
//	    case webcast.EventJoin:
//	        fmt.Printf("%s joined\n", ev.User.UniqueID)
//	    }
//	})
//
// Run calls the callback on the calling goroutine, one event at a time, in
// the order the relay sent them. It returns ErrDisconnected when the session
// drops; the caller decides whether to Connect again.
//
// # Disclaimer
//
// This is an unofficial tool and is not affiliated with TikTok or ByteDance.
package webcast
